package layer

import (
	"gioui.org/f32"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/paint"

	"github.com/Manyrio/gio-map/geo"
	"github.com/Manyrio/gio-map/tiles"
	"github.com/Manyrio/gio-map/viewport"
)

// tileLayer draws the raster tiles covering the canvas. Tiles not yet
// cached are scheduled by the manager; its Loaded stream triggers the
// rebuild that paints them.
type tileLayer struct {
	cfg *TileConfig
}

func newTileLayer(cfg *TileConfig) *tileLayer {
	return &tileLayer{cfg: cfg}
}

func (l *tileLayer) Layout(gtx layout.Context, st viewport.State) layout.Dimensions {
	mgr := l.cfg.Manager
	if mgr == nil {
		return layout.Dimensions{Size: st.Size.Round()}
	}

	for _, tile := range tiles.VisibleRange(st.PixelOrigin, st.Size, st.Zoom) {
		imgOp, ok := mgr.Get(tile)
		if !ok {
			continue
		}

		// Tiles live at a whole zoom level; scale them to the
		// viewport's fractional zoom.
		factor := geo.ZoomScale(float64(tile.Z), st.Zoom)
		x := float64(tile.X*geo.TileSize)*factor - st.PixelOrigin.X
		y := float64(tile.Y*geo.TileSize)*factor - st.PixelOrigin.Y

		aff := f32.Affine2D{}.
			Scale(f32.Point{}, f32.Pt(float32(factor), float32(factor))).
			Offset(f32.Pt(float32(x), float32(y)))
		trans := op.Affine(aff).Push(gtx.Ops)
		imgOp.Add(gtx.Ops)
		paint.PaintOp{}.Add(gtx.Ops)
		trans.Pop()
	}
	return layout.Dimensions{Size: st.Size.Round()}
}
