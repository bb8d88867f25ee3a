package layer

import (
	"image"
	"sync"

	"gioui.org/f32"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"github.com/dhconnelly/rtreego"

	"github.com/Manyrio/gio-map/geo"
	"github.com/Manyrio/gio-map/stream"
	"github.com/Manyrio/gio-map/viewport"
)

// markerCullPad widens the viewport query so markers whose anchor sits
// just off-canvas still draw their overhanging icon.
const markerCullPad = 64.0

// indexedMarker wraps a marker for R-tree storage.
type indexedMarker struct {
	marker Marker
	icon   paint.ImageOp
	hasImg bool
}

// Bounds implements rtreego.Spatial. Markers are points; the R-tree
// needs non-zero extents, so a small epsilon rectangle is used.
func (m *indexedMarker) Bounds() rtreego.Rect {
	const epsilon = 0.0001
	point := rtreego.Point{m.marker.Position.Lng, m.marker.Position.Lat}
	rect, _ := rtreego.NewRect(point, []float64{epsilon, epsilon})
	return rect
}

// markerLayer draws markers culled to the visible region via a spatial
// index. The index is rebuilt lazily when the config's rebuild stream
// signals a data change.
type markerLayer struct {
	cfg *MarkerConfig
	sub *stream.Subscription

	mu    sync.Mutex
	index *rtreego.Rtree
	dirty bool
}

func newMarkerLayer(cfg *MarkerConfig) *markerLayer {
	l := &markerLayer{cfg: cfg, dirty: true}
	if cfg.Rebuild != nil {
		l.sub = cfg.Rebuild.Subscribe(func() {
			l.mu.Lock()
			l.dirty = true
			l.mu.Unlock()
		})
	}
	return l
}

// Dispose implements Disposer.
func (l *markerLayer) Dispose() {
	l.sub.Cancel()
}

func (l *markerLayer) rebuildIndex() *rtreego.Rtree {
	index := rtreego.NewTree(2, 25, 50)
	for i := range l.cfg.Markers {
		entry := &indexedMarker{marker: l.cfg.Markers[i]}
		if entry.marker.Icon != nil {
			entry.icon = paint.NewImageOp(entry.marker.Icon)
			entry.hasImg = true
		}
		index.Insert(entry)
	}
	return index
}

func (l *markerLayer) visible(st viewport.State) []rtreego.Spatial {
	l.mu.Lock()
	if l.dirty {
		l.index = l.rebuildIndex()
		l.dirty = false
	}
	index := l.index
	l.mu.Unlock()

	// Unproject the padded canvas corners to a geographical query box.
	nw := st.Proj.Unproject(st.PixelOrigin.Sub(geo.Pt(markerCullPad, markerCullPad)), st.Zoom)
	se := st.Proj.Unproject(st.PixelOrigin.Add(st.Size).Add(geo.Pt(markerCullPad, markerCullPad)), st.Zoom)

	queryRect, err := rtreego.NewRect(
		rtreego.Point{nw.Lng, se.Lat},
		[]float64{se.Lng - nw.Lng, nw.Lat - se.Lat},
	)
	if err != nil {
		return nil
	}
	return index.SearchIntersect(queryRect)
}

func (l *markerLayer) Layout(gtx layout.Context, st viewport.State) layout.Dimensions {
	for _, hit := range l.visible(st) {
		entry := hit.(*indexedMarker)
		m := entry.marker

		pos, err := st.Proj.Project(m.Position, st.Zoom)
		if err != nil {
			continue
		}
		screen := pos.Sub(st.PixelOrigin)

		size := m.Size
		if size == (geo.Point{}) {
			size = geo.Pt(12, 12)
		}
		topLeft := screen.Sub(size.Div(2)).Add(m.Anchor)

		if entry.hasImg {
			iconBounds := m.Icon.Bounds()
			sx := size.X / float64(iconBounds.Dx())
			sy := size.Y / float64(iconBounds.Dy())
			aff := f32.Affine2D{}.
				Scale(f32.Point{}, f32.Pt(float32(sx), float32(sy))).
				Offset(f32.Pt(float32(topLeft.X), float32(topLeft.Y)))
			trans := op.Affine(aff).Push(gtx.Ops)
			entry.icon.Add(gtx.Ops)
			paint.PaintOp{}.Add(gtx.Ops)
			trans.Pop()
			continue
		}

		dot := image.Rectangle{
			Min: topLeft.Round(),
			Max: topLeft.Add(size).Round(),
		}
		paint.FillShape(gtx.Ops, m.Color, clip.Ellipse(dot).Op(gtx.Ops))
	}
	return layout.Dimensions{Size: st.Size.Round()}
}
