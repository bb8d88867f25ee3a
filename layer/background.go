package layer

import (
	"gioui.org/f32"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/paint"

	"github.com/Manyrio/gio-map/viewport"
)

// backgroundLayer fills the canvas beneath all other layers.
type backgroundLayer struct {
	cfg   *BackgroundConfig
	imgOp paint.ImageOp
}

func newBackgroundLayer(cfg *BackgroundConfig) *backgroundLayer {
	l := &backgroundLayer{cfg: cfg}
	if cfg.Image != nil {
		l.imgOp = paint.NewImageOp(cfg.Image)
	}
	return l
}

func (l *backgroundLayer) Layout(gtx layout.Context, st viewport.State) layout.Dimensions {
	if l.cfg.Color.A > 0 {
		paint.Fill(gtx.Ops, l.cfg.Color)
	}
	if l.cfg.Image != nil {
		// Tile the image across the canvas.
		bounds := l.cfg.Image.Bounds()
		w, h := float64(bounds.Dx()), float64(bounds.Dy())
		if w > 0 && h > 0 {
			for y := 0.0; y < st.Size.Y; y += h {
				for x := 0.0; x < st.Size.X; x += w {
					trans := op.Affine(f32.Affine2D{}.Offset(f32.Pt(float32(x), float32(y)))).Push(gtx.Ops)
					l.imgOp.Add(gtx.Ops)
					paint.PaintOp{}.Add(gtx.Ops)
					trans.Pop()
				}
			}
		}
	}
	return layout.Dimensions{Size: st.Size.Round()}
}
