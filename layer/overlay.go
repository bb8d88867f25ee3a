package layer

import (
	"fmt"
	"image"

	"gioui.org/f32"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/paint"

	"github.com/Manyrio/gio-map/geo"
	"github.com/Manyrio/gio-map/viewport"
)

// Rect is an axis-aligned pixel rectangle on the canvas.
type Rect struct {
	Left, Top     float64
	Width, Height float64
}

// PositionOverlay converts a geographical bounding box to its pixel
// rectangle under the given viewport state. Inverted or degenerate
// bounds yield ErrInvalidBounds; the rectangle is never clamped.
func PositionOverlay(st viewport.State, b geo.Bounds) (Rect, error) {
	// Identity for now: the from and to zoom are the same until the
	// viewport model grows fractional zoom interpolation. Kept as an
	// explicit call so the scale factor has a single revisit point.
	scale := geo.ZoomScale(st.Zoom, st.Zoom)

	upperLeft, err := st.Proj.Project(b.NorthWest, st.Zoom)
	if err != nil {
		return Rect{}, fmt.Errorf("layer: overlay north-west corner: %w", err)
	}
	lowerRight, err := st.Proj.Project(b.SouthEast, st.Zoom)
	if err != nil {
		return Rect{}, fmt.Errorf("layer: overlay south-east corner: %w", err)
	}

	upperLeft = upperLeft.Mul(scale).Sub(st.PixelOrigin)
	lowerRight = lowerRight.Mul(scale).Sub(st.PixelOrigin)

	rect := Rect{
		Left:   upperLeft.X,
		Top:    upperLeft.Y,
		Width:  lowerRight.X - upperLeft.X,
		Height: lowerRight.Y - upperLeft.Y,
	}
	if rect.Width <= 0 || rect.Height <= 0 {
		return Rect{}, fmt.Errorf("%w: overlay projects to %gx%g", geo.ErrInvalidBounds, rect.Width, rect.Height)
	}
	return rect, nil
}

// overlayFrame caches the uploaded image op for one overlay so the
// previous frame can keep showing during a gapless swap.
type overlayFrame struct {
	img   image.Image
	imgOp paint.ImageOp
	ready bool
}

// overlayLayer composites geographically anchored images.
type overlayLayer struct {
	cfg    *OverlayImageConfig
	frames []overlayFrame
}

func newOverlayLayer(cfg *OverlayImageConfig) *overlayLayer {
	return &overlayLayer{
		cfg:    cfg,
		frames: make([]overlayFrame, len(cfg.Overlays)),
	}
}

func (l *overlayLayer) Layout(gtx layout.Context, st viewport.State) layout.Dimensions {
	if len(l.frames) != len(l.cfg.Overlays) {
		l.frames = make([]overlayFrame, len(l.cfg.Overlays))
	}
	for i := range l.cfg.Overlays {
		l.layoutOverlay(gtx, st, i)
	}
	return layout.Dimensions{Size: st.Size.Round()}
}

func (l *overlayLayer) layoutOverlay(gtx layout.Context, st viewport.State, i int) {
	o := &l.cfg.Overlays[i]

	rect, err := PositionOverlay(st, o.Bounds)
	if err != nil {
		// An overlay with undefined geometry is dropped from the
		// composition, never rendered clamped.
		pkgLog().Warn().Err(err).Int("overlay", i).Msg("overlay skipped")
		return
	}

	frame := &l.frames[i]
	if o.Source != nil {
		if img, ok := o.Source.Frame(); ok && img != nil {
			if img != frame.img {
				frame.img = img
				frame.imgOp = paint.NewImageOp(img)
			}
			frame.ready = true
		} else if !o.GaplessPlayback {
			// Without gapless playback a pending frame blanks the
			// overlay instead of showing the stale image.
			frame.ready = false
		}
	}
	if !frame.ready {
		return
	}

	opacity := min(max(o.Opacity, 0), 1)
	if opacity == 0 {
		return
	}

	imgBounds := frame.img.Bounds()
	sx := rect.Width / float64(imgBounds.Dx())
	sy := rect.Height / float64(imgBounds.Dy())

	opStack := paint.PushOpacity(gtx.Ops, float32(opacity))
	aff := f32.Affine2D{}.
		Scale(f32.Point{}, f32.Pt(float32(sx), float32(sy))).
		Offset(f32.Pt(float32(rect.Left), float32(rect.Top)))
	trans := op.Affine(aff).Push(gtx.Ops)
	frame.imgOp.Add(gtx.Ops)
	paint.PaintOp{}.Add(gtx.Ops)
	trans.Pop()
	opStack.Pop()
}
