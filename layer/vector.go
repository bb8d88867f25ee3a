package layer

import (
	"image"

	"gioui.org/f32"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"

	"github.com/Manyrio/gio-map/geo"
	"github.com/Manyrio/gio-map/viewport"
)

// screenPoint projects a coordinate onto the canvas. ok is false for
// coordinates outside the projection domain, which are dropped from the
// shape rather than failing the whole layer.
func screenPoint(st viewport.State, ll geo.LatLng) (f32.Point, bool) {
	px, err := st.Proj.Project(ll, st.Zoom)
	if err != nil {
		return f32.Point{}, false
	}
	p := px.Sub(st.PixelOrigin)
	return f32.Pt(float32(p.X), float32(p.Y)), true
}

// buildPath converts geographical points to a canvas path. closed adds
// the closing segment for polygons.
func buildPath(gtx layout.Context, st viewport.State, points []geo.LatLng, closed bool) (clip.PathSpec, bool) {
	var path clip.Path
	path.Begin(gtx.Ops)
	started := false
	for _, ll := range points {
		pt, ok := screenPoint(st, ll)
		if !ok {
			continue
		}
		if !started {
			path.MoveTo(pt)
			started = true
			continue
		}
		path.LineTo(pt)
	}
	if closed && started {
		path.Close()
	}
	return path.End(), started
}

type polylineLayer struct {
	cfg *PolylineConfig
}

func newPolylineLayer(cfg *PolylineConfig) *polylineLayer {
	return &polylineLayer{cfg: cfg}
}

func (l *polylineLayer) Layout(gtx layout.Context, st viewport.State) layout.Dimensions {
	for _, line := range l.cfg.Lines {
		if len(line.Points) < 2 {
			continue
		}
		spec, ok := buildPath(gtx, st, line.Points, false)
		if !ok {
			continue
		}
		width := line.Width
		if width <= 0 {
			width = 1
		}
		paint.FillShape(gtx.Ops, line.Color,
			clip.Stroke{Path: spec, Width: float32(width)}.Op())
	}
	return layout.Dimensions{Size: st.Size.Round()}
}

type polygonLayer struct {
	cfg *PolygonConfig
}

func newPolygonLayer(cfg *PolygonConfig) *polygonLayer {
	return &polygonLayer{cfg: cfg}
}

func (l *polygonLayer) Layout(gtx layout.Context, st viewport.State) layout.Dimensions {
	for _, poly := range l.cfg.Polygons {
		if len(poly.Points) < 3 {
			continue
		}
		spec, ok := buildPath(gtx, st, poly.Points, true)
		if !ok {
			continue
		}
		if poly.FillColor.A > 0 {
			paint.FillShape(gtx.Ops, poly.FillColor, clip.Outline{Path: spec}.Op())
		}
		if poly.StrokeWidth > 0 {
			paint.FillShape(gtx.Ops, poly.StrokeColor,
				clip.Stroke{Path: spec, Width: float32(poly.StrokeWidth)}.Op())
		}
	}
	return layout.Dimensions{Size: st.Size.Round()}
}

type circleLayer struct {
	cfg *CircleConfig
}

func newCircleLayer(cfg *CircleConfig) *circleLayer {
	return &circleLayer{cfg: cfg}
}

func (l *circleLayer) Layout(gtx layout.Context, st viewport.State) layout.Dimensions {
	for _, c := range l.cfg.Circles {
		center, ok := screenPoint(st, c.Center)
		if !ok {
			continue
		}
		radius := c.Radius
		if c.InMeters {
			radius /= geo.MetersPerPixel(c.Center.Lat, st.Zoom)
		}
		if radius <= 0 {
			continue
		}

		rect := image.Rect(
			int(center.X-float32(radius)), int(center.Y-float32(radius)),
			int(center.X+float32(radius)), int(center.Y+float32(radius)),
		)
		if c.FillColor.A > 0 {
			paint.FillShape(gtx.Ops, c.FillColor, clip.Ellipse(rect).Op(gtx.Ops))
		}
		if c.StrokeWidth > 0 {
			spec := clip.Ellipse(rect).Path(gtx.Ops)
			paint.FillShape(gtx.Ops, c.StrokeColor,
				clip.Stroke{Path: spec, Width: float32(c.StrokeWidth)}.Op())
		}
	}
	return layout.Dimensions{Size: st.Size.Round()}
}
