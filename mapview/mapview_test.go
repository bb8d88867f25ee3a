package mapview

import (
	"image"
	"testing"

	"gioui.org/layout"
	"gioui.org/op"

	"github.com/Manyrio/gio-map/geo"
	"github.com/Manyrio/gio-map/layer"
	"github.com/Manyrio/gio-map/stream"
	"github.com/Manyrio/gio-map/viewport"
)

func drain(refresh chan struct{}) {
	for {
		select {
		case <-refresh:
		default:
			return
		}
	}
}

func signaled(refresh chan struct{}) bool {
	select {
	case <-refresh:
		return true
	default:
		return false
	}
}

func TestViewportChangeSignalsRefresh(t *testing.T) {
	refresh := make(chan struct{}, 1)
	m := New(geo.WebMercator{}, WithRefresh(refresh))
	defer m.Close()

	if err := m.SetLayers(&layer.BackgroundConfig{}); err != nil {
		t.Fatal(err)
	}
	drain(refresh)

	m.Viewport().SetZoom(9)
	if !signaled(refresh) {
		t.Fatal("viewport change did not request a frame")
	}
}

func TestLayerRebuildSourceSignalsRefresh(t *testing.T) {
	refresh := make(chan struct{}, 1)
	m := New(geo.WebMercator{}, WithRefresh(refresh))
	defer m.Close()

	rebuild := stream.New()
	err := m.SetLayers(&layer.MarkerConfig{
		RebuildConfig: layer.RebuildConfig{Rebuild: rebuild},
	})
	if err != nil {
		t.Fatal(err)
	}
	drain(refresh)

	rebuild.Emit()
	if !signaled(refresh) {
		t.Fatal("layer rebuild source did not request a frame")
	}
}

func TestStackRebuildDisposesOldStreams(t *testing.T) {
	refresh := make(chan struct{}, 1)
	m := New(geo.WebMercator{}, WithRefresh(refresh))
	defer m.Close()

	oldRebuild := stream.New()
	err := m.SetLayers(&layer.MarkerConfig{
		RebuildConfig: layer.RebuildConfig{Rebuild: oldRebuild},
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := m.SetLayers(&layer.BackgroundConfig{}); err != nil {
		t.Fatal(err)
	}
	drain(refresh)

	// The removed layer's stream must be fully severed: no rebuild
	// event may reach the map through the old merge.
	oldRebuild.Emit()
	if signaled(refresh) {
		t.Fatal("removed layer still delivers rebuild events")
	}
}

func TestNestedGroupSourceSignalsRefresh(t *testing.T) {
	refresh := make(chan struct{}, 1)
	m := New(geo.WebMercator{}, WithRefresh(refresh))
	defer m.Close()

	nested := stream.New()
	err := m.SetLayers(&layer.GroupConfig{
		Children: []layer.Config{
			&layer.BackgroundConfig{},
			&layer.MarkerConfig{
				RebuildConfig: layer.RebuildConfig{Rebuild: nested},
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	drain(refresh)

	nested.Emit()
	if !signaled(refresh) {
		t.Fatal("nested rebuild source did not request a frame")
	}
}

type unknownConfig struct {
	layer.RebuildConfig
}

func TestSetLayersFailsFastOnUnresolvedConfig(t *testing.T) {
	refresh := make(chan struct{}, 1)
	m := New(geo.WebMercator{}, WithRefresh(refresh))
	defer m.Close()

	err := m.SetLayers(&layer.BackgroundConfig{}, &unknownConfig{})
	if err == nil {
		t.Fatal("unresolvable config accepted")
	}
	if len(m.stack) != 0 {
		t.Fatalf("failed composition left %d layers in the stack", len(m.stack))
	}
}

func TestCloseSilencesViewport(t *testing.T) {
	refresh := make(chan struct{}, 1)
	m := New(geo.WebMercator{}, WithRefresh(refresh))

	if err := m.SetLayers(&layer.BackgroundConfig{}); err != nil {
		t.Fatal(err)
	}
	vp := m.Viewport()
	m.Close()
	drain(refresh)

	vp.SetZoom(3)
	if signaled(refresh) {
		t.Fatal("closed map still requests frames")
	}
}

func testContext(size image.Point) layout.Context {
	return layout.Context{
		Ops:         new(op.Ops),
		Constraints: layout.Exact(size),
	}
}

func TestLayoutSmoke(t *testing.T) {
	m := New(geo.WebMercator{},
		WithViewportOptions(
			viewport.WithCenter(geo.LatLng{Lat: 51.5, Lng: -0.13}),
			viewport.WithZoom(10),
		),
	)
	defer m.Close()

	overlaySrc := layer.StaticImage{Img: image.NewRGBA(image.Rect(0, 0, 4, 4))}
	err := m.SetLayers(
		&layer.BackgroundConfig{},
		&layer.PolylineConfig{Lines: []layer.Polyline{{
			Points: []geo.LatLng{{Lat: 51.5, Lng: -0.2}, {Lat: 51.6, Lng: -0.1}},
			Width:  2,
		}}},
		&layer.CircleConfig{Circles: []layer.Circle{{
			Center: geo.LatLng{Lat: 51.5, Lng: -0.13}, Radius: 20,
		}}},
		&layer.MarkerConfig{Markers: []layer.Marker{{
			Position: geo.LatLng{Lat: 51.5, Lng: -0.13},
		}}},
		&layer.OverlayImageConfig{Overlays: []layer.ImageOverlay{{
			Bounds: geo.Bounds{
				NorthWest: geo.LatLng{Lat: 52, Lng: -1},
				SouthEast: geo.LatLng{Lat: 51, Lng: 0},
			},
			Source:  overlaySrc,
			Opacity: 0.8,
		}}},
	)
	if err != nil {
		t.Fatal(err)
	}

	dims := m.Layout(testContext(image.Pt(800, 600)))
	if dims.Size != image.Pt(800, 600) {
		t.Fatalf("dims=%v, want 800x600", dims.Size)
	}

	// A rotated viewport draws through the oversized covering canvas.
	m.Viewport().SetRotation(30)
	dims = m.Layout(testContext(image.Pt(800, 600)))
	if dims.Size != image.Pt(800, 600) {
		t.Fatalf("rotated dims=%v, want 800x600", dims.Size)
	}
}
