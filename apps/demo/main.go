// Command demo opens a window with a tile map, a marker, a vector
// route, and a geographically anchored image overlay.
package main

import (
	"image"
	"image/color"
	"os"

	"gioui.org/app"
	"gioui.org/op"
	"gioui.org/unit"
	"github.com/rs/zerolog"

	"github.com/Manyrio/gio-map/geo"
	"github.com/Manyrio/gio-map/layer"
	"github.com/Manyrio/gio-map/mapview"
	"github.com/Manyrio/gio-map/tiles"
	"github.com/Manyrio/gio-map/viewport"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	layer.SetLogger(log)

	provider := tiles.NewCombinedProvider(
		tiles.NewOSMProvider(tiles.WithOSMLogger(log)),
		tiles.NewDebugProvider(),
	)
	manager := tiles.NewManager(provider, tiles.WithLogger(log))
	defer manager.Close()

	refresh := make(chan struct{}, 1)
	m := mapview.New(geo.WebMercator{},
		mapview.WithLogger(log),
		mapview.WithRefresh(refresh),
		mapview.WithViewportOptions(
			viewport.WithCenter(geo.LatLng{Lat: 51.507222, Lng: -0.1275}),
			viewport.WithZoom(12),
		),
	)
	defer m.Close()

	overlay := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for i := range overlay.Pix {
		overlay.Pix[i] = 0x80
	}

	err := m.SetLayers(
		&layer.BackgroundConfig{Color: color.NRGBA{R: 0xe8, G: 0xe8, B: 0xe8, A: 0xff}},
		&layer.TileConfig{
			RebuildConfig: layer.RebuildConfig{Rebuild: manager.Loaded()},
			Manager:       manager,
		},
		&layer.PolylineConfig{Lines: []layer.Polyline{{
			Points: []geo.LatLng{
				{Lat: 51.5074, Lng: -0.1278},
				{Lat: 51.5014, Lng: -0.1419},
				{Lat: 51.4994, Lng: -0.1248},
			},
			Color: color.NRGBA{R: 0x20, G: 0x60, B: 0xd0, A: 0xff},
			Width: 3,
		}}},
		&layer.OverlayImageConfig{Overlays: []layer.ImageOverlay{{
			Bounds: geo.Bounds{
				NorthWest: geo.LatLng{Lat: 51.52, Lng: -0.15},
				SouthEast: geo.LatLng{Lat: 51.49, Lng: -0.10},
			},
			Source:          layer.StaticImage{Img: overlay},
			Opacity:         0.5,
			GaplessPlayback: true,
		}}},
		&layer.MarkerConfig{Markers: []layer.Marker{{
			Position: geo.LatLng{Lat: 51.507222, Lng: -0.1275},
			Color:    color.NRGBA{R: 0xd0, G: 0x30, B: 0x30, A: 0xff},
		}}},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("layer composition failed")
	}

	go func() {
		w := new(app.Window)
		w.Option(app.Title("gio-map demo"), app.Size(unit.Dp(800), unit.Dp(600)))

		go func() {
			for range refresh {
				w.Invalidate()
			}
		}()

		var ops op.Ops
		for {
			switch e := w.Event().(type) {
			case app.DestroyEvent:
				os.Exit(0)
			case app.FrameEvent:
				gtx := app.NewContext(&ops, e)
				m.Layout(gtx)
				e.Frame(gtx.Ops)
			}
		}
	}()
	app.Main()
}
