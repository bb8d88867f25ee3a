// Package layer defines the map's layer pipeline: polymorphic layer
// configurations, the plugin-extensible dispatcher resolving a
// configuration to a concrete renderable, and the built-in renderables
// (tiles, markers, vector shapes, image overlays, backgrounds).
package layer

import (
	"image"
	"image/color"

	"github.com/Manyrio/gio-map/geo"
	"github.com/Manyrio/gio-map/stream"
	"github.com/Manyrio/gio-map/tiles"
)

// Config is the abstract layer configuration the dispatcher resolves.
// Concrete variants carry type-specific payload; all expose the
// optional data-change stream driving rebuilds beyond viewport moves.
type Config interface {
	// RebuildSource returns the layer's own data-change stream, or nil
	// when the layer rebuilds only on viewport changes.
	RebuildSource() *stream.Stream
}

// RebuildConfig carries the optional data-change stream and is embedded
// by every config variant.
type RebuildConfig struct {
	Rebuild *stream.Stream
}

// RebuildSource implements Config.
func (c RebuildConfig) RebuildSource() *stream.Stream { return c.Rebuild }

// TileConfig renders raster tiles through a tile manager. The manager's
// Loaded stream is the conventional value for Rebuild, so freshly
// loaded tiles show up without a viewport move.
type TileConfig struct {
	RebuildConfig
	Manager *tiles.Manager
}

// Marker is a point of interest drawn at a fixed geographical position.
// Icon may be nil, in which case a colored dot of the given size is
// drawn. Size and the anchor offset are in pixels; the anchor shifts
// the drawing away from centered-on-position.
type Marker struct {
	Position geo.LatLng
	Icon     image.Image
	Size     geo.Point
	Anchor   geo.Point
	Color    color.NRGBA
}

// MarkerConfig renders a set of markers, culled to the viewport through
// a spatial index.
type MarkerConfig struct {
	RebuildConfig
	Markers []Marker
}

// Polyline is an open stroked path through geographical points.
type Polyline struct {
	Points []geo.LatLng
	Color  color.NRGBA
	Width  float64
}

// PolylineConfig renders stroked paths.
type PolylineConfig struct {
	RebuildConfig
	Lines []Polyline
}

// Polygon is a closed filled shape, optionally stroked.
type Polygon struct {
	Points      []geo.LatLng
	FillColor   color.NRGBA
	StrokeColor color.NRGBA
	StrokeWidth float64
}

// PolygonConfig renders filled shapes.
type PolygonConfig struct {
	RebuildConfig
	Polygons []Polygon
}

// Circle is a disc around a geographical center. When InMeters is set
// the radius is geographical meters, converted per latitude; otherwise
// it is screen pixels.
type Circle struct {
	Center      geo.LatLng
	Radius      float64
	InMeters    bool
	FillColor   color.NRGBA
	StrokeColor color.NRGBA
	StrokeWidth float64
}

// CircleConfig renders discs.
type CircleConfig struct {
	RebuildConfig
	Circles []Circle
}

// GroupConfig composes child layers as one unit. Children are resolved
// through the same dispatcher; each child gets its own merged rebuild
// stream, owned and disposed by the group's renderable.
type GroupConfig struct {
	RebuildConfig
	Children []Config
}

// ImageSource is an opaque reference to overlay pixels. Frame reports
// the current image and whether it is ready; sources backed by
// asynchronous decoding return ok=false until the first frame arrives.
type ImageSource interface {
	Frame() (image.Image, bool)
}

// StaticImage wraps an already-decoded image as an ImageSource.
type StaticImage struct {
	Img image.Image
}

// Frame implements ImageSource.
func (s StaticImage) Frame() (image.Image, bool) {
	return s.Img, s.Img != nil
}

// ImageOverlay places one image over a geographical bounding box.
// Immutable once constructed: viewport changes only move its computed
// pixel rectangle, never the overlay itself.
type ImageOverlay struct {
	Bounds  geo.Bounds
	Source  ImageSource
	Opacity float64

	// GaplessPlayback keeps the previously shown image visible while a
	// replacement frame decodes, avoiding a flash on swap.
	GaplessPlayback bool
}

// OverlayImageConfig renders geographically anchored images.
type OverlayImageConfig struct {
	RebuildConfig
	Overlays []ImageOverlay
}

// BackgroundConfig fills the canvas beneath all other layers with a
// solid color and, optionally, a repeated image.
type BackgroundConfig struct {
	RebuildConfig
	Color color.NRGBA
	Image image.Image
}
