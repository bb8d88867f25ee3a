package geo

import (
	"fmt"
	"math"
)

// TileSize is the edge length of a map tile in pixels.
const TileSize = 256

// Maximum latitude representable in Web Mercator, arctan(sinh(π)).
const (
	MaxLatitude = 85.0511287798
	MinLatitude = -85.0511287798

	degToRad = math.Pi / 180.0
	radToDeg = 180.0 / math.Pi
)

// Projection maps geographical coordinates to pixel-space coordinates at
// a given zoom level. Implementations must be pure: the same input always
// yields the same output, with no side effects.
type Projection interface {
	// Project converts a geographical coordinate to world pixel
	// coordinates at the given zoom. Coordinates outside the
	// projection's domain yield ErrInvalidCoordinate.
	Project(ll LatLng, zoom float64) (Point, error)

	// Unproject converts world pixel coordinates at the given zoom back
	// to a geographical coordinate. The result may lie outside the
	// projection's domain when p lies outside the world.
	Unproject(p Point, zoom float64) LatLng

	// Clamp returns the nearest coordinate inside the projection's
	// domain. Project(Clamp(ll), zoom) never fails.
	Clamp(ll LatLng) LatLng
}

// ZoomScale returns the multiplicative factor relating pixel distances at
// two zoom levels. It is exactly 1 when the zooms are equal.
func ZoomScale(fromZoom, toZoom float64) float64 {
	if fromZoom == toZoom {
		return 1
	}
	return math.Pow(2, toZoom-fromZoom)
}

// earthCircumference is the equatorial circumference in meters.
const earthCircumference = 40075016.686

// MetersPerPixel returns the ground distance covered by one pixel at
// the given latitude and zoom level.
func MetersPerPixel(lat, zoom float64) float64 {
	return earthCircumference * math.Cos(lat*degToRad) / (math.Pow(2, zoom) * TileSize)
}

// WebMercator is the spherical Mercator projection (EPSG:3857) used by
// slippy-map tile servers. World pixel space at zoom z spans
// TileSize·2^z pixels in each axis.
type WebMercator struct{}

// Project implements Projection. Latitudes outside ±85.0511° or
// longitudes outside ±180° are rejected with ErrInvalidCoordinate.
func (WebMercator) Project(ll LatLng, zoom float64) (Point, error) {
	if ll.Lat < MinLatitude || ll.Lat > MaxLatitude {
		return Point{}, fmt.Errorf("%w: latitude %v", ErrInvalidCoordinate, ll.Lat)
	}
	if ll.Lng < -180 || ll.Lng > 180 {
		return Point{}, fmt.Errorf("%w: longitude %v", ErrInvalidCoordinate, ll.Lng)
	}
	worldSize := TileSize * math.Pow(2, zoom)
	latRad := ll.Lat * degToRad
	x := worldSize * (ll.Lng + 180) / 360
	y := worldSize * (1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2
	return Point{X: x, Y: y}, nil
}

// Clamp implements Projection. Latitudes are limited to ±MaxLatitude
// and longitudes to ±180°.
func (WebMercator) Clamp(ll LatLng) LatLng {
	return LatLng{
		Lat: math.Min(MaxLatitude, math.Max(MinLatitude, ll.Lat)),
		Lng: math.Min(180, math.Max(-180, ll.Lng)),
	}
}

// Unproject implements Projection.
func (WebMercator) Unproject(p Point, zoom float64) LatLng {
	worldSize := TileSize * math.Pow(2, zoom)
	lng := p.X/worldSize*360 - 180
	latRad := math.Atan(math.Sinh(math.Pi * (1 - 2*p.Y/worldSize)))
	return LatLng{Lat: latRad * radToDeg, Lng: lng}
}
