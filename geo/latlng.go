package geo

import (
	"errors"
	"fmt"
)

// ErrInvalidCoordinate reports a geographical coordinate outside the
// projection's domain.
var ErrInvalidCoordinate = errors.New("geo: coordinate out of projection domain")

// ErrInvalidBounds reports a degenerate or inverted geographical rectangle.
var ErrInvalidBounds = errors.New("geo: invalid bounds")

// LatLng is a geographical point in degrees.
type LatLng struct {
	Lat, Lng float64
}

// Bounds is a geographical rectangle described by its north-west and
// south-east corners. NorthWest must be strictly north and west of
// SouthEast.
type Bounds struct {
	NorthWest LatLng
	SouthEast LatLng
}

// Validate reports whether the corners describe a non-degenerate
// rectangle with the north-west corner actually north-west of the
// south-east one.
func (b Bounds) Validate() error {
	if b.NorthWest.Lat <= b.SouthEast.Lat {
		return fmt.Errorf("%w: north-west latitude %v not north of south-east %v",
			ErrInvalidBounds, b.NorthWest.Lat, b.SouthEast.Lat)
	}
	if b.NorthWest.Lng >= b.SouthEast.Lng {
		return fmt.Errorf("%w: north-west longitude %v not west of south-east %v",
			ErrInvalidBounds, b.NorthWest.Lng, b.SouthEast.Lng)
	}
	return nil
}

// Contains reports whether the point lies within the bounds.
func (b Bounds) Contains(ll LatLng) bool {
	return ll.Lat <= b.NorthWest.Lat && ll.Lat >= b.SouthEast.Lat &&
		ll.Lng >= b.NorthWest.Lng && ll.Lng <= b.SouthEast.Lng
}
