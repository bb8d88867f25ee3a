package viewport

import (
	"math"

	"github.com/Manyrio/gio-map/geo"
)

// CoveringSize returns the axis-aligned size a drawing canvas must have
// so that, rotated by rotationDeg (clockwise) around its center, it
// still fully covers an unrotated viewport of the given size.
//
// With a = |sin(90°−θ)| and b = |sinθ|, the covering size is
// (W·a + H·b, H·a + W·b). Layers render against this unrotated,
// oversized canvas; the rotation itself is applied once, as a single
// transform around the composited stack, never inside a layer.
func CoveringSize(size geo.Point, rotationDeg float64) geo.Point {
	if rotationDeg == 0 {
		return size
	}
	theta := rotationDeg * math.Pi / 180
	a := math.Abs(math.Sin(math.Pi/2 - theta))
	b := math.Abs(math.Sin(theta))
	return geo.Point{
		X: size.X*a + size.Y*b,
		Y: size.Y*a + size.X*b,
	}
}
