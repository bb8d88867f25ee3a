// Package tiles loads and caches the raster tiles backing a map's tile
// layer: a Provider contract, an OSM HTTP provider, a local placeholder
// provider, a primary/fallback combinator, and a Manager with a bounded
// LRU cache and asynchronous prefetch.
package tiles

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/Manyrio/gio-map/geo"
)

// Tile identifies a slippy-map tile by column, row, and zoom level.
type Tile struct {
	X, Y, Z int
}

// Key returns a stable 64-bit cache key for the tile.
func (t Tile) Key() uint64 {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:], uint64(t.X))
	binary.LittleEndian.PutUint64(buf[8:], uint64(t.Y))
	binary.LittleEndian.PutUint64(buf[16:], uint64(t.Z))
	return xxhash.Sum64(buf[:])
}

// Constrain clamps the tile's column and row to the valid range for its
// zoom level.
func (t Tile) Constrain() Tile {
	maxIndex := 1<<uint(t.Z) - 1
	t.X = max(0, min(t.X, maxIndex))
	t.Y = max(0, min(t.Y, maxIndex))
	return t
}

// Valid reports whether the tile's column and row exist at its zoom.
func (t Tile) Valid() bool {
	n := 1 << uint(t.Z)
	return t.X >= 0 && t.X < n && t.Y >= 0 && t.Y < n
}

// VisibleRange returns the tiles covering the world-pixel rectangle
// [origin, origin+size) at the given fractional zoom. Tiles are taken
// from the nearest whole zoom level and listed row-major.
func VisibleRange(origin, size geo.Point, zoom float64) []Tile {
	z := int(math.Round(zoom))
	if z < 0 {
		z = 0
	}
	// Pixel distances at the tile zoom differ from the viewport zoom by
	// the zoom-scale factor.
	factor := geo.ZoomScale(float64(z), zoom)
	minPx := origin.Div(factor)
	maxPx := origin.Add(size).Div(factor)

	minX := int(math.Floor(minPx.X / geo.TileSize))
	minY := int(math.Floor(minPx.Y / geo.TileSize))
	maxX := int(math.Ceil(maxPx.X/geo.TileSize)) - 1
	maxY := int(math.Ceil(maxPx.Y/geo.TileSize)) - 1

	maxIndex := 1<<uint(z) - 1
	minX = max(0, minX)
	minY = max(0, minY)
	maxX = min(maxX, maxIndex)
	maxY = min(maxY, maxIndex)

	var visible []Tile
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			visible = append(visible, Tile{X: x, Y: y, Z: z})
		}
	}
	return visible
}
