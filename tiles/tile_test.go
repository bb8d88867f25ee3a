package tiles

import (
	"testing"

	"github.com/Manyrio/gio-map/geo"
)

func TestKeyDistinguishesTiles(t *testing.T) {
	seen := map[uint64]Tile{}
	for z := 0; z < 4; z++ {
		for x := 0; x < 1<<uint(z); x++ {
			for y := 0; y < 1<<uint(z); y++ {
				tile := Tile{X: x, Y: y, Z: z}
				if prev, dup := seen[tile.Key()]; dup {
					t.Fatalf("key collision: %v and %v", prev, tile)
				}
				seen[tile.Key()] = tile
			}
		}
	}
}

func TestConstrain(t *testing.T) {
	got := Tile{X: -3, Y: 99, Z: 3}.Constrain()
	if got.X != 0 || got.Y != 7 {
		t.Fatalf("Constrain = %+v, want X=0 Y=7", got)
	}
}

func TestVisibleRangeCoversViewport(t *testing.T) {
	// One 256px viewport at zoom 2, positioned at the world origin,
	// needs exactly the first tile plus its right/bottom neighbors when
	// offset.
	visible := VisibleRange(geo.Pt(0, 0), geo.Pt(256, 256), 2)
	if len(visible) != 1 || visible[0] != (Tile{X: 0, Y: 0, Z: 2}) {
		t.Fatalf("visible = %v, want exactly tile 0/0 at z2", visible)
	}

	visible = VisibleRange(geo.Pt(128, 128), geo.Pt(256, 256), 2)
	if len(visible) != 4 {
		t.Fatalf("offset viewport needs 4 tiles, got %v", visible)
	}
}

func TestVisibleRangeClampsToWorld(t *testing.T) {
	// A viewport hanging off the world's edge must not request
	// out-of-range tiles.
	visible := VisibleRange(geo.Pt(-1000, -1000), geo.Pt(5000, 5000), 1)
	for _, tile := range visible {
		if !tile.Valid() {
			t.Fatalf("out-of-range tile %v", tile)
		}
	}
	if len(visible) != 4 { // zoom 1 world is 2x2
		t.Fatalf("got %d tiles, want the full 2x2 world", len(visible))
	}
}

func TestVisibleRangeFractionalZoom(t *testing.T) {
	// At zoom 2.4 tiles come from the nearest whole level (2) and the
	// range accounts for the scale factor between the two zooms.
	visible := VisibleRange(geo.Pt(0, 0), geo.Pt(512, 512), 2.4)
	if len(visible) == 0 {
		t.Fatal("no tiles at fractional zoom")
	}
	for _, tile := range visible {
		if tile.Z != 2 {
			t.Fatalf("tile zoom %d, want 2", tile.Z)
		}
	}
}
