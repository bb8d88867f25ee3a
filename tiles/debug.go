package tiles

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/Manyrio/gio-map/geo"
)

// DebugProvider renders placeholder tiles locally: a flat background, a
// border, and the z/x/y address printed in the middle. Useful offline
// and as the fallback side of a CombinedProvider.
type DebugProvider struct{}

// NewDebugProvider creates a placeholder tile provider.
func NewDebugProvider() *DebugProvider {
	return &DebugProvider{}
}

// GetTile implements Provider. It never fails.
func (p *DebugProvider) GetTile(t Tile) (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, geo.TileSize, geo.TileSize))

	bg := color.RGBA{200, 220, 255, 255}
	draw.Draw(img, img.Bounds(), &image.Uniform{bg}, image.Point{}, draw.Src)

	border := color.RGBA{100, 100, 100, 255}
	edges := []image.Rectangle{
		image.Rect(0, 0, geo.TileSize, 1),
		image.Rect(0, geo.TileSize-1, geo.TileSize, geo.TileSize),
		image.Rect(0, 0, 1, geo.TileSize),
		image.Rect(geo.TileSize-1, 0, geo.TileSize, geo.TileSize),
	}
	for _, rect := range edges {
		draw.Draw(img, rect, &image.Uniform{border}, image.Point{}, draw.Over)
	}

	drawTileLabel(img, fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y))
	return img, nil
}

func drawTileLabel(img *image.RGBA, text string) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: face,
	}

	textWidth := d.MeasureString(text).Round()
	textHeight := face.Metrics().Height.Round()

	const pad = 6
	bgRect := image.Rect(
		(geo.TileSize-textWidth)/2-pad,
		geo.TileSize/2-textHeight/2-pad,
		(geo.TileSize+textWidth)/2+pad,
		geo.TileSize/2+textHeight/2+pad,
	)
	draw.Draw(img, bgRect, &image.Uniform{color.RGBA{255, 255, 255, 220}}, image.Point{}, draw.Over)

	d.Dot = fixed.Point26_6{
		X: fixed.I((geo.TileSize - textWidth) / 2),
		Y: fixed.I(geo.TileSize/2 + textHeight/2),
	}
	d.DrawString(text)
}
