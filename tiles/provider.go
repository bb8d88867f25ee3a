package tiles

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"

	"github.com/rs/zerolog"
)

// Provider fetches the raster image for a tile. Implementations may
// block; the Manager calls them from worker goroutines.
type Provider interface {
	GetTile(t Tile) (image.Image, error)
}

// OSMProvider loads tiles from an OpenStreetMap-compatible tile server.
type OSMProvider struct {
	client    *http.Client
	url       string
	userAgent string
	log       zerolog.Logger
}

// OSMOption configures an OSMProvider.
type OSMOption func(*OSMProvider)

// WithURLTemplate overrides the tile URL template. The template must
// contain %d verbs for zoom, column, and row, in that order.
func WithURLTemplate(tpl string) OSMOption {
	return func(p *OSMProvider) { p.url = tpl }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) OSMOption {
	return func(p *OSMProvider) { p.client = c }
}

// WithOSMLogger sets the provider's logger. The default discards
// everything.
func WithOSMLogger(log zerolog.Logger) OSMOption {
	return func(p *OSMProvider) { p.log = log }
}

// NewOSMProvider creates a provider for the public OSM tile servers.
func NewOSMProvider(opts ...OSMOption) *OSMProvider {
	p := &OSMProvider{
		client:    &http.Client{},
		url:       "https://tile.openstreetmap.org/%d/%d/%d.png",
		userAgent: "gio-map/1.0 (+https://github.com/Manyrio/gio-map)",
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetTile implements Provider.
func (p *OSMProvider) GetTile(t Tile) (image.Image, error) {
	url := fmt.Sprintf(p.url, t.Z, t.X, t.Y)

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("tiles: build request for %d/%d/%d: %w", t.Z, t.X, t.Y, err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "image/webp,*/*")

	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Warn().Err(err).Str("url", url).Msg("tile fetch failed")
		return nil, fmt.Errorf("tiles: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.log.Warn().Int("status", resp.StatusCode).Str("url", url).Msg("tile fetch rejected")
		return nil, fmt.Errorf("tiles: fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tiles: decode %s: %w", url, err)
	}
	p.log.Debug().Str("url", url).Msg("tile loaded")
	return img, nil
}
