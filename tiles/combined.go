package tiles

import (
	"fmt"
	"image"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultCombinedCacheSize bounds the decoded images a CombinedProvider
// retains for upgraded tiles.
const defaultCombinedCacheSize = 256

// CombinedProvider serves tiles from a primary provider, falling back to
// a secondary one when the primary fails. A failed primary tile is
// retried in the background; once it arrives the upgrade callback fires
// so the consumer can redraw with the better tile. Upgraded tiles are
// kept in a bounded LRU.
type CombinedProvider struct {
	primary  Provider
	fallback Provider
	cache    *lru.Cache[uint64, image.Image]

	mu        sync.Mutex
	loading   map[uint64]bool
	onUpgrade func()
}

// CombinedOption configures a CombinedProvider.
type CombinedOption func(*CombinedProvider)

// WithCombinedCacheSize bounds the number of primary tiles retained.
func WithCombinedCacheSize(n int) CombinedOption {
	return func(p *CombinedProvider) {
		p.cache, _ = lru.New[uint64, image.Image](n)
	}
}

// NewCombinedProvider combines a primary and a fallback provider.
func NewCombinedProvider(primary, fallback Provider, opts ...CombinedOption) *CombinedProvider {
	cache, _ := lru.New[uint64, image.Image](defaultCombinedCacheSize)
	p := &CombinedProvider{
		primary:  primary,
		fallback: fallback,
		cache:    cache,
		loading:  make(map[uint64]bool),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetUpgradeCallback registers the function called when a background
// primary load replaces a previously served fallback tile.
func (p *CombinedProvider) SetUpgradeCallback(fn func()) {
	p.mu.Lock()
	p.onUpgrade = fn
	p.mu.Unlock()
}

// GetTile implements Provider.
func (p *CombinedProvider) GetTile(t Tile) (image.Image, error) {
	key := t.Key()

	if cached, ok := p.cache.Get(key); ok {
		return cached, nil
	}

	img, err := p.primary.GetTile(t)
	if err == nil {
		p.cache.Add(key, img)
		return img, nil
	}

	fallbackImg, fbErr := p.fallback.GetTile(t)
	if fbErr != nil {
		return nil, fmt.Errorf("tiles: primary (%v) and fallback failed: %w", err, fbErr)
	}

	p.mu.Lock()
	alreadyLoading := p.loading[key]
	if !alreadyLoading {
		p.loading[key] = true
	}
	p.mu.Unlock()

	if !alreadyLoading {
		go p.upgrade(t, key)
	}
	return fallbackImg, nil
}

func (p *CombinedProvider) upgrade(t Tile, key uint64) {
	img, err := p.primary.GetTile(t)

	p.mu.Lock()
	delete(p.loading, key)
	fn := p.onUpgrade
	p.mu.Unlock()

	if err != nil {
		return
	}
	p.cache.Add(key, img)
	if fn != nil {
		fn()
	}
}
