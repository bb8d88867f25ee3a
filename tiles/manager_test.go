package tiles

import (
	"errors"
	"image"
	"sync/atomic"
	"testing"
	"time"
)

type stubProvider struct {
	calls atomic.Int64
	err   error
}

func (p *stubProvider) GetTile(t Tile) (image.Image, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}

func TestManagerLoadsOnMiss(t *testing.T) {
	provider := &stubProvider{}
	m := NewManager(provider, WithWorkers(1), WithCacheSize(8))
	defer m.Close()

	loaded := make(chan struct{}, 1)
	m.Loaded().Subscribe(func() {
		select {
		case loaded <- struct{}{}:
		default:
		}
	})

	tile := Tile{X: 1, Y: 2, Z: 3}
	if _, ok := m.Get(tile); ok {
		t.Fatal("cold cache reported a hit")
	}

	select {
	case <-loaded:
	case <-time.After(2 * time.Second):
		t.Fatal("tile never loaded")
	}

	if _, ok := m.Get(tile); !ok {
		t.Fatal("tile not cached after load")
	}
}

func TestManagerDeduplicatesInflightLoads(t *testing.T) {
	provider := &stubProvider{}
	m := NewManager(provider, WithWorkers(1))
	defer m.Close()

	tile := Tile{X: 0, Y: 0, Z: 0}
	loaded := make(chan struct{}, 1)
	m.Loaded().Subscribe(func() {
		select {
		case loaded <- struct{}{}:
		default:
		}
	})

	// Repeated misses for the same tile must schedule one load.
	m.Get(tile)
	m.Get(tile)
	m.Get(tile)

	select {
	case <-loaded:
	case <-time.After(2 * time.Second):
		t.Fatal("tile never loaded")
	}
	if n := provider.calls.Load(); n != 1 {
		t.Fatalf("provider called %d times, want 1", n)
	}
}

func TestCombinedProviderFallsBack(t *testing.T) {
	primary := &stubProvider{err: errors.New("offline")}
	fallback := &stubProvider{}
	p := NewCombinedProvider(primary, fallback)

	img, err := p.GetTile(Tile{X: 0, Y: 0, Z: 1})
	if err != nil {
		t.Fatalf("fallback path failed: %v", err)
	}
	if img == nil {
		t.Fatal("nil image from fallback")
	}
	if fallback.calls.Load() != 1 {
		t.Fatalf("fallback called %d times, want 1", fallback.calls.Load())
	}
}

func TestCombinedProviderCacheIsBounded(t *testing.T) {
	primary := &stubProvider{}
	fallback := &stubProvider{}
	p := NewCombinedProvider(primary, fallback, WithCombinedCacheSize(2))

	first := Tile{X: 0, Y: 0, Z: 4}
	for _, tile := range []Tile{first, {X: 1, Y: 0, Z: 4}, {X: 2, Y: 0, Z: 4}} {
		if _, err := p.GetTile(tile); err != nil {
			t.Fatal(err)
		}
	}
	if n := primary.calls.Load(); n != 3 {
		t.Fatalf("primary called %d times for three distinct tiles, want 3", n)
	}

	// With a capacity of 2, the third tile evicted the first: fetching
	// it again goes back to the primary instead of the cache.
	if _, err := p.GetTile(first); err != nil {
		t.Fatal(err)
	}
	if n := primary.calls.Load(); n != 4 {
		t.Fatalf("primary called %d times after eviction, want 4", n)
	}

	// The two most recent tiles are still held.
	if _, err := p.GetTile(Tile{X: 2, Y: 0, Z: 4}); err != nil {
		t.Fatal(err)
	}
	if n := primary.calls.Load(); n != 4 {
		t.Fatalf("cached tile hit the primary, calls=%d", n)
	}
}

// flakyProvider fails its first call and succeeds afterwards, modeling
// a tile server that comes back between the direct attempt and the
// background retry.
type flakyProvider struct {
	calls atomic.Int64
}

func (p *flakyProvider) GetTile(t Tile) (image.Image, error) {
	if p.calls.Add(1) == 1 {
		return nil, errors.New("offline")
	}
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}

func TestCombinedProviderUpgrades(t *testing.T) {
	primary := &flakyProvider{}
	fallback := &stubProvider{}
	p := NewCombinedProvider(primary, fallback)

	upgraded := make(chan struct{}, 1)
	p.SetUpgradeCallback(func() {
		select {
		case upgraded <- struct{}{}:
		default:
		}
	})

	// First call: primary fails, fallback serves, and the background
	// retry succeeds and fires the upgrade callback.
	if _, err := p.GetTile(Tile{X: 0, Y: 0, Z: 1}); err != nil {
		t.Fatal(err)
	}
	select {
	case <-upgraded:
	case <-time.After(2 * time.Second):
		t.Fatal("upgrade callback never fired")
	}
}
