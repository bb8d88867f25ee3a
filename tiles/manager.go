package tiles

import (
	"context"
	"sync"

	"gioui.org/op/paint"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/Manyrio/gio-map/stream"
	"github.com/Manyrio/gio-map/tiles/worker"
)

const (
	defaultCacheSize = 512
	defaultWorkers   = 8
)

// Manager loads tiles through a Provider on a bounded worker pool and
// keeps the decoded, GPU-uploadable image ops in a bounded LRU cache.
// Every completed load emits one event on the Loaded stream, which the
// tile layer uses as its rebuild source.
type Manager struct {
	provider Provider
	cache    *lru.Cache[uint64, paint.ImageOp]
	pool     *worker.Pool
	loaded   *stream.Stream
	log      zerolog.Logger

	mu      sync.Mutex
	loading map[uint64]bool

	ctx    context.Context
	cancel context.CancelFunc
}

// ManagerOption configures a Manager.
type ManagerOption func(*managerConfig)

type managerConfig struct {
	cacheSize int
	workers   int
	log       zerolog.Logger
}

// WithCacheSize bounds the tile cache to n entries.
func WithCacheSize(n int) ManagerOption {
	return func(c *managerConfig) { c.cacheSize = n }
}

// WithWorkers sets the number of concurrent tile loads.
func WithWorkers(n int) ManagerOption {
	return func(c *managerConfig) { c.workers = n }
}

// WithLogger sets the manager's logger. The default discards everything.
func WithLogger(log zerolog.Logger) ManagerOption {
	return func(c *managerConfig) { c.log = log }
}

// NewManager creates a manager over the given provider.
func NewManager(provider Provider, opts ...ManagerOption) *Manager {
	cfg := managerConfig{
		cacheSize: defaultCacheSize,
		workers:   defaultWorkers,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.cacheSize < 1 {
		cfg.cacheSize = 1
	}

	cache, _ := lru.New[uint64, paint.ImageOp](cfg.cacheSize)
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		provider: provider,
		cache:    cache,
		pool:     worker.NewPool(cfg.workers),
		loaded:   stream.New(),
		log:      cfg.log,
		loading:  make(map[uint64]bool),
		ctx:      ctx,
		cancel:   cancel,
	}
	if combined, ok := provider.(*CombinedProvider); ok {
		combined.SetUpgradeCallback(m.onUpgrade)
	}
	return m
}

// Loaded returns the stream emitting once per completed background
// load. It is the natural rebuild source for a tile layer config.
func (m *Manager) Loaded() *stream.Stream { return m.loaded }

// Get returns the cached image op for a tile. On a miss it schedules a
// background load and reports ok=false; the Loaded stream emits when
// the tile arrives.
func (m *Manager) Get(t Tile) (paint.ImageOp, bool) {
	if op, ok := m.cache.Get(t.Key()); ok {
		return op, true
	}
	m.schedule(t)
	return paint.ImageOp{}, false
}

func (m *Manager) schedule(t Tile) {
	key := t.Key()
	m.mu.Lock()
	if m.loading[key] {
		m.mu.Unlock()
		return
	}
	m.loading[key] = true
	m.mu.Unlock()

	accepted := m.pool.Submit(worker.Task{
		Ctx: m.ctx,
		Work: func() error {
			defer func() {
				m.mu.Lock()
				delete(m.loading, key)
				m.mu.Unlock()
			}()

			img, err := m.provider.GetTile(t)
			if err != nil {
				m.log.Warn().Err(err).
					Int("z", t.Z).Int("x", t.X).Int("y", t.Y).
					Msg("tile load failed")
				return err
			}
			m.cache.Add(key, paint.NewImageOp(img))
			m.loaded.Emit()
			return nil
		},
	})
	if !accepted {
		m.mu.Lock()
		delete(m.loading, key)
		m.mu.Unlock()
	}
}

// onUpgrade invalidates fallback tiles once their primary version
// arrives, so the next frame re-requests them.
func (m *Manager) onUpgrade() {
	m.cache.Purge()
	m.loaded.Emit()
}

// Close stops the workers and closes the Loaded stream. Idempotent.
func (m *Manager) Close() {
	m.cancel()
	m.pool.Shutdown()
	m.loaded.Close()
}
