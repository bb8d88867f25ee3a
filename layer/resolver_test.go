package layer

import (
	"errors"
	"testing"

	"gioui.org/layout"

	"github.com/Manyrio/gio-map/geo"
	"github.com/Manyrio/gio-map/stream"
	"github.com/Manyrio/gio-map/viewport"
)

type stubRenderable struct{}

func (stubRenderable) Layout(layout.Context, viewport.State) layout.Dimensions {
	return layout.Dimensions{}
}

// tileOverride claims tile configs, overriding the built-in resolver.
type tileOverride struct {
	created int
}

func (r *tileOverride) Supports(cfg Config) bool {
	_, ok := cfg.(*TileConfig)
	return ok
}

func (r *tileOverride) Create(Config, *viewport.Viewport, *stream.Merged) (Renderable, error) {
	r.created++
	return stubRenderable{}, nil
}

// customConfig is a config kind unknown to the built-ins.
type customConfig struct {
	RebuildConfig
	Name string
}

func newTestVp() *viewport.Viewport {
	return viewport.New(geo.WebMercator{})
}

func TestResolveBuiltins(t *testing.T) {
	vp := newTestVp()
	configs := []Config{
		&TileConfig{},
		&MarkerConfig{},
		&PolylineConfig{},
		&PolygonConfig{},
		&CircleConfig{},
		&GroupConfig{},
		&OverlayImageConfig{},
		&BackgroundConfig{},
	}
	for _, cfg := range configs {
		r, err := Resolve(cfg, vp, nil, nil)
		if err != nil {
			t.Fatalf("Resolve(%T): %v", cfg, err)
		}
		if r == nil {
			t.Fatalf("Resolve(%T) returned nil renderable", cfg)
		}
	}
}

func TestPluginWinsOverBuiltin(t *testing.T) {
	vp := newTestVp()
	plugin := &tileOverride{}

	r, err := Resolve(&TileConfig{}, vp, nil, []Resolver{plugin})
	if err != nil {
		t.Fatal(err)
	}
	if plugin.created != 1 {
		t.Fatalf("plugin created %d renderables, want 1", plugin.created)
	}
	if _, ok := r.(stubRenderable); !ok {
		t.Fatalf("got %T, want the plugin's renderable", r)
	}
}

func TestPluginsConsultedInRegistrationOrder(t *testing.T) {
	vp := newTestVp()
	first := &tileOverride{}
	second := &tileOverride{}

	if _, err := Resolve(&TileConfig{}, vp, nil, []Resolver{first, second}); err != nil {
		t.Fatal(err)
	}
	if first.created != 1 || second.created != 0 {
		t.Fatalf("creation counts first=%d second=%d, want 1 0", first.created, second.created)
	}
}

func TestUnresolvedConfigFailsFast(t *testing.T) {
	vp := newTestVp()
	cfg := &customConfig{Name: "heatmap"}

	_, err := Resolve(cfg, vp, nil, nil)
	var unresolved *UnresolvedTypeError
	if !errors.As(err, &unresolved) {
		t.Fatalf("err=%v, want UnresolvedTypeError", err)
	}
	if unresolved.Config != Config(cfg) {
		t.Fatal("error does not identify the offending configuration")
	}
}

func TestPluginResolvesCustomConfig(t *testing.T) {
	vp := newTestVp()
	plugin := resolverFunc(func(cfg Config) bool {
		_, ok := cfg.(*customConfig)
		return ok
	})

	if _, err := Resolve(&customConfig{}, vp, nil, []Resolver{plugin}); err != nil {
		t.Fatal(err)
	}
}

type resolverFunc func(Config) bool

func (f resolverFunc) Supports(cfg Config) bool { return f(cfg) }

func (resolverFunc) Create(Config, *viewport.Viewport, *stream.Merged) (Renderable, error) {
	return stubRenderable{}, nil
}

func TestGroupResolvesChildrenRecursively(t *testing.T) {
	vp := newTestVp()
	childRebuild := stream.New()
	cfg := &GroupConfig{
		Children: []Config{
			&BackgroundConfig{},
			&MarkerConfig{RebuildConfig: RebuildConfig{Rebuild: childRebuild}},
		},
	}

	r, err := Resolve(cfg, vp, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	g := r.(*groupLayer)
	if len(g.children) != 2 {
		t.Fatalf("group has %d children, want 2", len(g.children))
	}
	g.Dispose()
}

// mergeRecorder claims customConfig and records the rebuild stream it
// was handed.
type mergeRecorder struct {
	rebuild *stream.Merged
}

func (r *mergeRecorder) Supports(cfg Config) bool {
	_, ok := cfg.(*customConfig)
	return ok
}

func (r *mergeRecorder) Create(_ Config, _ *viewport.Viewport, rebuild *stream.Merged) (Renderable, error) {
	r.rebuild = rebuild
	return stubRenderable{}, nil
}

func TestGroupMergesOnlyForPluginChildren(t *testing.T) {
	vp := newTestVp()
	plugin := &mergeRecorder{}
	cfg := &GroupConfig{
		Children: []Config{
			// Built-in children subscribe to their sources themselves; the
			// group must not stack an unconsumed merge on top.
			&MarkerConfig{RebuildConfig: RebuildConfig{Rebuild: stream.New()}},
			&customConfig{},
		},
	}

	r, err := Resolve(cfg, vp, nil, []Resolver{plugin})
	if err != nil {
		t.Fatal(err)
	}
	g := r.(*groupLayer)
	if len(g.merges) != 1 {
		t.Fatalf("group owns %d merges, want 1 (plugin child only)", len(g.merges))
	}
	if plugin.rebuild == nil {
		t.Fatal("plugin child resolved without a merged rebuild stream")
	}

	// The plugin child's merge is live until the group disposes it.
	fired := false
	sub := plugin.rebuild.Subscribe(func() { fired = true })
	vp.SetZoom(3)
	if !fired {
		t.Fatal("plugin child's merge does not forward viewport changes")
	}
	sub.Cancel()
	g.Dispose()
}

func TestGroupFailsOnUnresolvableChild(t *testing.T) {
	vp := newTestVp()
	cfg := &GroupConfig{Children: []Config{&customConfig{}}}

	_, err := Resolve(cfg, vp, nil, nil)
	var unresolved *UnresolvedTypeError
	if !errors.As(err, &unresolved) {
		t.Fatalf("err=%v, want UnresolvedTypeError for the child", err)
	}
}

func TestMarkerLayerDisposeCancelsSubscription(t *testing.T) {
	rebuild := stream.New()
	l := newMarkerLayer(&MarkerConfig{RebuildConfig: RebuildConfig{Rebuild: rebuild}})

	l.mu.Lock()
	l.dirty = false
	l.mu.Unlock()

	rebuild.Emit()
	l.mu.Lock()
	dirty := l.dirty
	l.mu.Unlock()
	if !dirty {
		t.Fatal("rebuild event did not mark index dirty")
	}

	l.Dispose()
	l.Dispose() // idempotent

	l.mu.Lock()
	l.dirty = false
	l.mu.Unlock()
	rebuild.Emit()
	l.mu.Lock()
	dirty = l.dirty
	l.mu.Unlock()
	if dirty {
		t.Fatal("disposed layer still receives rebuild events")
	}
}
