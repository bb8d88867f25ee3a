package layer

import (
	"fmt"
	"sync/atomic"

	"gioui.org/layout"
	"github.com/rs/zerolog"

	"github.com/Manyrio/gio-map/stream"
	"github.com/Manyrio/gio-map/viewport"
)

// Renderable is the positioned, drawable output of a resolved layer. It
// records drawing operations for the current viewport state onto the
// unrotated (possibly oversized) canvas; the map applies rotation once,
// outside all layers.
type Renderable interface {
	Layout(gtx layout.Context, state viewport.State) layout.Dimensions
}

// Disposer is implemented by renderables holding subscriptions or other
// resources that must be released when the layer leaves the stack.
type Disposer interface {
	Dispose()
}

// Resolver is the plugin capability consulted before the built-in layer
// kinds. Registered resolvers are tried in registration order; the
// first whose Supports returns true produces the renderable.
type Resolver interface {
	Supports(cfg Config) bool
	Create(cfg Config, vp *viewport.Viewport, rebuild *stream.Merged) (Renderable, error)
}

// UnresolvedTypeError reports a configuration no plugin and no built-in
// layer kind could resolve. A silently skipped layer would be missing
// content, so resolution fails loudly instead.
type UnresolvedTypeError struct {
	Config Config
}

func (e *UnresolvedTypeError) Error() string {
	return fmt.Sprintf("layer: no resolver for configuration %T (%+v)", e.Config, e.Config)
}

// Resolve maps a layer configuration to its renderable. Plugins win
// over built-ins, letting third parties override built-in layer kinds;
// the built-in set is closed and checked in a fixed order.
func Resolve(cfg Config, vp *viewport.Viewport, rebuild *stream.Merged, plugins []Resolver) (Renderable, error) {
	if r := pluginFor(plugins, cfg); r != nil {
		return r.Create(cfg, vp, rebuild)
	}
	switch c := cfg.(type) {
	case *TileConfig:
		return newTileLayer(c), nil
	case *MarkerConfig:
		return newMarkerLayer(c), nil
	case *PolylineConfig:
		return newPolylineLayer(c), nil
	case *PolygonConfig:
		return newPolygonLayer(c), nil
	case *CircleConfig:
		return newCircleLayer(c), nil
	case *GroupConfig:
		return newGroupLayer(c, vp, plugins)
	case *OverlayImageConfig:
		return newOverlayLayer(c), nil
	case *BackgroundConfig:
		return newBackgroundLayer(c), nil
	default:
		return nil, &UnresolvedTypeError{Config: cfg}
	}
}

// pluginFor returns the first registered plugin supporting cfg, or nil.
func pluginFor(plugins []Resolver, cfg Config) Resolver {
	for _, r := range plugins {
		if r.Supports(cfg) {
			return r
		}
	}
	return nil
}

// logger is the package logger for non-fatal rendering conditions, such
// as overlays skipped for invalid bounds. Silent by default.
var logger atomic.Pointer[zerolog.Logger]

func init() {
	nop := zerolog.Nop()
	logger.Store(&nop)
}

// SetLogger configures logging for the layer package. Safe for
// concurrent use.
func SetLogger(log zerolog.Logger) {
	logger.Store(&log)
}

func pkgLog() *zerolog.Logger { return logger.Load() }
