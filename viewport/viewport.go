// Package viewport holds the authoritative state of the visible map
// region: zoom, rotation, center, pixel size, and the derived pixel
// origin, together with the change stream every layer rebuilds from.
package viewport

import (
	"fmt"
	"sync"

	"github.com/Manyrio/gio-map/geo"
	"github.com/Manyrio/gio-map/stream"
)

// Viewport is the single source of truth for the visible region. One
// instance is shared per map: mutated by gesture and resize handlers,
// read by every layer. Every effective mutation emits exactly one change
// event; setting an already-current value emits nothing.
type Viewport struct {
	mu          sync.Mutex
	proj        geo.Projection
	center      geo.LatLng
	zoom        float64
	minZoom     float64
	maxZoom     float64
	rotation    float64
	size        geo.Point
	pixelOrigin geo.Point
	changes     *stream.Stream

	notifying bool
	queued    []func()
}

// State is a consistent snapshot of the viewport, taken under one lock
// so layers never observe a half-applied mutation.
type State struct {
	Proj        geo.Projection
	Center      geo.LatLng
	Zoom        float64
	Rotation    float64
	Size        geo.Point
	PixelOrigin geo.Point
}

// Option configures a Viewport.
type Option func(*Viewport)

// WithCenter sets the initial center.
func WithCenter(ll geo.LatLng) Option {
	return func(v *Viewport) { v.center = ll }
}

// WithZoom sets the initial zoom.
func WithZoom(zoom float64) Option {
	return func(v *Viewport) { v.zoom = zoom }
}

// WithZoomRange restricts the zoom range enforced by SetZoom.
func WithZoomRange(minZoom, maxZoom float64) Option {
	return func(v *Viewport) { v.minZoom, v.maxZoom = minZoom, maxZoom }
}

// WithRotation sets the initial rotation in degrees clockwise.
func WithRotation(deg float64) Option {
	return func(v *Viewport) { v.rotation = deg }
}

// New creates a viewport over the given projection.
func New(proj geo.Projection, opts ...Option) *Viewport {
	v := &Viewport{
		proj:    proj,
		zoom:    12,
		minZoom: 0,
		maxZoom: 19,
		changes: stream.New(),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.center = proj.Clamp(v.center)
	v.mu.Lock()
	v.recomputeOrigin()
	v.mu.Unlock()
	return v
}

// Changes returns the viewport's change stream. The stream is owned by
// the viewport; subscribers cancel their own subscriptions but must not
// close it.
func (v *Viewport) Changes() *stream.Stream { return v.changes }

// Projection returns the projection the viewport positions itself with.
func (v *Viewport) Projection() geo.Projection { return v.proj }

// Snapshot returns a consistent copy of the current state.
func (v *Viewport) Snapshot() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return State{
		Proj:        v.proj,
		Center:      v.center,
		Zoom:        v.zoom,
		Rotation:    v.rotation,
		Size:        v.size,
		PixelOrigin: v.pixelOrigin,
	}
}

// Zoom returns the current zoom level.
func (v *Viewport) Zoom() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.zoom
}

// Rotation returns the current rotation in degrees clockwise.
func (v *Viewport) Rotation() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rotation
}

// Center returns the current geographical center.
func (v *Viewport) Center() geo.LatLng {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.center
}

// Size returns the unrotated viewport size in pixels.
func (v *Viewport) Size() geo.Point {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.size
}

// PixelOrigin returns the world pixel coordinate of the viewport's
// top-left corner at the current zoom. It is always consistent with the
// last projection of the center: the center projects to
// PixelOrigin + Size/2.
func (v *Viewport) PixelOrigin() geo.Point {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pixelOrigin
}

// SetZoom sets the zoom level, clamped to the configured range.
func (v *Viewport) SetZoom(zoom float64) {
	v.mutate(func() bool {
		zoom = min(max(zoom, v.minZoom), v.maxZoom)
		if v.zoom == zoom {
			return false
		}
		v.zoom = zoom
		return true
	})
}

// SetRotation sets the rotation in degrees clockwise.
func (v *Viewport) SetRotation(deg float64) {
	v.mutate(func() bool {
		if v.rotation == deg {
			return false
		}
		v.rotation = deg
		return true
	})
}

// SetSize sets the unrotated viewport size in pixels.
func (v *Viewport) SetSize(size geo.Point) {
	v.mutate(func() bool {
		if v.size == size {
			return false
		}
		v.size = size
		return true
	})
}

// MoveTo recenters the viewport on the given coordinate. Coordinates
// outside the projection's domain are rejected and leave the viewport
// unchanged.
func (v *Viewport) MoveTo(center geo.LatLng) error {
	if _, err := v.proj.Project(center, 0); err != nil {
		return fmt.Errorf("viewport: move: %w", err)
	}
	v.mutate(func() bool {
		if v.center == center {
			return false
		}
		v.center = center
		return true
	})
	return nil
}

// PanBy shifts the viewport by a screen-pixel delta. The delta is
// expressed on the unrotated canvas. A pan that would carry the center
// outside the projection's domain stops at the domain edge; a pan that
// cannot move the center at all emits no change event.
func (v *Viewport) PanBy(delta geo.Point) {
	v.mutate(func() bool {
		if delta == (geo.Point{}) {
			return false
		}
		centerPx := v.pixelOrigin.Add(v.size.Div(2))
		center := v.proj.Clamp(v.proj.Unproject(centerPx.Add(delta), v.zoom))
		if v.center == center {
			return false
		}
		v.center = center
		return true
	})
}

// mutate runs apply under the lock and, when it reports an effective
// change, recomputes the pixel origin and emits exactly one change
// event. A mutation issued from inside a change callback is queued and
// applied after the current notification pass finishes, keeping
// emissions non-reentrant.
func (v *Viewport) mutate(apply func() bool) {
	v.mu.Lock()
	if v.notifying {
		v.queued = append(v.queued, func() { v.mutate(apply) })
		v.mu.Unlock()
		return
	}
	if !apply() {
		v.mu.Unlock()
		return
	}
	v.recomputeOrigin()
	v.notifying = true
	v.mu.Unlock()

	v.changes.Emit()

	v.mu.Lock()
	v.notifying = false
	queued := v.queued
	v.queued = nil
	v.mu.Unlock()
	for _, fn := range queued {
		fn()
	}
}

// recomputeOrigin rederives the pixel origin from center, zoom, and
// size. Caller holds v.mu. Every mutation path clamps or validates the
// center against the projection's domain, so a projection failure here
// means the Projection breaks its Clamp contract.
func (v *Viewport) recomputeOrigin() {
	centerPx, err := v.proj.Project(v.center, v.zoom)
	if err != nil {
		panic(fmt.Sprintf("viewport: projection rejected its own clamped center %v: %v", v.center, err))
	}
	v.pixelOrigin = centerPx.Sub(v.size.Div(2))
}
