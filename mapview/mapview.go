// Package mapview composes the map: it owns the viewport, resolves the
// layer stack through the dispatcher, coalesces rebuild streams, and
// wraps the composited layers in a single rotated, clipped frame.
package mapview

import (
	"fmt"
	"math"

	"gioui.org/f32"
	"gioui.org/io/event"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"github.com/rs/zerolog"

	"github.com/Manyrio/gio-map/geo"
	"github.com/Manyrio/gio-map/layer"
	"github.com/Manyrio/gio-map/stream"
	"github.com/Manyrio/gio-map/viewport"
)

// composedLayer is one resolved entry of the layer stack together with
// the merged rebuild stream the map owns for it.
type composedLayer struct {
	renderable layer.Renderable
	merged     *stream.Merged
	sub        *stream.Subscription
}

// Map is the composable map widget. It owns the single Viewport shared
// by all layers and rebuilds the layer stack on SetLayers.
type Map struct {
	vp      *viewport.Viewport
	plugins []layer.Resolver
	stack   []composedLayer
	refresh chan<- struct{}
	log     zerolog.Logger
	vpOpts  []viewport.Option

	dragging bool
	lastDrag f32.Point
}

// Option configures a Map.
type Option func(*Map)

// WithLogger sets the map's logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Map) { m.log = log }
}

// WithRefresh sets the channel the map signals when a layer needs to be
// redrawn. The host forwards it to the window's Invalidate. Sends never
// block; a pending signal is enough.
func WithRefresh(refresh chan<- struct{}) Option {
	return func(m *Map) { m.refresh = refresh }
}

// WithResolvers registers plugin resolvers, consulted before the
// built-in layer kinds in the given order.
func WithResolvers(resolvers ...layer.Resolver) Option {
	return func(m *Map) { m.plugins = append(m.plugins, resolvers...) }
}

// WithViewportOptions forwards options to the viewport the map creates.
func WithViewportOptions(opts ...viewport.Option) Option {
	return func(m *Map) { m.vpOpts = append(m.vpOpts, opts...) }
}

// New creates a map over the given projection.
func New(proj geo.Projection, opts ...Option) *Map {
	m := &Map{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(m)
	}
	m.vp = viewport.New(proj, m.vpOpts...)
	return m
}

// Viewport returns the map's viewport, the single shared instance every
// layer reads from.
func (m *Map) Viewport() *viewport.Viewport { return m.vp }

// SetLayers replaces the layer stack. Every merged rebuild stream of
// the previous stack is disposed before any new one is created, so a
// removed layer can never receive another rebuild event. Resolution
// failures abort the whole composition: a silently missing layer is
// worse than a loud error.
func (m *Map) SetLayers(configs ...layer.Config) error {
	m.disposeStack()

	for i, cfg := range configs {
		merged := stream.Merge(m.vp.Changes(), layer.RebuildSources(cfg)...)
		renderable, err := layer.Resolve(cfg, m.vp, merged, m.plugins)
		if err != nil {
			merged.Dispose()
			m.disposeStack()
			return fmt.Errorf("mapview: layer %d: %w", i, err)
		}
		sub := merged.Subscribe(m.requestFrame)
		m.stack = append(m.stack, composedLayer{
			renderable: renderable,
			merged:     merged,
			sub:        sub,
		})
	}
	m.log.Debug().Int("layers", len(configs)).Msg("layer stack rebuilt")
	m.requestFrame()
	return nil
}

// Close tears the map down: the stack is disposed and the viewport's
// change stream closed. The map must not be used afterwards.
func (m *Map) Close() {
	m.disposeStack()
	m.vp.Changes().Close()
}

func (m *Map) disposeStack() {
	for _, entry := range m.stack {
		entry.merged.Dispose()
		entry.sub.Cancel()
		if d, ok := entry.renderable.(layer.Disposer); ok {
			d.Dispose()
		}
	}
	m.stack = nil
}

func (m *Map) requestFrame() {
	if m.refresh == nil {
		return
	}
	select {
	case m.refresh <- struct{}{}:
	default:
	}
}

// Layout handles pointer input, synchronizes the viewport size, and
// draws the layer stack. Layers render onto an unrotated canvas sized
// by CoveringSize; the rotation is applied once, around the whole
// stack.
func (m *Map) Layout(gtx layout.Context) layout.Dimensions {
	viewSize := gtx.Constraints.Max
	m.vp.SetSize(geo.FromImagePoint(viewSize))
	m.handlePointer(gtx)

	st := m.vp.Snapshot()

	defer clip.Rect{Max: viewSize}.Push(gtx.Ops).Pop()
	event.Op(gtx.Ops, m)

	canvas := viewport.CoveringSize(st.Size, st.Rotation)
	overhang := canvas.Sub(st.Size).Div(2)

	if st.Rotation != 0 {
		center := f32.Pt(float32(st.Size.X/2), float32(st.Size.Y/2))
		rot := f32.Affine2D{}.Rotate(center, float32(st.Rotation*math.Pi/180))
		defer op.Affine(rot).Push(gtx.Ops).Pop()
	}
	if overhang != (geo.Point{}) {
		shift := f32.Affine2D{}.Offset(f32.Pt(float32(-overhang.X), float32(-overhang.Y)))
		defer op.Affine(shift).Push(gtx.Ops).Pop()
	}

	// Layers see the oversized canvas through an adjusted state: same
	// zoom and rotation, origin shifted to the canvas corner.
	draw := st
	draw.Size = canvas
	draw.PixelOrigin = st.PixelOrigin.Sub(overhang)

	for _, entry := range m.stack {
		entry.renderable.Layout(gtx, draw)
	}
	return layout.Dimensions{Size: viewSize}
}

// handlePointer translates drags into pans and scroll into zoom steps
// anchored at the cursor.
func (m *Map) handlePointer(gtx layout.Context) {
	for {
		ev, ok := gtx.Event(pointer.Filter{
			Target:  m,
			Kinds:   pointer.Scroll | pointer.Drag | pointer.Press | pointer.Release | pointer.Cancel,
			ScrollY: pointer.ScrollRange{Min: -10, Max: 10},
		})
		if !ok {
			break
		}
		pe, ok := ev.(pointer.Event)
		if !ok {
			continue
		}
		switch pe.Kind {
		case pointer.Press:
			m.dragging = true
			m.lastDrag = pe.Position
		case pointer.Drag:
			if !m.dragging {
				break
			}
			delta := pe.Position.Sub(m.lastDrag)
			m.lastDrag = pe.Position
			m.vp.PanBy(geo.Pt(-float64(delta.X), -float64(delta.Y)))
		case pointer.Scroll:
			step := 0.0
			if pe.Scroll.Y < 0 {
				step = 1
			} else if pe.Scroll.Y > 0 {
				step = -1
			}
			if step != 0 {
				m.zoomAround(pe.Position, step)
			}
		case pointer.Release, pointer.Cancel:
			m.dragging = false
		}
	}
}

// zoomAround steps the zoom while keeping the geographical point under
// the cursor fixed on screen.
func (m *Map) zoomAround(pos f32.Point, step float64) {
	st := m.vp.Snapshot()
	anchor := st.Proj.Unproject(
		st.PixelOrigin.Add(geo.Pt(float64(pos.X), float64(pos.Y))), st.Zoom)

	m.vp.SetZoom(st.Zoom + step)

	after := m.vp.Snapshot()
	if after.Zoom == st.Zoom {
		return
	}
	anchorPx, err := after.Proj.Project(anchor, after.Zoom)
	if err != nil {
		return
	}
	// Where the anchor landed versus where the cursor is.
	want := after.PixelOrigin.Add(geo.Pt(float64(pos.X), float64(pos.Y)))
	m.vp.PanBy(anchorPx.Sub(want))
}
