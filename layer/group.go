package layer

import (
	"fmt"

	"gioui.org/layout"

	"github.com/Manyrio/gio-map/stream"
	"github.com/Manyrio/gio-map/viewport"
)

// RebuildSources returns every data-change stream reachable from the
// configuration, descending into groups. The map root merges them all
// into the layer's top-level rebuild stream so nested sources still
// invalidate the frame.
func RebuildSources(cfg Config) []*stream.Stream {
	var sources []*stream.Stream
	if s := cfg.RebuildSource(); s != nil {
		sources = append(sources, s)
	}
	if g, ok := cfg.(*GroupConfig); ok {
		for _, child := range g.Children {
			sources = append(sources, RebuildSources(child)...)
		}
	}
	return sources
}

// groupLayer composites child layers as one unit. Each child is
// resolved through the same dispatcher; children handed to a plugin get
// a merged rebuild stream created, and later disposed, by the group.
type groupLayer struct {
	children []Renderable
	merges   []*stream.Merged
}

func newGroupLayer(cfg *GroupConfig, vp *viewport.Viewport, plugins []Resolver) (*groupLayer, error) {
	g := &groupLayer{}
	for i, child := range cfg.Children {
		// Built-in children subscribe to their own sources; a merged
		// stream on top of that would hold live subscriptions with no
		// listener. Only plugin-resolved children get one.
		var merged *stream.Merged
		if pluginFor(plugins, child) != nil {
			merged = stream.Merge(vp.Changes(), child.RebuildSource())
		}
		renderable, err := Resolve(child, vp, merged, plugins)
		if err != nil {
			if merged != nil {
				merged.Dispose()
			}
			g.Dispose()
			return nil, fmt.Errorf("layer: group child %d: %w", i, err)
		}
		g.children = append(g.children, renderable)
		if merged != nil {
			g.merges = append(g.merges, merged)
		}
	}
	return g, nil
}

func (g *groupLayer) Layout(gtx layout.Context, st viewport.State) layout.Dimensions {
	for _, child := range g.children {
		child.Layout(gtx, st)
	}
	return layout.Dimensions{Size: st.Size.Round()}
}

// Dispose implements Disposer: the group owns its children's merged
// streams and severs them before the children themselves.
func (g *groupLayer) Dispose() {
	for _, m := range g.merges {
		m.Dispose()
	}
	for _, child := range g.children {
		if d, ok := child.(Disposer); ok {
			d.Dispose()
		}
	}
}
