// Package frame implements the Frame Driver (spec §4.7): the render
// thread's per-frame entry point. Each call to Driver.Tick updates the
// view, runs every layer's traversal strategy, runs the cache's
// eviction pass, and hands the accumulated draw buffers back to the
// renderer collaborator (spec §1).
package frame

import (
	"github.com/GrainArc/vtsclient/geom"
	"github.com/GrainArc/vtsclient/model"
	"github.com/GrainArc/vtsclient/strategy"
	"github.com/GrainArc/vtsclient/traverse"
)

// Layer pairs a traversal root with the strategy it's driven by.
type Layer struct {
	Root     *traverse.Node
	Mode     strategy.Mode
	Opts     strategy.Options
}

// DrawLists is everything a frame hands to the renderer (spec §4.7
// step 5): opaque/transparent surface draws, infographic (geodata)
// draws, and collider-only draws, each already projected to the
// camera's viewProj for this frame.
type DrawLists struct {
	Opaque      []model.DrawTask
	Transparent []model.DrawTask
	Geodata     []model.DrawGeodataTask
	Colliders   []model.RenderColliderTask
	Credits     []string
	Stats       traverse.Statistics
}

// Driver owns the per-camera state across frames: the shared resource
// cache/meta-tile store (via ctx) and the set of layers it traverses
// every tick.
type Driver struct {
	Ctx    *traverse.Context
	Layers []Layer
}

// New builds a Driver over an already-constructed traverse.Context.
func New(ctx *traverse.Context) *Driver {
	return &Driver{Ctx: ctx}
}

// AddLayer registers a layer's traversal root and strategy.
func (d *Driver) AddLayer(root *traverse.Node, mode strategy.Mode, opts strategy.Options) {
	d.Layers = append(d.Layers, Layer{Root: root, Mode: mode, Opts: opts})
}

// Tick runs one frame: spec §4.7 steps 1-5, minus step 1's actual
// projection-matrix math (the renderer collaborator's job — this
// driver only threads viewProj/focus through to DrawTask.Mvp).
func (d *Driver) Tick(viewProj geom.Mat4, focusPosPhys geom.Vec3) DrawLists {
	d.Ctx.Cache.BeginTick()
	d.Ctx.Tick = d.Ctx.Cache.CurrentTick()
	d.Ctx.FocusPosPhys = focusPosPhys
	d.Ctx.Stats = traverse.Statistics{}

	var out DrawLists

	for _, layer := range d.Layers {
		collectLayer(d.Ctx, layer, viewProj, &out)
	}

	d.Ctx.Cache.Evict()

	out.Stats = d.Ctx.Stats
	return out
}

// collectLayer drives one layer's strategy and flattens every node it
// renders into the shared draw buffers.
func collectLayer(ctx *traverse.Context, layer Layer, viewProj geom.Mat4, out *DrawLists) {
	renderFn := func(n *traverse.Node) {
		appendNode(n, viewProj, out)
	}
	renderCoarserFn := func(n *traverse.Node) {
		// a child subtree rendered nothing this frame; draw whatever the
		// parent already determined in its place, if anything.
		if n.Parent != nil && n.Parent.Determined {
			appendNode(n.Parent, viewProj, out)
		}
	}
	strategy.Run(ctx, layer.Root, layer.Mode, layer.Opts, renderFn, renderCoarserFn)
}

func appendNode(n *traverse.Node, viewProj geom.Mat4, out *DrawLists) {
	for _, t := range n.Opaque {
		out.Opaque = append(out.Opaque, t.ToDrawTask(viewProj))
	}
	for _, t := range n.Transparent {
		out.Transparent = append(out.Transparent, t.ToDrawTask(viewProj))
	}
	out.Geodata = append(out.Geodata, n.Geodata...)
	out.Colliders = append(out.Colliders, n.Colliders...)
	out.Credits = append(out.Credits, n.Credits...)
}
