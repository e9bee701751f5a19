package strategy

import (
	"testing"

	"github.com/GrainArc/vtsclient/geom"
	"github.com/GrainArc/vtsclient/metatile"
	"github.com/GrainArc/vtsclient/model"
	"github.com/GrainArc/vtsclient/rescache"
	"github.com/GrainArc/vtsclient/traverse"
)

// newReadyLeaf builds a single-node traversal tree (no children, meta
// already available, mesh+texture already Ready) whose AABB contains
// the focus point, so every strategy bottoms out and renders it on the
// very first call.
func newReadyLeaf(t *testing.T) (*traverse.Context, *traverse.Node) {
	t.Helper()
	cache := rescache.New(0, 0)
	store := metatile.New(cache)
	surface := model.SurfaceInfo{
		Name:        "base",
		UrlMeshTmpl: "http://x/mesh/{lod}/{x}/{y}",
		UrlTexTmpl:  "http://x/tex/{lod}/{x}/{y}/{sub}",
		UrlMetaTmpl: "http://x/meta/{lod}/{x}/{y}",
	}
	layer := &model.MapLayer{Name: "t", SurfaceStack: model.SurfaceStack{Surfaces: []model.SurfaceInfo{surface}}}
	root := traverse.NewRoot(layer)

	mt := &model.MetaTile{}
	node := mt.Get(root.Id)
	node.Geometry = true
	node.AabbPhys[0] = geom.Vec3{X: -1, Y: -1, Z: -1}
	node.AabbPhys[1] = geom.Vec3{X: 1, Y: 1, Z: 1}

	metaRes := cache.Get("http://x/meta/0/0/0", model.KindMetaTile)
	metaRes.MarkDownloading(0)
	metaRes.MarkDownloaded()
	metaRes.MarkDecodedOK(mt)

	meshRes := cache.Get(layer.SurfaceStack.Surfaces[0].UrlMesh(model.UrlVars{Id: root.Id}), model.KindMeshAggregate)
	meshRes.MarkDownloading(0)
	meshRes.MarkDownloaded()
	meshRes.MarkDecodedOK(&model.MeshAggregate{Submeshes: []model.MeshPart{{Mesh: 1}}})

	texRes := cache.Get(layer.SurfaceStack.Surfaces[0].UrlTex(model.UrlVars{Id: root.Id, Sub: 0}), model.KindTexture)
	texRes.MarkDownloading(0)
	texRes.MarkDownloaded()
	texRes.MarkDecodedOK(&model.Texture{})

	ctx := &traverse.Context{Cache: cache, MetaStore: store}
	cache.BeginTick()
	ctx.Tick = cache.CurrentTick()
	return ctx, root
}

func TestRunFlatRendersReadyLeaf(t *testing.T) {
	ctx, root := newReadyLeaf(t)
	var rendered []*traverse.Node
	RunFlat(ctx, root, func(n *traverse.Node) { rendered = append(rendered, n) })
	if len(rendered) != 1 || rendered[0] != root {
		t.Fatalf("RunFlat rendered = %v, want [root]", rendered)
	}
}

func TestRunHierarchicalRendersReadyLeaf(t *testing.T) {
	ctx, root := newReadyLeaf(t)
	var rendered []*traverse.Node
	RunHierarchical(ctx, root, false, func(n *traverse.Node) { rendered = append(rendered, n) })
	if len(rendered) != 1 || rendered[0] != root {
		t.Fatalf("RunHierarchical rendered = %v, want [root]", rendered)
	}
}

func TestRunStableRendersReadyLeaf(t *testing.T) {
	ctx, root := newReadyLeaf(t)
	var rendered []*traverse.Node
	ok := RunStable(ctx, root, 0, func(n *traverse.Node) { rendered = append(rendered, n) })
	if !ok {
		t.Fatalf("RunStable returned false for a fully-determined leaf")
	}
	if len(rendered) != 1 || rendered[0] != root {
		t.Fatalf("RunStable rendered = %v, want [root]", rendered)
	}
}

func TestRunBalancedRendersReadyLeaf(t *testing.T) {
	ctx, root := newReadyLeaf(t)
	var rendered []*traverse.Node
	ok := RunBalanced(ctx, root, false, func(n *traverse.Node) { rendered = append(rendered, n) }, nil)
	if !ok {
		t.Fatalf("RunBalanced returned false for a fully-determined leaf")
	}
	if len(rendered) != 1 || rendered[0] != root {
		t.Fatalf("RunBalanced rendered = %v, want [root]", rendered)
	}
}

func TestRunFixedRendersWithinDistance(t *testing.T) {
	ctx, root := newReadyLeaf(t)
	var rendered []*traverse.Node
	RunFixed(ctx, root, Options{FixedTraversalLod: 0, FixedTraversalDistance: 100}, func(n *traverse.Node) { rendered = append(rendered, n) })
	if len(rendered) != 1 || rendered[0] != root {
		t.Fatalf("RunFixed rendered = %v, want [root]", rendered)
	}
}

func TestRunFixedSkipsBeyondDistance(t *testing.T) {
	ctx, root := newReadyLeaf(t)
	ctx.FocusPosPhys = geom.Vec3{X: 1000, Y: 1000, Z: 1000}
	var rendered []*traverse.Node
	RunFixed(ctx, root, Options{FixedTraversalLod: 0, FixedTraversalDistance: 1}, func(n *traverse.Node) { rendered = append(rendered, n) })
	if len(rendered) != 0 {
		t.Fatalf("RunFixed should not render a node beyond FixedTraversalDistance")
	}
}

func TestRunDistanceBaseFixedRendersLeaf(t *testing.T) {
	ctx, root := newReadyLeaf(t)
	var rendered []*traverse.Node
	ok := RunDistanceBaseFixed(ctx, root, Options{FixedTraversalLod: 0, FixedTraversalDistance: 100}, func(n *traverse.Node) { rendered = append(rendered, n) })
	if !ok {
		t.Fatalf("RunDistanceBaseFixed returned false for a rendered leaf")
	}
	if len(rendered) != 1 || rendered[0] != root {
		t.Fatalf("RunDistanceBaseFixed rendered = %v, want [root]", rendered)
	}
}

func TestRunDispatchesByMode(t *testing.T) {
	ctx, root := newReadyLeaf(t)
	var rendered []*traverse.Node
	Run(ctx, root, Flat, Options{}, func(n *traverse.Node) { rendered = append(rendered, n) }, nil)
	if len(rendered) != 1 {
		t.Fatalf("Run(Flat) rendered %d nodes, want 1", len(rendered))
	}
}

func TestRunNoneModeIsNoop(t *testing.T) {
	ctx, root := newReadyLeaf(t)
	var rendered []*traverse.Node
	Run(ctx, root, None, Options{}, func(n *traverse.Node) { rendered = append(rendered, n) }, nil)
	if len(rendered) != 0 {
		t.Fatalf("Run(None) should never call renderFn")
	}
}
