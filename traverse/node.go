// Package traverse implements the Traverse Tree (spec §4.4): a
// per-camera lazy tree of TraverseNodes, one per tile ever visited.
//
// The original source models this as a Rust-style index arena to avoid
// cyclic ownership; Go's garbage collector has no trouble with a
// parent-pointer + owned-children tree, so this package uses plain
// pointers (see DESIGN.md "arena" entry).
package traverse

import (
	"github.com/GrainArc/vtsclient/geom"
	"github.com/GrainArc/vtsclient/model"
)

// Node is one tile's traversal state, materialised lazily the first
// time the camera visits it.
type Node struct {
	Id     model.TileId
	Layer  *model.MapLayer
	Parent *Node
	Childs [4]*Node // nil entries mean "not available / not created"

	Meta      *model.MetaNode
	Surface   *model.SurfaceInfo
	MetaTiles []*model.Resource // one per surface in the layer's stack

	Determined  bool
	Opaque      []model.RenderSurfaceTask
	Transparent []model.RenderSurfaceTask
	Geodata     []model.DrawGeodataTask
	Colliders   []model.RenderColliderTask
	Credits     []string

	// GeoExtent is this node's lon/lat bound, valid only for monolithic
	// geodata free-layer nodes (no metatile carries it for them). Root
	// takes it from FreeLayerInfo.Extent; each child gets its quadrant.
	GeoExtent [2][2]float64

	// Resources pins every resource this node's current draw lists
	// depend on; Determined is true only while all of them are Ready.
	Resources []*model.Resource

	Priority       float32
	LastAccessTick uint64
	LastRenderTick uint64
}

// NewRoot creates the root node for a layer.
func NewRoot(layer *model.MapLayer) *Node {
	return &Node{Id: model.TileId{Lod: 0, X: 0, Y: 0}, Layer: layer}
}

// HasChilds reports whether any child slot is populated.
func (n *Node) HasChilds() bool {
	for _, c := range n.Childs {
		if c != nil {
			return true
		}
	}
	return false
}

// RendersEmpty mirrors the original's assertion helper: true when this
// node has no draw tasks of any kind yet.
func (n *Node) RendersEmpty() bool {
	return len(n.Opaque) == 0 && len(n.Transparent) == 0 && len(n.Geodata) == 0 && len(n.Colliders) == 0
}

// ClearDraws drops this node's cached draw lists and unpins their
// resources, returning it to the not-yet-determined state. No caller
// in this repository invokes it.
func (n *Node) ClearDraws() {
	for _, r := range n.Resources {
		r.Unpin()
	}
	n.Resources = nil
	n.Opaque = nil
	n.Transparent = nil
	n.Geodata = nil
	n.Colliders = nil
	n.Determined = false
}

// pin adds r to the node's pin list, incrementing its refcount.
func (n *Node) pin(r *model.Resource) {
	if r == nil {
		return
	}
	n.Resources = append(n.Resources, r)
	r.Pin()
}

// AabbPhys returns the node's physical-SRS bounding box, or the
// "unknown" sentinel if meta hasn't been populated yet.
func (n *Node) AabbPhys() geom.Box3 {
	if n.Meta == nil {
		return geom.Unknown()
	}
	return geom.Box3{Min: n.Meta.AabbPhys[0], Max: n.Meta.AabbPhys[1]}
}
