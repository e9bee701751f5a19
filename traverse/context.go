package traverse

import (
	"github.com/GrainArc/vtsclient/geom"
	"github.com/GrainArc/vtsclient/metatile"
	"github.com/GrainArc/vtsclient/rescache"
)

// Statistics accumulates the counters spec §6 calls for in the Frame
// Driver's per-frame report.
type Statistics struct {
	MetaNodesTraversedTotal   uint64
	MetaNodesTraversedPerLod  [32]uint64
	CurrentNodeMetaUpdates    uint64
	CurrentNodeDrawsUpdates   uint64
}

// Context is the per-camera state shared by every traversal operation:
// the resource cache, the meta-tile store built on top of it, the
// current focus point and tick, and debug toggles from spec §6.
type Context struct {
	Cache     *rescache.Cache
	MetaStore *metatile.Store

	FocusPosPhys geom.Vec3
	Tick         uint64

	// DebugDisableMeta5 forces TravDistance to always use the coarse
	// AABB distance, skipping the surrogate-point refinement below
	// (spec §6 debug toggle).
	DebugDisableMeta5 bool

	// NavigationSamplesPerViewExtent, MaxTexelToPixelScale and MaxLodDiff
	// are runtime-configured traversal thresholds (spec §6), read by the
	// strategy package's coarseness/distance tests.
	NavigationSamplesPerViewExtent int
	MaxTexelToPixelScale           float64
	MaxLodDiff                     int

	Stats Statistics
}

// TravDistance is the distance used by the priority formula and the
// Fixed/DistanceBaseFixed strategies (spec §4.6). When a node's meta
// carries a surrogate point (a representative point on the actual
// geometry, more accurate than the AABB) and DebugDisableMeta5 isn't
// set, distance is measured to that point instead of to the nearest
// point of the AABB.
func (c *Context) TravDistance(n *Node, point geom.Vec3) float64 {
	if !c.DebugDisableMeta5 && n.Meta != nil && n.Meta.Surrogate != (geom.Vec3{}) {
		return n.Meta.Surrogate.Sub(point).Len()
	}
	return n.AabbPhys().AxisDist(point)
}

// UpdateNodePriority implements `priority = 1e6 / (dist+1)` (spec
// §4.6), falling back to the parent's priority before meta exists.
func (c *Context) UpdateNodePriority(n *Node) {
	switch {
	case n.Meta != nil:
		d := c.TravDistance(n, c.FocusPosPhys)
		n.Priority = float32(1e6 / (d + 1))
	case n.Parent != nil:
		n.Priority = n.Parent.Priority
	default:
		n.Priority = 0
	}
}
