// Package geo supplies the small amount of concrete 2D geometry the
// traversal strategies need for view-frustum/coarseness sampling (spec
// §4.6): containment and distance checks over the navigation SRS,
// built on paulmach/orb instead of hand-rolled 2D math, the way the
// teacher's Tin/Transformer packages lean on orb for triangulation and
// reprojection.
package geo

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/GrainArc/vtsclient/geom"
)

// Frustum is a coarse view-frustum stand-in: a bounding box in
// navigation SRS plus the focus point, the minimum a strategy needs
// to answer "is this node roughly visible" without depending on the
// full projection-matrix math that belongs to the out-of-scope
// renderer collaborator (spec §1).
type Frustum struct {
	Bound orb.Bound
	Focus orb.Point
}

// NewFrustum builds a Frustum from a navigation-SRS focus point and a
// half-extent radius (e.g. the current view's far-plane distance).
func NewFrustum(focus orb.Point, halfExtent float64) Frustum {
	return Frustum{
		Bound: orb.Bound{
			Min: orb.Point{focus[0] - halfExtent, focus[1] - halfExtent},
			Max: orb.Point{focus[0] + halfExtent, focus[1] + halfExtent},
		},
		Focus: focus,
	}
}

// Visible implements the `visibility` primitive shared by every
// traversal strategy (spec §4.6): a node with an unknown AABB is
// always visible (conservative default), otherwise its navigation-SRS
// footprint must intersect the frustum bound.
func Visible(f Frustum, nodeBoxPhys geom.Box3, navBound orb.Bound) bool {
	if nodeBoxPhys.IsUnknown() {
		return true
	}
	return f.Bound.Intersects(navBound)
}

// CoarsenessTest implements spec §4.6's texel-to-pixel test: a node is
// "coarse enough" to render as-is (rather than needing a finer child)
// when its texel size divided by the distance from focus to the nearest
// point of the node box stays under maxTexelToPixelScale. The samples
// step that distance outward by 1/samples of itself each time; since
// the scale only shrinks with distance, the first (nearest) sample
// always decides the result.
func CoarsenessTest(nodeBoxPhys geom.Box3, texelSize float64, focus geom.Vec3, samples int, maxTexelToPixelScale float64) bool {
	if nodeBoxPhys.IsUnknown() || samples <= 0 {
		return false
	}
	dist := nodeBoxPhys.AxisDist(focus)
	if dist <= 0 {
		return false
	}
	worst := 0.0
	step := 1.0 / float64(samples)
	for i := 0; i < samples; i++ {
		t := step * float64(i)
		sampleDist := dist * (1 + t)
		scale := texelSize / sampleDist
		if scale > worst {
			worst = scale
		}
	}
	return worst <= maxTexelToPixelScale
}

// Dist2D is the planar distance between two navigation-SRS points,
// used by Fixed/DistanceBaseFixed's simpler (non-AABB) distance check.
func Dist2D(a, b orb.Point) float64 {
	dx, dy := a[0]-b[0], a[1]-b[1]
	return math.Hypot(dx, dy)
}
