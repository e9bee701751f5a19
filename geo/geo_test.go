package geo

import (
	"math"
	"testing"

	"github.com/paulmach/orb"

	"github.com/GrainArc/vtsclient/geom"
)

func TestVisibleAlwaysTrueForUnknownBox(t *testing.T) {
	f := NewFrustum(orb.Point{0, 0}, 10)
	if !Visible(f, geom.Unknown(), orb.Bound{Min: orb.Point{1000, 1000}, Max: orb.Point{2000, 2000}}) {
		t.Fatalf("an unknown AABB must always be treated as visible")
	}
}

func TestVisibleRejectsNonIntersectingBound(t *testing.T) {
	f := NewFrustum(orb.Point{0, 0}, 10)
	box := geom.Box3{Min: geom.Vec3{X: -1, Y: -1, Z: -1}, Max: geom.Vec3{X: 1, Y: 1, Z: 1}}
	far := orb.Bound{Min: orb.Point{1000, 1000}, Max: orb.Point{1001, 1001}}
	if Visible(f, box, far) {
		t.Fatalf("a bound far outside the frustum should not be visible")
	}
}

func TestVisibleAcceptsIntersectingBound(t *testing.T) {
	f := NewFrustum(orb.Point{0, 0}, 10)
	box := geom.Box3{Min: geom.Vec3{X: -1, Y: -1, Z: -1}, Max: geom.Vec3{X: 1, Y: 1, Z: 1}}
	near := orb.Bound{Min: orb.Point{-1, -1}, Max: orb.Point{1, 1}}
	if !Visible(f, box, near) {
		t.Fatalf("a bound inside the frustum should be visible")
	}
}

func TestCoarsenessTestRejectsUnknownBox(t *testing.T) {
	if CoarsenessTest(geom.Unknown(), 1, geom.Vec3{}, 4, 1.5) {
		t.Fatalf("an unknown box can never pass the coarseness test")
	}
}

func TestCoarsenessTestPassesWhenTexelSmallRelativeToDistance(t *testing.T) {
	box := geom.Box3{Min: geom.Vec3{X: 100, Y: 100, Z: 100}, Max: geom.Vec3{X: 101, Y: 101, Z: 101}}
	if !CoarsenessTest(box, 0.01, geom.Vec3{}, 4, 1.5) {
		t.Fatalf("a tiny texel at a large distance should be coarse enough")
	}
}

func TestCoarsenessTestFailsWhenTexelLargeRelativeToDistance(t *testing.T) {
	box := geom.Box3{Min: geom.Vec3{X: 1, Y: 1, Z: 1}, Max: geom.Vec3{X: 1.01, Y: 1.01, Z: 1.01}}
	if CoarsenessTest(box, 100, geom.Vec3{}, 4, 1.5) {
		t.Fatalf("a huge texel close to the focus should fail coarseness")
	}
}

func TestDist2D(t *testing.T) {
	got := Dist2D(orb.Point{0, 0}, orb.Point{3, 4})
	if math.Abs(got-5) > 1e-9 {
		t.Fatalf("Dist2D = %v, want 5", got)
	}
}
