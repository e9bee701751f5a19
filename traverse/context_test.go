package traverse

import (
	"testing"

	"github.com/GrainArc/vtsclient/geom"
	"github.com/GrainArc/vtsclient/model"
)

func TestTravDistanceUsesSurrogateWhenAvailable(t *testing.T) {
	ctx := &Context{}
	n := &Node{Meta: &model.MetaNode{
		AabbPhys:  [2]geom.Vec3{{X: 0, Y: 0, Z: 0}, {X: 100, Y: 100, Z: 100}},
		Surrogate: geom.Vec3{X: 50, Y: 50, Z: 50},
	}}

	point := geom.Vec3{X: 50, Y: 50, Z: 60}
	got := ctx.TravDistance(n, point)
	if want := 10.0; got != want {
		t.Fatalf("TravDistance with a surrogate = %v, want %v (distance to surrogate, not AABB corner)", got, want)
	}
}

func TestTravDistanceFallsBackToAabbWhenSurrogateIsZero(t *testing.T) {
	ctx := &Context{}
	n := &Node{Meta: &model.MetaNode{
		AabbPhys: [2]geom.Vec3{{X: 0, Y: 0, Z: 0}, {X: 100, Y: 100, Z: 100}},
	}}

	point := geom.Vec3{X: 50, Y: 50, Z: 150}
	got := ctx.TravDistance(n, point)
	if want := 50.0; got != want {
		t.Fatalf("TravDistance without a surrogate = %v, want %v (AABB axis distance)", got, want)
	}
}

func TestTravDistanceDebugDisableMeta5ForcesAabb(t *testing.T) {
	ctx := &Context{DebugDisableMeta5: true}
	n := &Node{Meta: &model.MetaNode{
		AabbPhys:  [2]geom.Vec3{{X: 0, Y: 0, Z: 0}, {X: 100, Y: 100, Z: 100}},
		Surrogate: geom.Vec3{X: 50, Y: 50, Z: 50},
	}}

	point := geom.Vec3{X: 50, Y: 50, Z: 60}
	got := ctx.TravDistance(n, point)
	if want := 0.0; got != want {
		t.Fatalf("TravDistance with DebugDisableMeta5 = %v, want %v (AABB distance, surrogate ignored)", got, want)
	}
}

func TestTravDistanceNilMetaUsesUnknownAabb(t *testing.T) {
	ctx := &Context{}
	n := &Node{}

	got := ctx.TravDistance(n, geom.Vec3{X: 1, Y: 2, Z: 3})
	if got != 0 {
		t.Fatalf("TravDistance against an unbounded (unknown) box should be 0 (point always inside), got %v", got)
	}
}
