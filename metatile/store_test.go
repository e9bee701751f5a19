package metatile

import (
	"testing"

	"github.com/GrainArc/vtsclient/model"
	"github.com/GrainArc/vtsclient/rescache"
)

func TestResourceUrlMasksToBlockOrigin(t *testing.T) {
	cache := rescache.New(0, 0)
	store := New(cache)
	surface := &model.SurfaceInfo{UrlMetaTmpl: "http://example.com/{lod}/{x}/{y}.meta"}

	a := store.Resource(surface, model.TileId{Lod: 10, X: 300, Y: 400})
	b := store.Resource(surface, model.TileId{Lod: 10, X: 301, Y: 450})

	if a != b {
		t.Fatalf("tiles sharing a 256-aligned block resolved to different resources")
	}
	if a.URL != "http://example.com/10/256/256.meta" {
		t.Fatalf("metatile url = %q, want block-origin-masked url", a.URL)
	}
}

func TestGetNodeFailsUntilMetaTileReady(t *testing.T) {
	cache := rescache.New(0, 0)
	store := New(cache)
	surface := &model.SurfaceInfo{UrlMetaTmpl: "http://example.com/{lod}/{x}/{y}.meta"}
	id := model.TileId{Lod: 0, X: 0, Y: 0}

	if _, ok := store.GetNode(surface, id); ok {
		t.Fatalf("GetNode succeeded before the metatile resource was Ready")
	}

	r := store.Resource(surface, id)
	mt := &model.MetaTile{Origin: model.BlockOrigin(id)}
	mt.Get(id).Watertight = true
	r.MarkDownloading(0)
	r.MarkDownloaded()
	r.MarkDecodedOK(mt)

	node, ok := store.GetNode(surface, id)
	if !ok {
		t.Fatalf("GetNode failed once the metatile resource is Ready")
	}
	if !node.Watertight {
		t.Fatalf("GetNode returned the wrong node")
	}
}

func TestChildMetaTileAllowed(t *testing.T) {
	parent := &model.MetaNode{ChildFlags: model.UlChild | model.LrChild}
	if !ChildMetaTileAllowed(parent, 0) { // UL
		t.Fatalf("UL child should be allowed")
	}
	if ChildMetaTileAllowed(parent, 1) { // UR
		t.Fatalf("UR child should not be allowed")
	}
	if ChildMetaTileAllowed(nil, 0) {
		t.Fatalf("nil parent should never allow descent")
	}
}
