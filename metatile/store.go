// Package metatile implements the Meta-Tile Store (spec §4.3): a
// specialised resource holding a 256x256 grid of MetaNodes, accessed
// by masking (lod,x,y) down to its containing block.
package metatile

import (
	"github.com/GrainArc/vtsclient/model"
	"github.com/GrainArc/vtsclient/rescache"
)

// Store resolves tile coordinates to MetaNodes through the cache,
// deriving the MetaTile URL by masking to the 256-aligned block.
type Store struct {
	cache *rescache.Cache
}

func New(cache *rescache.Cache) *Store {
	return &Store{cache: cache}
}

// Resource returns the (possibly still-loading) cache resource for the
// MetaTile covering id, given the surface's metatile URL template.
func (s *Store) Resource(surface *model.SurfaceInfo, id model.TileId) *model.Resource {
	block := model.BlockOrigin(id)
	url := surface.UrlMeta(model.UrlVars{Id: block})
	return s.cache.Get(url, model.KindMetaTile)
}

// GetNode returns the MetaNode for id if the covering MetaTile is
// already Ready, else (nil, false). Never blocks.
func (s *Store) GetNode(surface *model.SurfaceInfo, id model.TileId) (*model.MetaNode, bool) {
	r := s.Resource(surface, id)
	if r.Validity() != model.ValidityValid {
		return nil, false
	}
	mt, ok := r.Payload().(*model.MetaTile)
	if !ok || mt == nil {
		return nil, false
	}
	return mt.Get(id), true
}

// ChildMetaTileAllowed implements the descent protocol (spec §4.3):
// before fetching the child MetaTile for child index c of parent p,
// the parent's childFlags bit must be set, or the child's MetaTile
// must not be requested at all.
func ChildMetaTileAllowed(parent *model.MetaNode, childIndex uint32) bool {
	if parent == nil {
		return false
	}
	return parent.HasChild(childIndex)
}
