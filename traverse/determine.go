package traverse

import (
	"github.com/GrainArc/vtsclient/geom"
	"github.com/GrainArc/vtsclient/model"
)

// DetermineMeta is travDetermineMeta (spec §4.4): populates n.Meta by
// resolving every surface's MetaTile in parallel, choosing the
// topmost/chosen surface, and materialising child slots according to
// availability. Returns false ("try again next frame") while any
// MetaTile is still Indeterminate.
func DetermineMeta(ctx *Context, n *Node, initAllChildren bool) bool {
	ctx.Stats.CurrentNodeMetaUpdates++

	if n.Layer.IsGeodata() && n.Layer.FreeLayer.Monolithic {
		return determineMonolithicGeodata(ctx, n)
	}

	surfaces := n.Layer.SurfaceStack.Surfaces
	if n.MetaTiles == nil {
		n.MetaTiles = make([]*model.Resource, len(surfaces))
		for i := range surfaces {
			if n.Parent != nil {
				p := n.Parent.MetaTiles[i]
				if p == nil {
					continue
				}
				if p.Validity() != model.ValidityValid {
					continue
				}
				pm, ok := p.Payload().(*model.MetaTile)
				if !ok || pm == nil {
					continue
				}
				parentNode := pm.Get(n.Id.Parent())
				if !parentNode.HasChild(n.Id.ChildIndex()) {
					continue // descent protocol: child metatile does not exist
				}
			}
			n.MetaTiles[i] = ctx.MetaStore.Resource(&surfaces[i], n.Id)
		}
	}

	determined := true
	for _, m := range n.MetaTiles {
		if m == nil {
			continue
		}
		m.UpdatePriority(n.Priority * 2)
		ctx.Cache.Touch(m)
		if m.Validity() == model.Indeterminate {
			determined = false
		}
	}
	if !determined {
		return false
	}

	var topmost *model.SurfaceInfo
	var chosen *model.MetaTile
	var childsAvailable [4]bool

	for i := range n.MetaTiles {
		m := n.MetaTiles[i]
		if m == nil || m.Validity() != model.ValidityValid {
			continue
		}
		mt, ok := m.Payload().(*model.MetaTile)
		if !ok || mt == nil {
			continue
		}
		node := mt.Get(n.Id)
		for j := uint32(0); j < 4; j++ {
			if node.HasChild(j) {
				childsAvailable[j] = true
			}
		}
		if topmost != nil {
			continue
		}
		if node.Alien != surfaces[i].Alien {
			continue
		}
		if node.Geometry {
			chosen = mt
			if n.Layer.TilesetStack != nil && node.SourceReference > 0 &&
				int(node.SourceReference) <= len(n.Layer.TilesetStack.Surfaces) {
				topmost = &n.Layer.TilesetStack.Surfaces[node.SourceReference-1]
			} else {
				topmost = &surfaces[i]
			}
		}
		if chosen == nil {
			chosen = mt
		}
	}
	if chosen == nil {
		return false // all surfaces failed to download
	}

	if topmost != nil {
		n.Surface = topmost
		n.Credits = append(n.Credits, chosen.Get(n.Id).Credits...)
	}

	n.Meta = chosen.Get(n.Id)

	if initAllChildren || childsAvailable[0] || childsAvailable[1] || childsAvailable[2] || childsAvailable[3] {
		children := n.Id.Children()
		for i := 0; i < 4; i++ {
			if initAllChildren || childsAvailable[i] {
				n.Childs[i] = &Node{Id: children[i], Layer: n.Layer, Parent: n}
			}
		}
	}

	ctx.UpdateNodePriority(n)
	return true
}

// maxMonolithicGeodataLod bounds how deep a monolithic geodata free
// layer can refine by extent-quadrant subdivision alone, since it has
// no metatile availability flags to stop the descent for it.
const maxMonolithicGeodataLod = 24

// determineMonolithicGeodata synthesises the MetaNode for a free-layer
// geodata source that has no metatiles at all (spec §4.4, "monolithic
// geodata" short-circuit). It has no physical-SRS bounding box to test
// against a frustum (lon/lat to physical-SRS reprojection is the
// math/coordinate collaborator's job, same as everywhere else geom
// stands in for it — see geom's package doc), so children are
// materialised by straightforward extent-quadrant containment instead
// of coarseness: every node below the lod cap gets all four children,
// and the strategies' own visible()/coarsenessTest() treat the node's
// unknown physical box as "always visible, never coarse enough" and
// fall through to HasChilds() to decide when to stop.
func determineMonolithicGeodata(ctx *Context, n *Node) bool {
	fl := n.Layer.FreeLayer
	extent := n.GeoExtent
	if n.Parent == nil {
		extent = fl.Extent
	}
	n.GeoExtent = extent

	meta := &model.MetaNode{Geometry: true}
	unk := geom.Unknown()
	meta.AabbPhys[0], meta.AabbPhys[1] = unk.Min, unk.Max
	n.Meta = meta
	n.Surface = &n.Layer.SurfaceStack.Surfaces[0]

	if n.Id.Lod < maxMonolithicGeodataLod {
		children := n.Id.Children()
		midLon := (extent[0][0] + extent[1][0]) / 2
		midLat := (extent[0][1] + extent[1][1]) / 2
		quadrants := [4][2][2]float64{
			{{extent[0][0], extent[0][1]}, {midLon, midLat}},
			{{midLon, extent[0][1]}, {extent[1][0], midLat}},
			{{extent[0][0], midLat}, {midLon, extent[1][1]}},
			{{midLon, midLat}, {extent[1][0], extent[1][1]}},
		}
		for i := range n.Childs {
			n.Childs[i] = &Node{Id: children[i], Layer: n.Layer, Parent: n, GeoExtent: quadrants[i]}
		}
	}

	ctx.UpdateNodePriority(n)
	return true
}

// TravInit is travInit (spec §4.4/§4.6): ensures meta is populated,
// updates priority and statistics, touching every already-resolved
// metatile so it survives this frame's eviction pass.
func TravInit(ctx *Context, n *Node, initAllChildren bool) bool {
	ctx.Stats.MetaNodesTraversedTotal++
	if int(n.Id.Lod) < len(ctx.Stats.MetaNodesTraversedPerLod) {
		ctx.Stats.MetaNodesTraversedPerLod[n.Id.Lod]++
	}

	n.LastAccessTick = ctx.Tick
	ctx.UpdateNodePriority(n)

	if n.Meta == nil {
		for _, m := range n.MetaTiles {
			if m != nil {
				ctx.Cache.Touch(m)
			}
		}
		return DetermineMeta(ctx, n, initAllChildren)
	}
	return true
}
