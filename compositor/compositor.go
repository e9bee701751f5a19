// Package compositor implements the Bound-Layer Compositor (spec
// §4.5): given a mesh submesh, it chooses and orders the bound-layer
// textures, verifies their metatile availability flags, and splits
// them into opaque and transparent render lists.
package compositor

import (
	"github.com/GrainArc/vtsclient/geom"
	"github.com/GrainArc/vtsclient/model"
	"github.com/GrainArc/vtsclient/rescache"
)

// Layer is one resolved bound-layer entry ready to become a draw task.
type Layer struct {
	Info         *model.BoundLayerInfo
	TextureColor *model.Resource
	TextureMask  *model.Resource // nil if this layer carries no mask
	BoundMeta    *model.Resource
	UvTrans      geom.Mat3
	Watertight   bool
}

// Result is the compositor's output for one submesh.
type Result struct {
	Opaque       []Layer
	Transparent  []Layer
	EmitInternal bool // whether the surface's own internal texture should also draw
	Resources    []*model.Resource
	Credits      []string
	Validity     model.Validity
}

type resolved struct {
	info       *model.BoundLayerInfo
	texColor   *model.Resource
	texMask    *model.Resource
	hasMask    bool
	boundMeta  *model.Resource
	uv         geom.Mat3
	transparent bool
	watertight bool
}

// Compose resolves refs (the view's ordered bound-layer list for this
// surface) against tile/localId/subMeshIndex, per spec §4.5. It never
// blocks: every referenced resource is fetched through cache and its
// current Validity observed as-is.
func Compose(cache *rescache.Cache, boundLayers map[string]*model.BoundLayerInfo, refs []string, tile model.TileId, local model.LocalId, subMeshIndex uint32, priority float32) Result {
	res := Result{Validity: model.ValidityValid}

	var entries []resolved
	for _, id := range refs {
		info := boundLayers[id]
		if info == nil {
			continue
		}
		e, ok := resolveOne(cache, info, tile, local, subMeshIndex, priority, &res)
		if !ok {
			continue
		}
		entries = append(entries, e)
	}

	if res.Validity == model.ValidityInvalid {
		return res
	}

	// anyOpaqueLayer seeds the depth-buffer-writing-opaque-layer guarantee:
	// true as soon as some layer is already opaque and unmasked, so no
	// masked layer needs promoting to stand in for it (spec §4.5).
	anyOpaqueLayer := false
	for _, e := range entries {
		if !e.transparent && !e.hasMask {
			anyOpaqueLayer = true
		}
	}

	allTransparent := true
	for _, e := range entries {
		res.Resources = append(res.Resources, e.texColor)
		if e.boundMeta != nil {
			res.Resources = append(res.Resources, e.boundMeta)
		}
		if e.texMask != nil {
			res.Resources = append(res.Resources, e.texMask)
		}
		for c := range e.info.Credits {
			res.Credits = append(res.Credits, c)
		}
		if e.texColor.Validity() == model.Indeterminate ||
			(e.boundMeta != nil && e.boundMeta.Validity() == model.Indeterminate) ||
			(e.texMask != nil && e.texMask.Validity() == model.Indeterminate) {
			res.Validity = model.Indeterminate
		}

		// layers with a texture mask render as transparencies for
		// consistent ordering, unless no opaque layer exists yet in the
		// stack — then this layer becomes that guarantee and stays opaque.
		renderTransparent := e.transparent
		if !renderTransparent && e.hasMask {
			if anyOpaqueLayer {
				renderTransparent = true
			} else {
				anyOpaqueLayer = true
			}
		}

		l := Layer{Info: e.info, TextureColor: e.texColor, TextureMask: e.texMask, BoundMeta: e.boundMeta, UvTrans: e.uv, Watertight: e.watertight}
		if renderTransparent {
			res.Transparent = append(res.Transparent, l)
		} else {
			res.Opaque = append(res.Opaque, l)
		}
		allTransparent = allTransparent && e.transparent
	}

	// a fully transparent stack (or an empty one) still needs the
	// surface's own internal texture drawn underneath it.
	res.EmitInternal = allTransparent
	return res
}

// resolveOne resolves a single bound-layer reference: ancestor
// substitution for depth beyond the layer's lod range, the range
// reject, the optional availability metatile lookup, and the color
// texture fetch. ok is false when the layer contributes nothing this
// call (out of range, unavailable, or still pending with the overall
// result already folded into res.Validity).
func resolveOne(cache *rescache.Cache, info *model.BoundLayerInfo, tile model.TileId, local model.LocalId, subMeshIndex uint32, priority float32, res *Result) (resolved, bool) {
	if tile.Lod < info.LodRange.Min {
		return resolved{}, false
	}

	shift := uint(tile.Lod - info.LodRange.Min)
	rx, ry := tile.X>>shift, tile.Y>>shift
	if !info.TileRange.Contains(rx, ry) {
		return resolved{}, false
	}

	depth := 0
	if tile.Lod > info.LodRange.Max {
		depth = int(tile.Lod - info.LodRange.Max)
	}

	effTile := tile
	uv := geom.Identity3()
	if depth > 0 {
		effTile = model.TileId{Lod: tile.Lod - uint8(depth), X: tile.X >> uint(depth), Y: tile.Y >> uint(depth)}
		scale := 1.0 / float64(uint64(1)<<uint(depth))
		mask := (uint64(1) << uint(depth)) - 1
		tx := scale * float64(uint64(tile.X)&mask)
		ty := 1 - scale - scale*float64(uint64(tile.Y)&mask)
		uv = geom.UV(scale, tx, ty)
	}

	vars := model.UrlVars{Id: effTile, Local: local, Sub: subMeshIndex}

	var boundMeta *model.Resource
	watertight := false
	if info.MetaUrlTmpl != "" {
		boundMeta = cache.Get(info.UrlMeta(vars), model.KindBoundLayerConfig)
		boundMeta.UpdatePriority(priority)
		cache.Touch(boundMeta)

		switch boundMeta.Validity() {
		case model.Indeterminate:
			res.Validity = model.Indeterminate
			return resolved{}, false
		case model.ValidityInvalid:
			return resolved{}, false
		}

		bmt, ok := boundMeta.Payload().(*model.BoundLayerMetaTile)
		if !ok || bmt == nil || !bmt.Available(effTile.X, effTile.Y) {
			return resolved{}, false
		}
		watertight = bmt.Watertight(effTile.X, effTile.Y)
	}

	texColor := cache.Get(info.UrlTex(vars), model.KindTexture)
	texColor.UpdatePriority(priority)
	cache.Touch(texColor)

	var texMask *model.Resource
	hasMask := info.MaskUrlTmpl != ""
	if hasMask {
		texMask = cache.Get(info.UrlMask(vars), model.KindTexture)
		texMask.UpdatePriority(priority)
		cache.Touch(texMask)
	}

	transparent := info.IsTransparent
	if info.Alpha != nil && *info.Alpha < 1 {
		transparent = true
	}

	return resolved{
		info: info, texColor: texColor, texMask: texMask, hasMask: hasMask, boundMeta: boundMeta,
		uv: uv, transparent: transparent, watertight: watertight,
	}, true
}
