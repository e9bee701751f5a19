package traverse

import (
	"github.com/GrainArc/vtsclient/compositor"
	"github.com/GrainArc/vtsclient/geom"
	"github.com/GrainArc/vtsclient/model"
)

// DetermineDraws is travDetermineDraws (spec §4.4): fetches the mesh
// aggregate for the chosen surface (or the geodata feature tile for a
// free layer), composes bound layers per submesh via the compositor,
// and caches the resulting draw lists on the node. Returns true iff
// every resource it touched is Valid.
func DetermineDraws(ctx *Context, n *Node) bool {
	if n.Surface == nil || n.Determined {
		if n.Determined {
			TouchDraws(ctx, n)
		}
		return n.Determined
	}
	ctx.Stats.CurrentNodeDrawsUpdates++

	if n.Layer.IsGeodata() {
		return travDetermineDrawsGeodata(ctx, n)
	}
	return travDetermineDrawsSurface(ctx, n)
}

func travDetermineDrawsSurface(ctx *Context, n *Node) bool {
	if n.Meta == nil || n.Surface == nil {
		return false
	}

	vars := model.UrlVars{Id: n.Id, Local: n.Meta.LocalId}
	meshRes := ctx.Cache.Get(n.Surface.UrlMesh(vars), model.KindMeshAggregate)
	meshRes.UpdatePriority(n.Priority)
	ctx.Cache.Touch(meshRes)

	switch meshRes.Validity() {
	case model.Indeterminate:
		n.pin(meshRes)
		return false
	case model.ValidityInvalid:
		n.pin(meshRes)
		n.Opaque, n.Transparent, n.Colliders, n.Geodata = nil, nil, nil, nil
		n.Determined = true
		return true // permanently empty: no geometry to wait for
	}

	agg, ok := meshRes.Payload().(*model.MeshAggregate)
	if !ok || agg == nil {
		n.pin(meshRes)
		n.Determined = true
		return true
	}

	boundRefs := viewBoundLayers(n.Layer, n.Surface.Name)

	var opaque, transparent []model.RenderSurfaceTask
	var colliders []model.RenderColliderTask
	var pinned []*model.Resource
	var credits []string
	determined := true

	for i, part := range agg.Submeshes {
		model4 := geom.Mat4{M: part.NormToPhys}
		colliders = append(colliders, model.RenderColliderTask{Mesh: part.Mesh, Model: model4})

		refs := boundRefs
		if part.TextureLayer != "" {
			refs = append(append([]string{}, boundRefs...), part.TextureLayer)
		}

		if len(refs) == 0 || !part.ExternalUV {
			tex := ctx.Cache.Get(n.Surface.UrlTex(model.UrlVars{Id: n.Id, Local: n.Meta.LocalId, Sub: uint32(i)}), model.KindTexture)
			tex.UpdatePriority(n.Priority)
			ctx.Cache.Touch(tex)
			pinned = append(pinned, tex)
			if tex.Validity() == model.Indeterminate {
				determined = false
			}
			task := model.RenderSurfaceTask{
				Mesh: part.Mesh, TextureColor: tex, Model: model4,
				UvTrans: geom.Identity3(), ExternalUV: false, Color: geom.Vec4{X: 1, Y: 1, Z: 1, W: 1},
			}
			opaque = append(opaque, task)
			continue
		}

		res := compositor.Compose(ctx.Cache, n.Layer.BoundLayers, refs, n.Id, n.Meta.LocalId, uint32(i), n.Priority)
		pinned = append(pinned, res.Resources...)
		credits = append(credits, res.Credits...)
		if res.Validity == model.Indeterminate {
			determined = false
		}

		for _, l := range res.Opaque {
			opaque = append(opaque, boundLayerTask(part, model4, l))
		}
		for _, l := range res.Transparent {
			transparent = append(transparent, boundLayerTask(part, model4, l))
		}
		if res.EmitInternal {
			tex := ctx.Cache.Get(n.Surface.UrlTex(model.UrlVars{Id: n.Id, Local: n.Meta.LocalId, Sub: uint32(i)}), model.KindTexture)
			tex.UpdatePriority(n.Priority)
			ctx.Cache.Touch(tex)
			pinned = append(pinned, tex)
			if tex.Validity() == model.Indeterminate {
				determined = false
			}
			opaque = append(opaque, model.RenderSurfaceTask{
				Mesh: part.Mesh, TextureColor: tex, Model: model4,
				UvTrans: geom.Identity3(), ExternalUV: false, Color: geom.Vec4{X: 1, Y: 1, Z: 1, W: 1},
			})
		}
	}

	if !determined {
		for _, r := range pinned {
			n.pin(r)
		}
		n.pin(meshRes)
		return false
	}

	n.pin(meshRes)
	for _, r := range pinned {
		n.pin(r)
	}
	n.Opaque = opaque
	n.Transparent = transparent
	n.Colliders = colliders
	n.Geodata = nil
	n.Credits = append(n.Credits, credits...)
	n.Determined = true
	return true
}

func boundLayerTask(part model.MeshPart, model4 geom.Mat4, l compositor.Layer) model.RenderSurfaceTask {
	return model.RenderSurfaceTask{
		Mesh: part.Mesh, TextureColor: l.TextureColor, TextureMask: l.TextureMask, Model: model4,
		UvTrans: l.UvTrans, ExternalUV: true, BoundLayerId: l.Info.Id,
		Color: geom.Vec4{X: 1, Y: 1, Z: 1, W: 1},
	}
}

func travDetermineDrawsGeodata(ctx *Context, n *Node) bool {
	fl := n.Layer.FreeLayer
	if fl == nil {
		return true
	}

	styleRes := ctx.Cache.Get(fl.StyleUrl, model.KindGeodataStyle)
	styleRes.UpdatePriority(n.Priority)
	ctx.Cache.Touch(styleRes)

	vars := model.UrlVars{Id: n.Id}
	dataRes := ctx.Cache.Get(fl.UrlGeo(vars), model.KindGeodataFeatures)
	dataRes.UpdatePriority(n.Priority)
	ctx.Cache.Touch(dataRes)

	n.pin(styleRes)
	n.pin(dataRes)

	if styleRes.Validity() == model.Indeterminate || dataRes.Validity() == model.Indeterminate {
		return false
	}
	if styleRes.Validity() == model.ValidityInvalid || dataRes.Validity() == model.ValidityInvalid {
		n.Geodata, n.Opaque, n.Transparent, n.Colliders = nil, nil, nil, nil
		n.Determined = true
		return true
	}

	features, _ := dataRes.Payload().(*model.GeodataFeatures)
	style, _ := styleRes.Payload().(*model.GeodataStyle)

	n.Geodata = []model.DrawGeodataTask{{Geodata: struct {
		Features *model.GeodataFeatures
		Style    *model.GeodataStyle
	}{features, style}}}
	n.Opaque, n.Transparent, n.Colliders = nil, nil, nil
	n.Determined = true
	return true
}

// TouchDraws re-touches every resource pinned by this node's current
// draw lists, keeping them alive across this tick's eviction pass even
// when the node itself isn't re-determined this frame.
func TouchDraws(ctx *Context, n *Node) {
	for _, r := range n.Resources {
		ctx.Cache.Touch(r)
	}
}

// viewBoundLayers returns the view's ordered bound-layer id list for a
// named surface, or nil if the layer carries no view (every surface
// then renders with only its internal texture).
func viewBoundLayers(layer *model.MapLayer, surfaceName string) []string {
	if layer.View == nil {
		return nil
	}
	refs := layer.View.BoundLayersBySurface[surfaceName]
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.Id
	}
	return out
}
