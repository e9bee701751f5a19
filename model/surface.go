package model

import (
	"strconv"
	"strings"
)

// UrlVars is the set of URL-template substitution variables (spec §6).
type UrlVars struct {
	Id    TileId
	Local LocalId
	Sub   uint32
}

// Expand substitutes {lod} {x} {y} {loclod} {locx} {locy} {sub} into a
// URL template, the same ReplaceAll-chain style as the teacher's
// WebTileDownloader.buildTileURL.
func (v UrlVars) Expand(tmpl string) string {
	r := tmpl
	r = strings.ReplaceAll(r, "{lod}", strconv.Itoa(int(v.Id.Lod)))
	r = strings.ReplaceAll(r, "{x}", strconv.FormatUint(uint64(v.Id.X), 10))
	r = strings.ReplaceAll(r, "{y}", strconv.FormatUint(uint64(v.Id.Y), 10))
	r = strings.ReplaceAll(r, "{loclod}", strconv.Itoa(int(v.Local.Lod)))
	r = strings.ReplaceAll(r, "{locx}", strconv.FormatUint(uint64(v.Local.X), 10))
	r = strings.ReplaceAll(r, "{locy}", strconv.FormatUint(uint64(v.Local.Y), 10))
	r = strings.ReplaceAll(r, "{sub}", strconv.FormatUint(uint64(v.Sub), 10))
	return r
}

// SurfaceInfo is one entry of a SurfaceStack: URL templates for mesh,
// internal texture, metatile and geodata, plus the alien flag and
// whether this entry is a precomputed "glue" of several base surfaces.
type SurfaceInfo struct {
	Name         string
	UrlMeshTmpl  string
	UrlTexTmpl   string
	UrlMetaTmpl  string
	UrlGeoTmpl   string
	Alien        bool
	IsGlue       bool
	GlueOf       []string
}

func (s *SurfaceInfo) UrlMesh(v UrlVars) string { return v.Expand(s.UrlMeshTmpl) }
func (s *SurfaceInfo) UrlTex(v UrlVars) string  { return v.Expand(s.UrlTexTmpl) }
func (s *SurfaceInfo) UrlMeta(v UrlVars) string { return v.Expand(s.UrlMetaTmpl) }
func (s *SurfaceInfo) UrlGeo(v UrlVars) string  { return v.Expand(s.UrlGeoTmpl) }

// SurfaceStack is an ordered list of surfaces; index 0 is topmost.
type SurfaceStack struct {
	Surfaces []SurfaceInfo
}

// LodRange is an inclusive [Min,Max] lod band.
type LodRange struct {
	Min, Max uint8
}

// TileRange is an inclusive tile-index rectangle at the range's own lod.
type TileRange struct {
	MinX, MinY, MaxX, MaxY uint32
}

// Contains reports whether (x,y) falls within the range.
func (tr TileRange) Contains(x, y uint32) bool {
	return x >= tr.MinX && x <= tr.MaxX && y >= tr.MinY && y <= tr.MaxY
}

// BoundLayerInfo describes a named bound (texture) layer, as configured
// in the map config's bound-layer set (spec §6).
type BoundLayerInfo struct {
	Id          string
	LodRange    LodRange
	TileRange   TileRange
	MetaUrlTmpl string // empty if this layer has no availability metatile
	UrlTmpl     string
	Credits     map[string]struct{}
	IsTransparent bool
	Alpha       *float32 // nil means unset
	// MaskUrlTmpl is this layer's texture-mask URL template, empty if it
	// carries no mask. A masked layer's transparent pixels get cut out
	// of the depth-buffer-writing opaque guarantee (spec §4.5).
	MaskUrlTmpl string
}

func (b *BoundLayerInfo) UrlMeta(v UrlVars) string {
	if b.MetaUrlTmpl == "" {
		return ""
	}
	return v.Expand(b.MetaUrlTmpl)
}

func (b *BoundLayerInfo) UrlTex(v UrlVars) string { return v.Expand(b.UrlTmpl) }

func (b *BoundLayerInfo) UrlMask(v UrlVars) string {
	if b.MaskUrlTmpl == "" {
		return ""
	}
	return v.Expand(b.MaskUrlTmpl)
}

// BoundLayerRef is one entry of a view's per-surface ordered
// bound-layer list; it carries only the bound layer id.
type BoundLayerRef struct {
	Id string
}

// ViewInfo selects a subset of surfaces and, per surface, an ordered
// bound-layer list.
type ViewInfo struct {
	Name           string
	Surfaces       []string
	BoundLayersBySurface map[string][]BoundLayerRef
}

// FreeLayerInfo is an auxiliary geodata source not bound to the surface
// tree (spec GLOSSARY "Free layer").
type FreeLayerInfo struct {
	Name        string
	StyleUrl    string
	GeoUrlTmpl  string // per-tile geodata features URL template
	IsGeodata   bool
	// Monolithic geodata free layers have no metatiles; Extent lets the
	// engine synthesize the root MetaNode directly (spec §4.4).
	Monolithic bool
	Extent     [2][2]float64 // [{minLon,minLat},{maxLon,maxLat}]
}

func (f *FreeLayerInfo) UrlGeo(v UrlVars) string { return v.Expand(f.GeoUrlTmpl) }

// ReferenceFrame describes the physical/navigation/public SRS and body.
type ReferenceFrame struct {
	PhysicalSRS   string
	NavigationSRS string
	PublicSRS     string
	BodyMajorRadius float64
	BodyMinorRadius float64
}
