package model

// MapLayer groups a SurfaceStack (or a geodata free layer) with the
// options governing its traversal.
type MapLayer struct {
	Name          string
	SurfaceStack  SurfaceStack
	TilesetStack  *SurfaceStack // non-nil when glues are in play (spec §4.4)
	FreeLayer     *FreeLayerInfo
	InitAllChildren bool

	// View and BoundLayers let the draw-determination step resolve a
	// surface's ordered external bound-layer list without threading the
	// whole MapConfig through every traversal call.
	View        *ViewInfo
	BoundLayers map[string]*BoundLayerInfo
}

func (l *MapLayer) IsGeodata() bool {
	return l.FreeLayer != nil && l.FreeLayer.IsGeodata
}

// MapConfig is the root JSON document the engine loads (spec §6).
type MapConfig struct {
	Surfaces    []SurfaceInfo
	BoundLayers map[string]*BoundLayerInfo
	Views       map[string]*ViewInfo
	FreeLayers  map[string]*FreeLayerInfo
	Reference   ReferenceFrame
	Layers      []*MapLayer
}

// BoundLayer looks up a bound layer by id, or nil.
func (m *MapConfig) BoundLayer(id string) *BoundLayerInfo {
	return m.BoundLayers[id]
}

// MeshPart is one submesh of a MeshAggregate.
type MeshPart struct {
	Mesh             MeshHandle
	NormToPhys       [16]float64 // model matrix, row-major 4x4
	ExternalUV       bool
	InternalUV       bool
	SurfaceReference uint32
	TextureLayer     string // non-empty if this part carries its own bound layer id
}

// MeshAggregate is the decoded payload of a mesh URL fetch: every
// submesh of a tile's chosen surface.
type MeshAggregate struct {
	Submeshes []MeshPart
}

// MeshHandle and TextureHandle are opaque GPU-resource handles, the
// "concrete GPU resource uploads treated as an opaque sink" collaborator
// from spec §1 (grounded on gogpu-gg/gpucore's opaque-ID convention).
type MeshHandle uint64
type TextureHandle uint64

// BoundLayerMetaTile is the 256x256 byte grid wire format for bound
// layer availability (spec §6): bit0 = available, bit1 = watertight.
type BoundLayerMetaTile struct {
	Bytes [MetaTileDim * MetaTileDim]byte
}

func (b *BoundLayerMetaTile) at(x, y uint32) byte {
	return b.Bytes[metaIndex(x, y)]
}

func (b *BoundLayerMetaTile) Available(x, y uint32) bool {
	return b.at(x, y)&1 != 0
}

func (b *BoundLayerMetaTile) Watertight(x, y uint32) bool {
	return b.at(x, y)&2 != 0
}

// GeodataFeatures and GeodataStyle are opaque decoded payloads for
// free-layer geodata; the engine never interprets their contents, only
// threads them into the geodata renderer collaborator.
type GeodataFeatures struct {
	Raw []byte
}

type GeodataStyle struct {
	Raw []byte
}

// RawBuffer is the undecoded-bytes payload kind, used transiently
// between download and decode.
type RawBuffer struct {
	Bytes []byte
}

type Texture struct {
	Handle TextureHandle
	Width, Height int
}

type Mesh struct {
	Handle MeshHandle
}
