package model

import "github.com/GrainArc/vtsclient/geom"

// ChildFlag bits name which of the four children exist (spec §3/§4.3).
type ChildFlag uint32

const (
	UlChild ChildFlag = 1 << iota
	UrChild
	LlChild
	LrChild
)

// MetaNode is the per-tile metadata record extracted from a MetaTile.
type MetaNode struct {
	Geometry    bool
	Watertight  bool
	Alien       bool
	ChildFlags  ChildFlag
	ApplyDisplaySize bool

	AabbPhys [2]geom.Vec3 // physical SRS axis-aligned box
	AabbNode [2]geom.Vec3 // node SRS axis-aligned box

	Surrogate geom.Vec3
	TexelSize float64

	Credits []string

	// SourceReference indexes (1-based, per original semantics) into
	// the layer's tilesetStack when glues are in play; 0 means "none".
	SourceReference uint32

	LocalId LocalId
}

// HasChild reports whether child index i (0..3) is available.
func (m *MetaNode) HasChild(i uint32) bool {
	return m.ChildFlags&(UlChild<<i) != 0
}

// MetaTile is a 256x256 grid of MetaNodes served at tile coordinates
// aligned to a 256-tile block.
const MetaTileDim = 256

type MetaTile struct {
	// Origin is the (lod, x&~255, y&~255) block this tile covers.
	Origin TileId
	Nodes  [MetaTileDim * MetaTileDim]MetaNode
}

// index computes (y&255)*256 + (x&255), per spec §3/§4.3.
func metaIndex(x, y uint32) int {
	return int((y&255))*MetaTileDim + int(x&255)
}

// Get returns the node for the given tile, which must share this
// MetaTile's 256-aligned block.
func (m *MetaTile) Get(id TileId) *MetaNode {
	return &m.Nodes[metaIndex(id.X, id.Y)]
}

// BlockOrigin masks (x,y) down to their 256-aligned block, the rule
// used to derive the MetaTile URL for a given tile (spec §4.3).
func BlockOrigin(id TileId) TileId {
	return TileId{Lod: id.Lod, X: id.X &^ 255, Y: id.Y &^ 255}
}
