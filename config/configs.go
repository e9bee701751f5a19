package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/GrainArc/vtsclient/model"
)

// mapConfigSchema is the bundled JSON Schema every map-configuration
// document is validated against before the engine trusts any of its
// surface/bound-layer URL templates (spec §6, SPEC_FULL §11). Kept as
// a literal string rather than a schema file on disk, the way a single
// small embedded resource is usually carried in a Go module.
const mapConfigSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["surfaces", "referenceFrame"],
  "properties": {
    "surfaces": {"type": "array", "items": {"type": "object", "required": ["name"]}},
    "boundLayers": {"type": "object"},
    "views": {"type": "object"},
    "freeLayers": {"type": "object"},
    "referenceFrame": {"type": "object", "required": ["physicalSrs", "navigationSrs", "publicSrs"]}
  }
}`

var compiledMapConfigSchema *jsonschema.Schema

func init() {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("mapconfig.schema.json", strings.NewReader(mapConfigSchema)); err != nil {
		Logger.Printf("compile map-config schema: %v", err)
		return
	}
	s, err := c.Compile("mapconfig.schema.json")
	if err != nil {
		Logger.Printf("compile map-config schema: %v", err)
		return
	}
	compiledMapConfigSchema = s
}

// rawMapConfig mirrors the wire JSON document shape; LoadMapConfig
// translates it into model.MapConfig once validated.
type rawMapConfig struct {
	Surfaces []struct {
		Name        string `json:"name"`
		UrlMesh     string `json:"urlMesh"`
		UrlTex      string `json:"urlTexture"`
		UrlMeta     string `json:"urlMeta"`
		UrlGeo      string `json:"urlGeodata"`
		Alien       bool   `json:"alien"`
	} `json:"surfaces"`
	BoundLayers map[string]struct {
		LodRangeMin uint8   `json:"lodRangeMin"`
		LodRangeMax uint8   `json:"lodRangeMax"`
		TileRange   [2][2]uint32 `json:"tileRange"`
		UrlMeta     string  `json:"urlMeta"`
		UrlTex      string  `json:"urlExternal"`
		UrlMask     string  `json:"urlMask"`
		Transparent bool    `json:"isTransparent"`
	} `json:"boundLayers"`
	Views map[string]struct {
		Surfaces    []string            `json:"surfaces"`
		BoundLayers map[string][]string `json:"boundLayers"`
	} `json:"views"`
	FreeLayers map[string]struct {
		Type       string      `json:"type"`
		StyleUrl   string      `json:"styleUrl"`
		UrlGeodata string      `json:"urlGeodata"`
		Monolithic bool        `json:"monolithic"`
		Extent     [2][2]float64 `json:"extent"`
	} `json:"freeLayers"`
	ReferenceFrame struct {
		PhysicalSrs   string `json:"physicalSrs"`
		NavigationSrs string `json:"navigationSrs"`
		PublicSrs     string `json:"publicSrs"`
	} `json:"referenceFrame"`
}

// LoadMapConfig reads and validates a map-config JSON document,
// the same "read file, decode, populate fields" shape as the teacher's
// XML config.init(), now schema-checked and returning a value instead
// of mutating package globals.
func LoadMapConfig(path string) (*model.MapConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open map config: %w", err)
	}
	defer f.Close()

	var generic any
	if err := json.NewDecoder(f).Decode(&generic); err != nil {
		return nil, fmt.Errorf("decode map config: %w", err)
	}
	if compiledMapConfigSchema != nil {
		if err := compiledMapConfigSchema.Validate(generic); err != nil {
			return nil, fmt.Errorf("map config schema: %w", err)
		}
	}

	raw, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("re-marshal map config: %w", err)
	}
	var rc rawMapConfig
	if err := json.Unmarshal(raw, &rc); err != nil {
		return nil, fmt.Errorf("unmarshal map config: %w", err)
	}

	mc := &model.MapConfig{
		BoundLayers: make(map[string]*model.BoundLayerInfo),
		Views:       make(map[string]*model.ViewInfo),
		FreeLayers:  make(map[string]*model.FreeLayerInfo),
		Reference: model.ReferenceFrame{
			PhysicalSRS:   rc.ReferenceFrame.PhysicalSrs,
			NavigationSRS: rc.ReferenceFrame.NavigationSrs,
			PublicSRS:     rc.ReferenceFrame.PublicSrs,
		},
	}
	for _, s := range rc.Surfaces {
		mc.Surfaces = append(mc.Surfaces, model.SurfaceInfo{
			Name: s.Name, UrlMeshTmpl: s.UrlMesh, UrlTexTmpl: s.UrlTex,
			UrlMetaTmpl: s.UrlMeta, UrlGeoTmpl: s.UrlGeo, Alien: s.Alien,
		})
	}
	for id, b := range rc.BoundLayers {
		mc.BoundLayers[id] = &model.BoundLayerInfo{
			Id:          id,
			LodRange:    model.LodRange{Min: b.LodRangeMin, Max: b.LodRangeMax},
			TileRange:   model.TileRange{MinX: b.TileRange[0][0], MinY: b.TileRange[0][1], MaxX: b.TileRange[1][0], MaxY: b.TileRange[1][1]},
			MetaUrlTmpl: b.UrlMeta,
			UrlTmpl:     b.UrlTex,
			MaskUrlTmpl: b.UrlMask,
			IsTransparent: b.Transparent,
		}
	}
	for name, v := range rc.Views {
		vi := &model.ViewInfo{Name: name, Surfaces: v.Surfaces, BoundLayersBySurface: make(map[string][]model.BoundLayerRef)}
		for surf, ids := range v.BoundLayers {
			refs := make([]model.BoundLayerRef, len(ids))
			for i, id := range ids {
				refs[i] = model.BoundLayerRef{Id: id}
			}
			vi.BoundLayersBySurface[surf] = refs
		}
		mc.Views[name] = vi
	}
	for name, fl := range rc.FreeLayers {
		mc.FreeLayers[name] = &model.FreeLayerInfo{
			Name:       name,
			StyleUrl:   fl.StyleUrl,
			GeoUrlTmpl: fl.UrlGeodata,
			IsGeodata:  fl.Type == "geodata",
			Monolithic: fl.Monolithic,
			Extent:     fl.Extent,
		}
	}
	return mc, nil
}
