// Package decode turns raw fetched bytes into typed model payloads.
// The JSON/binary parsers themselves are external collaborators (spec
// §1); this package only owns the transport-level step ahead of them:
// sniffing and undoing gzip/deflate compression, the way
// voxelcraft.ai's persistence layer decompresses snapshot blobs with
// klauspost/compress before handing them to its own (de)serializer.
package decode

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/GrainArc/vtsclient/model"
)

// Func decodes raw bytes of the given kind into a typed payload.
// Implementations are supplied by the engine's wiring (mesh/texture/
// metatile parsers) since the wire formats themselves are out of
// scope for this core (spec §6).
type Func func(kind model.Kind, raw []byte) (any, error)

// Decompress undoes gzip/zlib framing if present, based on magic
// bytes, and is a no-op otherwise. Called before Func on every fetch
// reply.
func Decompress(raw []byte) ([]byte, error) {
	if len(raw) >= 2 && raw[0] == 0x1f && raw[1] == 0x8b {
		gr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer gr.Close()
		return io.ReadAll(gr)
	}
	if len(raw) >= 2 && raw[0] == 0x78 && (raw[1] == 0x01 || raw[1] == 0x9c || raw[1] == 0xda) {
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err == nil {
			defer zr.Close()
			if out, err := io.ReadAll(zr); err == nil {
				return out, nil
			}
		}
	}
	return raw, nil
}

// RawPassthrough wraps decompressed bytes into the RawBuffer payload
// kind, the default decoder used for kinds the caller hasn't
// registered a real parser for.
func RawPassthrough(_ model.Kind, raw []byte) (any, error) {
	return &model.RawBuffer{Bytes: raw}, nil
}
