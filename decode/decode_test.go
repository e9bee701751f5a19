package decode

import (
	"bytes"
	"compress/gzip"
	"testing"

	"github.com/klauspost/compress/zlib"

	"github.com/GrainArc/vtsclient/model"
)

func TestDecompressPassesThroughUncompressed(t *testing.T) {
	raw := []byte("not compressed")
	out, err := Decompress(raw)
	if err != nil {
		t.Fatalf("Decompress returned error on plain bytes: %v", err)
	}
	if !bytes.Equal(out, raw) {
		t.Fatalf("Decompress modified uncompressed input")
	}
}

func TestDecompressGzip(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	gw.Write([]byte("hello gzip"))
	gw.Close()

	out, err := Decompress(buf.Bytes())
	if err != nil {
		t.Fatalf("Decompress gzip: %v", err)
	}
	if string(out) != "hello gzip" {
		t.Fatalf("Decompress gzip = %q, want %q", out, "hello gzip")
	}
}

func TestDecompressZlib(t *testing.T) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write([]byte("hello zlib"))
	zw.Close()

	out, err := Decompress(buf.Bytes())
	if err != nil {
		t.Fatalf("Decompress zlib: %v", err)
	}
	if string(out) != "hello zlib" {
		t.Fatalf("Decompress zlib = %q, want %q", out, "hello zlib")
	}
}

func TestRawPassthrough(t *testing.T) {
	payload, err := RawPassthrough(model.KindRawBuffer, []byte("abc"))
	if err != nil {
		t.Fatalf("RawPassthrough error: %v", err)
	}
	rb, ok := payload.(*model.RawBuffer)
	if !ok {
		t.Fatalf("RawPassthrough returned %T, want *model.RawBuffer", payload)
	}
	if string(rb.Bytes) != "abc" {
		t.Fatalf("RawPassthrough bytes = %q, want %q", rb.Bytes, "abc")
	}
}
