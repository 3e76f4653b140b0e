package chunkfile

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"luadump/internal/xxtea"
)

const (
	testKey = "2dxLua"
	testSig = "XXTEA"
)

var chunk = []byte("\x1bLua\x53\x00\x19\x93\r\n\x1a\n\x04\x08\x08 rest of chunk")

func gzipped(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func zipped(t *testing.T, name string, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func sealed(t *testing.T, data []byte) []byte {
	t.Helper()
	out, err := xxtea.Seal(data, []byte(testKey), []byte(testSig))
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestSniff(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		sig  string
		want Kind
	}{
		{"lua chunk", chunk, testSig, KindChunk},
		{"encrypted", []byte(testSig + "ciphertext"), testSig, KindEncrypted},
		{"signature not configured", []byte(testSig + "ciphertext"), "", KindUnknown},
		{"gzip", []byte{0x1f, 0x8b, 0x08, 0x00}, "", KindGzip},
		{"zip", []byte("PK\x03\x04"), "", KindZip},
		{"short", []byte{0x1b}, "", KindUnknown},
		{"empty", nil, testSig, KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sniff(tt.data, tt.sig); got != tt.want {
				t.Errorf("Sniff = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	opts := Options{Key: testKey, Signature: testSig}
	tests := []struct {
		name        string
		raw         []byte
		opts        Options
		kind        Kind
		decrypted   bool
		compression string
	}{
		{"plain", chunk, Options{}, KindChunk, false, ""},
		{"plain with key", chunk, opts, KindChunk, false, ""},
		{"encrypted", sealed(t, chunk), opts, KindEncrypted, true, ""},
		{"encrypted gzip", sealed(t, gzipped(t, chunk)), opts, KindEncrypted, true, "gzip"},
		{"encrypted zip", sealed(t, zipped(t, "main.luac", chunk)), opts, KindEncrypted, true, "zip"},
		{"gzip only", gzipped(t, chunk), Options{}, KindGzip, false, "gzip"},
		{"signature inside ciphertext", mustEncryptWithSignature(t, chunk), opts, KindUnknown, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Decode(tt.raw, tt.name, tt.opts)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if diff := cmp.Diff(chunk, f.Data); diff != "" {
				t.Errorf("data (-want +got):\n%s", diff)
			}
			if f.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", f.Kind, tt.kind)
			}
			if f.Decrypted != tt.decrypted {
				t.Errorf("Decrypted = %v, want %v", f.Decrypted, tt.decrypted)
			}
			if f.Compression != tt.compression {
				t.Errorf("Compression = %q, want %q", f.Compression, tt.compression)
			}
			if f.Size != len(tt.raw) {
				t.Errorf("Size = %d, want %d", f.Size, len(tt.raw))
			}
		})
	}
}

func mustEncryptWithSignature(t *testing.T, data []byte) []byte {
	t.Helper()
	out, err := xxtea.EncryptWithSignature(data, []byte(testKey), []byte(testSig))
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestDecodeErrors(t *testing.T) {
	if _, err := Decode(sealed(t, chunk), "x", Options{Signature: testSig}); !errors.Is(err, ErrNoKey) {
		t.Errorf("missing key: err = %v, want ErrNoKey", err)
	}

	if _, err := Decode([]byte{0x1f, 0x8b, 0xff}, "x", Options{}); err == nil {
		t.Error("corrupt gzip accepted")
	}

	empty := zipped(t, "a", nil)
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_ = zw.Close()
	if _, _, err := Decompress(buf.Bytes(), "x"); err == nil {
		t.Error("empty zip accepted")
	}
	if out, method, err := Decompress(empty, "x"); err != nil || method != "zip" || len(out) != 0 {
		t.Errorf("zip with empty member = %q, %q, %v", out, method, err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "game.luac")
	if err := os.WriteFile(path, sealed(t, gzipped(t, chunk)), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := Load(path, Options{Key: testKey, Signature: testSig})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(f.Data, chunk) {
		t.Errorf("Load data = %q", f.Data)
	}
	if f.Path != path {
		t.Errorf("Path = %q, want %q", f.Path, path)
	}

	if _, err := Load(filepath.Join(dir, "missing.luac"), Options{}); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: err = %v", err)
	}
}

func TestOutputPath(t *testing.T) {
	tests := map[string]string{
		"/a/main.luac":  "/a/main.lua",
		"/a/MAIN.LUAC":  "/a/MAIN.lua",
		"/a/data.bin":   "/a/data-decrypted.bin",
		"/a/noext":      "/a/noext-decrypted",
		"rel/init.luac": "rel/init.lua",
	}
	for in, want := range tests {
		if got := OutputPath(in); got != want {
			t.Errorf("OutputPath(%q) = %q, want %q", in, got, want)
		}
	}
}
