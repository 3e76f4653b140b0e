// Package chunkfile loads compiled Lua chunks as they ship in real
// applications: plain, XXTEA-encrypted behind a signature, and optionally
// gzip or zip compressed.
package chunkfile

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"luadump/internal/binchunk"
	"luadump/internal/xxtea"
)

// ErrNoKey is returned when a file carries the encryption signature but no
// key was configured.
var ErrNoKey = errors.New("chunkfile: file is encrypted and no key was given")

// Kind is what the first bytes of a file look like.
type Kind int

const (
	KindUnknown Kind = iota
	KindChunk
	KindEncrypted
	KindGzip
	KindZip
)

func (k Kind) String() string {
	switch k {
	case KindChunk:
		return "chunk"
	case KindEncrypted:
		return "encrypted"
	case KindGzip:
		return "gzip"
	case KindZip:
		return "zip"
	default:
		return "unknown"
	}
}

// Options configures decryption.
type Options struct {
	Key       string
	Signature string
}

func (o Options) encrypted() bool { return o.Key != "" }

// File is a loaded chunk.
type File struct {
	Path string
	// Data is the plain chunk after decryption and decompression.
	Data []byte
	// Size is the size of the file on disk.
	Size int
	// Kind is the sniffed kind of the raw file.
	Kind Kind
	// Decrypted and Compression record the transformations applied.
	Decrypted   bool
	Compression string
}

// Sniff classifies data by its prefix. signature may be empty.
func Sniff(data []byte, signature string) Kind {
	switch {
	case bytes.HasPrefix(data, []byte(binchunk.LuaSignature)):
		return KindChunk
	case signature != "" && bytes.HasPrefix(data, []byte(signature)):
		return KindEncrypted
	case len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b:
		return KindGzip
	case len(data) >= 4 && data[0] == 'P' && data[1] == 'K':
		return KindZip
	default:
		return KindUnknown
	}
}

// Load reads path and returns its plain chunk bytes.
func Load(path string, opts Options) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	f, err := Decode(data, path, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Decode unwraps raw file contents. name is used for logging.
func Decode(data []byte, name string, opts Options) (*File, error) {
	f := &File{
		Path: name,
		Size: len(data),
		Kind: Sniff(data, opts.Signature),
	}

	plain := data
	switch {
	case f.Kind == KindChunk:
	case f.Kind == KindEncrypted && !opts.encrypted():
		return nil, ErrNoKey
	case opts.encrypted() && f.Kind != KindGzip && f.Kind != KindZip:
		var err error
		plain, err = xxtea.Open(data, []byte(opts.Key), []byte(opts.Signature))
		if err != nil {
			return nil, fmt.Errorf("decrypt: %w", err)
		}
		f.Decrypted = true
		slog.Debug("Decrypted chunk", "file", name, "size", len(data), "plain_size", len(plain))
	}

	plain, compression, err := Decompress(plain, name)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	f.Data = plain
	f.Compression = compression
	return f, nil
}

// Decompress inflates gzip data or extracts the first member of a zip
// archive. Other data is returned unchanged with an empty method.
func Decompress(data []byte, name string) ([]byte, string, error) {
	switch Sniff(data, "") {
	case KindGzip:
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, "", fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()

		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, "", fmt.Errorf("gzip: %w", err)
		}
		slog.Debug("Inflated gzip payload", "file", name, "size", len(data), "inflated_size", len(out))
		return out, "gzip", nil

	case KindZip:
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, "", fmt.Errorf("zip: %w", err)
		}
		if len(zr.File) == 0 {
			return nil, "", errors.New("zip: archive is empty")
		}
		member := zr.File[0]
		rc, err := member.Open()
		if err != nil {
			return nil, "", fmt.Errorf("zip: open %s: %w", member.Name, err)
		}
		defer rc.Close()

		out, err := io.ReadAll(rc)
		if err != nil {
			return nil, "", fmt.Errorf("zip: read %s: %w", member.Name, err)
		}
		if len(zr.File) > 1 {
			slog.Warn("Zip archive has several members, using the first", "file", name, "member", member.Name, "members", len(zr.File))
		}
		slog.Debug("Extracted zip member", "file", name, "member", member.Name, "inflated_size", len(out))
		return out, "zip", nil
	}
	return data, "", nil
}

// OutputPath names the file a decrypted copy of path is written to:
// foo.luac becomes foo.lua, anything else gets a -decrypted suffix.
func OutputPath(path string) string {
	dir, name := filepath.Split(path)
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if strings.EqualFold(ext, ".luac") {
		return filepath.Join(dir, base+".lua")
	}
	return filepath.Join(dir, base+"-decrypted"+ext)
}
