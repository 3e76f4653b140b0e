package chunkfile

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"luadump/internal/binchunk"
)

// Match is a file found by Scan.
type Match struct {
	Path string
	Kind Kind
}

// Scan lists the files under dir that start with the Lua signature or with
// signature. Unreadable entries are logged and skipped. Results are in
// lexical order.
func Scan(ctx context.Context, dir, signature string, recursive bool) ([]Match, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	prefixLen := max(len(binchunk.LuaSignature), len(signature))

	var matches []Match
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			slog.Warn("Skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			if !recursive && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		prefix, err := readPrefix(path, prefixLen)
		if err != nil {
			slog.Warn("Skipping unreadable file", "path", path, "error", err)
			return nil
		}
		switch kind := Sniff(prefix, signature); kind {
		case KindChunk, KindEncrypted:
			matches = append(matches, Match{Path: path, Kind: kind})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

func readPrefix(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		err = nil
	}
	return buf[:read], err
}
