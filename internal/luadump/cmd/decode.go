package cmd

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"luadump/internal/binchunk"
	"luadump/internal/chunkfile"
)

// result is the outcome of loading and decoding one file.
type result struct {
	Path     string
	File     *chunkfile.File
	Chunk    *binchunk.Chunk
	Trailing int // bytes left after the main function
	Err      error
}

func asChunkError(err error) (*binchunk.Error, bool) {
	var e *binchunk.Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func decodeFile(path string, cfg *Config) result {
	start := time.Now()
	res := result{Path: path}

	f, err := chunkfile.Load(path, cfg.chunkOptions())
	if err != nil {
		res.Err = err
		return res
	}
	res.File = f

	r := binchunk.NewReader(f.Data)
	res.Chunk, res.Err = cfg.decoder().Load(r)
	if res.Err != nil {
		slog.Debug("Decode failed", "file", path, "error", res.Err)
		return res
	}
	res.Trailing = r.Len()
	slog.Debug("Decoded chunk",
		"file", path,
		"layout", res.Chunk.Layout,
		"size", f.Size,
		"trailing", res.Trailing,
		"elapsed", time.Since(start))
	return res
}

// decodeFiles decodes paths concurrently. Per-file failures are reported
// in the results, which keep the order of paths; only cancellation stops
// the remaining work.
func decodeFiles(ctx context.Context, paths []string, cfg *Config) []result {
	results := make([]result, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.jobs())
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = result{Path: path, Err: err}
				return err
			}
			results[i] = decodeFile(path, cfg)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// failed counts results with an error.
func failed(results []result) int {
	n := 0
	for _, res := range results {
		if res.Err != nil {
			n++
		}
	}
	return n
}
