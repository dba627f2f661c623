package application

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// forEachChunk runs fn for every item, fanning out over fixed-size chunks.
// Each chunk must finish completely before the next one starts.
func forEachChunk[T any](ctx context.Context, items []T, size int, fn func(ctx context.Context, item T) error) error {
	if size < 1 {
		size = 1
	}
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))

		g, gctx := errgroup.WithContext(ctx)
		for _, item := range items[start:end] {
			g.Go(func() error {
				return fn(gctx, item)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}
