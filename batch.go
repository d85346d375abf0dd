package termimage

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// RenderAll renders images concurrently, at most workers at a time, and
// returns their text in order. Nothing is written to the terminal. The first
// failure cancels the renders that have not started.
func RenderAll(ctx context.Context, images []*Image, workers int) ([]string, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	out := make([]string, len(images))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, img := range images {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if img == nil {
				return fmt.Errorf("image %d: %w", i, WrapInvalidSize("nil image"))
			}
			s, err := img.RenderContext(ctx)
			if err != nil {
				return fmt.Errorf("image %d: %w", i, err)
			}
			out[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
