package utils

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Each runs fn for 0..n-1 with at most limit calls in flight and returns
// the results in index order, regardless of completion order. The first
// error cancels the rest.
func Each[T any](ctx context.Context, n, limit int, fn func(ctx context.Context, i int) (T, error)) ([]T, error) {
	out := make([]T, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			v, err := fn(gctx, i)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
