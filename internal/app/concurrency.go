package app

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// both runs a and b concurrently. The first error cancels the context seen
// by the other call and is returned alone.
func both[A, B any](
	ctx context.Context,
	a func(context.Context) (A, error),
	b func(context.Context) (B, error),
) (A, B, error) {
	var (
		ra A
		rb B
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ra, err = a(gctx)
		return err
	})
	g.Go(func() (err error) {
		rb, err = b(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		var (
			zeroA A
			zeroB B
		)

		return zeroA, zeroB, err
	}

	return ra, rb, nil
}
