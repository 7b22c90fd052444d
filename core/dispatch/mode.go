package dispatch

import (
	"context"

	"github.com/sourcegraph/conc/pool"
)

// runner calls fn for every index in [0, n). Results must be written to
// per-index slots so the outcome does not depend on scheduling.
type runner interface {
	run(ctx context.Context, n int, fn func(ctx context.Context, i int))
}

type sequential struct{}

func (sequential) run(ctx context.Context, n int, fn func(ctx context.Context, i int)) {
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			return
		}
		fn(ctx, i)
	}
}

// parallel runs the calls on a bounded pool of goroutines.
type parallel struct {
	workers int
}

func (p parallel) run(ctx context.Context, n int, fn func(ctx context.Context, i int)) {
	wp := pool.New().WithContext(ctx).WithMaxGoroutines(max(p.workers, 1))
	for i := 0; i < n; i++ {
		wp.Go(func(ctx context.Context) error {
			fn(ctx, i)
			return nil
		})
	}
	_ = wp.Wait()
}

func newRunner(mode string, workers int) runner {
	if mode == ModeParallel {
		return parallel{workers: workers}
	}
	return sequential{}
}
