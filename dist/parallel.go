package dist

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ParallelConfig configures ForEachLocal, a helper for embarrassingly
// parallel, intra-process passes that don't touch cross-process state.
// SampleSort's local sort and bucket merge run sequentially and do not
// call it.
// Grounded on junjiewwang-perf-analysis/internal/parser/hprof/parallel.go's
// ParallelConfig/errgroup worker-pool shape.
type ParallelConfig struct {
	Enabled    bool
	MaxWorkers int
}

// DefaultParallelConfig enables parallelism with one worker per available
// CPU, mirroring perf-analysis's DefaultParallelConfig default of "use
// what the machine gives you" rather than a fixed constant.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{Enabled: true, MaxWorkers: runtime.GOMAXPROCS(0)}
}

// ForEachLocal runs fn(i) for i in [0, n) -- a local-only pass with no
// cross-process communication -- using up to cfg.MaxWorkers goroutines
// via errgroup, or sequentially if cfg.Enabled is false. It returns the
// first error any fn(i) produced, canceling ctx for the others, the same
// fail-fast discipline perf-analysis's parallel hprof parsing uses.
func ForEachLocal(ctx context.Context, cfg ParallelConfig, n int, fn func(ctx context.Context, i int) error) error {
	if !cfg.Enabled || n <= 1 {
		for i := 0; i < n; i++ {
			if err := fn(ctx, i); err != nil {
				return err
			}
		}
		return nil
	}

	workers := cfg.MaxWorkers
	if workers <= 0 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	g, gctx := errgroup.WithContext(ctx)
	next := make(chan int)
	g.Go(func() error {
		defer close(next)
		for i := 0; i < n; i++ {
			select {
			case next <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := range next {
				if err := fn(gctx, i); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}
