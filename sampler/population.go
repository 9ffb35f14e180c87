package sampler

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// RunAll runs every task as an independent chain, concurrently up to
// GOMAXPROCS workers. There is no cross-chain interaction: each chain owns
// its own generator, sampler state, and buffers, so the results are
// identical to running the tasks one at a time with the same seeds.
//
// Results are positional: chains[i] and errs[i] belong to tasks[i]. One
// chain failing never aborts its siblings.
func RunAll(ctx context.Context, tasks []*Task, steps int64) ([]*Chain, []error) {
	chains := make([]*Chain, len(tasks))
	errs := make([]error, len(tasks))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, t := range tasks {
		i, t := i, t
		g.Go(func() error {
			chains[i], errs[i] = t.Run(ctx, steps)
			return nil
		})
	}

	// Per-task errors are reported positionally, never through the group
	_ = g.Wait()

	return chains, errs
}
