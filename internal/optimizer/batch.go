package optimizer

import (
	"context"

	"golang.org/x/sync/errgroup"

	"qzxopt/internal/circuit"
)

// BatchItem is the outcome for one circuit of a batch.
type BatchItem struct {
	Result *Result
	Err    error
}

// Batch optimizes independent circuits with at most workers in flight.
// Items come back in input order. One circuit failing does not stop the
// others; cancelling ctx does.
func (o *Optimizer) Batch(ctx context.Context, circuits []*circuit.Circuit, workers int) []BatchItem {
	items := make([]BatchItem, len(circuits))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, c := range circuits {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				items[i].Err = err
				return nil
			}
			items[i].Result, items[i].Err = o.Optimize(gctx, c)
			return nil
		})
	}
	_ = g.Wait()
	return items
}
