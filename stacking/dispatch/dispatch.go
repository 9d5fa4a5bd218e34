// Package dispatch consumes sub-batches released by the stacking engine and
// processes them on a fixed pool of workers. A released batch is exclusively
// owned by the worker that receives it; nothing flows back to the
// originating coordinator.
package dispatch

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/stacksim/stacksim/stacking"
)

// Handler processes one released sub-batch. It runs on a pool worker and owns
// the batch's records for its duration, including destroying them when done.
type Handler func(ctx context.Context, batch *stacking.ReleasedBatch) error

// Pool fans released sub-batches out to a fixed number of workers.
type Pool struct {
	workers int
	handler Handler
}

// NewPool creates a pool. workers < 1 is treated as 1. The handler must not
// be nil.
func NewPool(workers int, handler Handler) *Pool {
	if handler == nil {
		panic("dispatch.NewPool: handler must not be nil")
	}
	if workers < 1 {
		workers = 1
	}
	return &Pool{workers: workers, handler: handler}
}

// Workers returns the configured worker count.
func (p *Pool) Workers() int {
	return p.workers
}

// Process runs every batch through the handler on the pool's workers and
// blocks until all have finished. The first handler error cancels the
// remaining work and is returned.
func (p *Pool) Process(ctx context.Context, batches []*stacking.ReleasedBatch) error {
	if len(batches) == 0 {
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)
	feed := make(chan *stacking.ReleasedBatch)

	g.Go(func() error {
		defer close(feed)
		for _, b := range batches {
			select {
			case feed <- b:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			for b := range feed {
				logrus.Debugf("dispatch: processing sub-batch %s (type %d, %d records)", b.ID, b.Type, len(b.Records))
				if err := p.handler(ctx, b); err != nil {
					return fmt.Errorf("sub-batch %s: %w", b.ID, err)
				}
			}
			return nil
		})
	}

	return g.Wait()
}

// DestroyRecords is a convenience handler body for callers that only need the
// batch consumed: it destroys every record's track and trajectory.
func DestroyRecords(batch *stacking.ReleasedBatch) {
	for _, rec := range batch.Records {
		rec.Track.Destroy()
		if rec.Trajectory != nil {
			rec.Trajectory.Destroy()
		}
	}
	batch.Records = nil
}
