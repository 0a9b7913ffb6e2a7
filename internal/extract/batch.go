package extract

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/readlist/readlist-cli/internal/model"
	"github.com/readlist/readlist-cli/internal/source"
)

// BatchOptions controls a batch run.
type BatchOptions struct {
	// Concurrency bounds the number of episodes in flight. Defaults to 4.
	Concurrency int

	// Delay is an optional pause between dispatches, used to stay friendly
	// to upstream rate limits.
	Delay time.Duration

	// Force reprocesses episodes that already have a success record.
	Force bool
}

// BatchSummary tallies a batch run by outcome.
type BatchSummary struct {
	Processed int64
	Succeeded int64
	NoBooks   int64
	Failed    int64
	Skipped   int64
}

// ProcessBatch fetches and processes the given episode ids through a bounded
// worker pool. Canceling ctx stops new dispatches; episodes already in flight
// run to completion and record their outcome. Per-episode failures are
// tallied in the summary, never returned as an error.
func (c *Coordinator) ProcessBatch(ctx context.Context, src source.Source, ids []string, opts BatchOptions) *BatchSummary {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}

	// In-flight work keeps running after cancellation; only dispatch stops.
	runCtx := context.WithoutCancel(ctx)

	var sum BatchSummary
	g := new(errgroup.Group)
	g.SetLimit(opts.Concurrency)

	for _, id := range ids {
		if ctx.Err() != nil {
			zap.L().Info("batch canceled, draining in-flight episodes")
			break
		}

		g.Go(func() error {
			c.processOne(runCtx, src, id, opts.Force, &sum)
			return nil
		})

		if opts.Delay > 0 {
			timer := time.NewTimer(opts.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
			case <-timer.C:
			}
		}
	}

	g.Wait()

	zap.L().Info("batch finished",
		zap.Int64("processed", atomic.LoadInt64(&sum.Processed)),
		zap.Int64("succeeded", atomic.LoadInt64(&sum.Succeeded)),
		zap.Int64("no_books", atomic.LoadInt64(&sum.NoBooks)),
		zap.Int64("failed", atomic.LoadInt64(&sum.Failed)),
		zap.Int64("skipped", atomic.LoadInt64(&sum.Skipped)),
	)
	return &sum
}

func (c *Coordinator) processOne(ctx context.Context, src source.Source, id string, force bool, sum *BatchSummary) {
	log := zap.L().With(zap.String("episode_id", id))
	atomic.AddInt64(&sum.Processed, 1)

	ep, err := src.Fetch(ctx, id)
	if err != nil {
		atomic.AddInt64(&sum.Failed, 1)
		log.Error("episode fetch failed", zap.Error(err))
		if rerr := c.recordFailure(ctx, id, err); rerr != nil {
			log.Error("could not record fetch failure", zap.Error(rerr))
		}
		return
	}

	out, err := c.Process(ctx, *ep, force)
	if err != nil {
		atomic.AddInt64(&sum.Failed, 1)
		log.Error("episode processing failed", zap.Error(err))
		return
	}

	switch {
	case out.Skipped:
		atomic.AddInt64(&sum.Skipped, 1)
	case out.Record.Status == model.StatusSuccess:
		atomic.AddInt64(&sum.Succeeded, 1)
	case out.Record.Status == model.StatusNoBooksFound:
		atomic.AddInt64(&sum.NoBooks, 1)
	default:
		atomic.AddInt64(&sum.Failed, 1)
	}
}
