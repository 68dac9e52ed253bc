package bulk

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"dataflow/internal/metrics"
	"dataflow/internal/storage"
)

// DefaultBatchSize is used when StreamConfig.BatchSize is not positive.
const DefaultBatchSize = 5000

// StreamConfig tunes Stream.
type StreamConfig struct {
	BatchSize int // records per COPY
	Workers   int // concurrent COPY loops, each on its own connection
}

// Stream drains in into the table in batches until in is closed, the
// context is canceled, or a batch fails. Each batch is its own CreateBulk
// and commits independently; on failure, batches already committed stay.
//
// Workers share the channel, so record order across batches is not
// preserved. On error the remaining workers stop after their current batch
// and Stream keeps receiving from in in the background, discarding records,
// so a producer blocked on a send is released. Producers must close in when
// done; the background receive ends only then.
func (w *Writer[T]) Stream(ctx context.Context, in <-chan T, cfg StreamConfig) (total int64, err error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	start := time.Now()
	defer func() {
		metrics.RecordStep(w.opts.job, w.plan.Table, metrics.StepStream, err, time.Since(start))
	}()

	var n atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.Workers; i++ {
		log := w.log.With("worker", i)
		g.Go(func() error {
			loaded, err := storage.LoadBatches(gctx, log, in, cfg.BatchSize, w.CreateBulk)
			n.Add(loaded)
			return err
		})
	}
	err = g.Wait()
	total = n.Load()
	if err != nil {
		go discard(in)
	}

	w.log.Info("bulk: stream finished",
		"rows", total,
		"workers", cfg.Workers,
		"batch_size", cfg.BatchSize,
		"elapsed", time.Since(start).Truncate(time.Millisecond),
		"err", err,
	)
	return total, err
}

// discard drains in until it is closed.
func discard[T any](in <-chan T) {
	for range in {
	}
}
