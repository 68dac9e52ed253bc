// Package storage contains backend-agnostic batching utilities.
// This file implements a generic, batched loader that drains typed records from
// a channel and invokes a provided flush function per batch.
//
// Logging: on every successful flush, a concise progress line is emitted with
// running totals and instantaneous rows/sec since the previous flush.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// FlushFn writes one batch and returns the number of records the backend
// reported as written. It must cancel promptly when ctx is done. The batch
// slice is reused after FlushFn returns and must not be retained.
type FlushFn[R any] func(ctx context.Context, batch []R) (int64, error)

// LoadBatches drains records from in, groups them into batches of batchSize,
// and calls flush for each non-empty batch. It returns the total reported by
// flush and the first error encountered.
//
// Cancellation: returns (total, ctx.Err()) when canceled. Progress is logged
// at Debug on each successful flush; a nil logger uses slog.Default().
func LoadBatches[R any](
	ctx context.Context,
	log *slog.Logger,
	in <-chan R,
	batchSize int,
	flush FlushFn[R],
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	if flush == nil {
		return 0, fmt.Errorf("flush must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	var (
		total       int64
		batches     int64
		batch       = make([]R, 0, batchSize)
		start       = time.Now()
		lastFlushTS = start
		lastTotal   int64
	)

	doFlush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := flush(ctx, batch)
		total += n

		// Keep capacity to avoid churn.
		clear(batch)
		batch = batch[:0]

		if err != nil {
			log.Error("loader: flush failed", "after", n, "total", total, "err", err)
			return err
		}

		batches++
		now := time.Now()
		sinceLast := now.Sub(lastFlushTS)
		rps := float64(0)
		if sinceLast > 0 {
			rps = float64(total-lastTotal) / sinceLast.Seconds()
		}
		log.Debug("loader: batch flushed",
			"batch", batches,
			"rps", int64(rps),
			"inserted", n,
			"total_inserted", total,
			"elapsed", now.Sub(start).Truncate(time.Millisecond),
			"since_last", sinceLast.Truncate(time.Millisecond),
		)
		lastFlushTS = now
		lastTotal = total
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()

		case rec, ok := <-in:
			if !ok {
				pending := len(batch)
				if err := doFlush(); err != nil {
					return total, err
				}
				log.Debug("loader: input closed", "final_flush", pending, "total_inserted", total)
				return total, nil
			}
			batch = append(batch, rec)
			if len(batch) >= batchSize {
				if err := doFlush(); err != nil {
					return total, err
				}
			}
		}
	}
}
