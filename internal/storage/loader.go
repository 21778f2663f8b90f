package storage

import (
	"context"
	"fmt"
	"log"
	"time"
)

// InsertFn appends one batch of wire-form rows, aligned to columns, and
// reports how many rows the store accepted.
type InsertFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadBatches drains rows from in, groups them into batches of batchSize and
// calls insert for each non-empty batch. It returns the total reported by
// insert and the first error.
//
// A canceled ctx returns (total, ctx.Err()). Each successful flush logs a
// progress line with running totals and rows/sec since the previous flush.
func LoadBatches(
	ctx context.Context,
	columns []string,
	in <-chan []any,
	batchSize int,
	insert InsertFn,
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	if insert == nil {
		return 0, fmt.Errorf("insert must not be nil")
	}

	var (
		total     int64
		batches   int64
		batch     = make([][]any, 0, batchSize)
		start     = time.Now()
		lastFlush = start
		lastTotal int64
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := insert(ctx, columns, batch)
		total += n
		batch = batch[:0]

		if err != nil {
			log.Printf("insert: batch failed after=%d total=%d err=%v", n, total, err)
			return err
		}

		batches++
		now := time.Now()
		since := now.Sub(lastFlush)
		rps := float64(0)
		if since > 0 {
			rps = float64(total-lastTotal) / since.Seconds()
		}
		log.Printf(
			"insert: batch #%d rps=%.0f inserted=%d total_inserted=%d elapsed=%s",
			batches, rps, n, total, now.Sub(start).Truncate(time.Millisecond),
		)
		lastFlush = now
		lastTotal = total
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()

		case row, ok := <-in:
			if !ok {
				pending := len(batch)
				if err := flush(); err != nil {
					return total, err
				}
				log.Printf("insert: input closed final_flush=%d total_inserted=%d", pending, total)
				return total, nil
			}
			if len(row) != len(columns) {
				return total, fmt.Errorf("row has %d values, want %d", len(row), len(columns))
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return total, err
				}
			}
		}
	}
}
