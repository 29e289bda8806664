package loader

import (
	"context"
	"fmt"
	"time"

	"weather-history/internal/index"
	"weather-history/pkg/logging"
)

// pollInterval is the consumer's sleep between empty channel checks.
const pollInterval = time.Millisecond

// Consumer drains the record channel into the destination. Collect returns
// the number of records committed.
type Consumer interface {
	Collect(ctx context.Context, records <-chan Record) (int, error)
}

// indexConsumer inserts records into the secondary index inside one
// transaction, committed only after every producer has disconnected.
type indexConsumer struct {
	ix     *index.Index
	logger *logging.StructuredLogger
}

// NewIndexConsumer returns the standard index-backed consumer.
func NewIndexConsumer(ix *index.Index, logger *logging.StructuredLogger) Consumer {
	return &indexConsumer{ix: ix, logger: logger}
}

// Collect try-receives until the channel closes: on empty-but-open it sleeps
// briefly and retries, on closed it commits. Any insert failure rolls the
// whole transaction back, so a failed run commits nothing.
func (c *indexConsumer) Collect(ctx context.Context, records <-chan Record) (int, error) {
	tx, err := c.ix.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("bulk load transaction: %w", err)
	}
	count := 0
	for {
		select {
		case record, open := <-records:
			if !open {
				if err := tx.Commit(); err != nil {
					return 0, fmt.Errorf("bulk load commit: %w", err)
				}
				return count, nil
			}
			if err := c.ix.InsertHistory(ctx, tx, record.LID, record.Metadata, record.History); err != nil {
				tx.Rollback()
				return 0, fmt.Errorf("bulk load insert: %w", err)
			}
			count++
		default:
			time.Sleep(pollInterval)
		}
	}
}
