package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/errgroup"

	syncErrors "github.com/c0deZ3R0/readsync/errors"
	"github.com/c0deZ3R0/readsync/logging"
)

// DefaultBatchTries is the number of attempts each batch gets.
const DefaultBatchTries = 3

// BatchFunc writes one batch.
type BatchFunc[T any] func(ctx context.Context, batch []T) error

// BatchOptions tunes ProcessBatchChanges. The zero value runs batches
// sequentially with DefaultBatchTries attempts each.
type BatchOptions struct {
	// Concurrency bounds how many batches run at once. Values below 2 run
	// sequentially.
	Concurrency int

	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// OnRetry is called before a batch is retried.
	OnRetry func(op string, err error, next time.Duration)

	Logger *slog.Logger
}

// ProcessBatchChanges splits items into chunks of batchSize and applies each
// with apply, retrying a failing chunk up to MaxTries times. It returns the
// number of items applied. Once a chunk exhausts its tries the error is
// returned as STRATEGY_ERROR and, when running sequentially, no later chunk
// is attempted.
func ProcessBatchChanges[T any](ctx context.Context, op string, apply BatchFunc[T], items []T, batchSize int, opts BatchOptions) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = len(items)
	}
	if opts.MaxTries == 0 {
		opts.MaxTries = DefaultBatchTries
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 50 * time.Millisecond
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = 2 * time.Second
	}
	logger := logging.ComponentLogger(opts.Logger, "strategy")

	runBatch := func(ctx context.Context, index int, batch []T) error {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = opts.InitialInterval
		b.MaxInterval = opts.MaxInterval

		_, err := backoff.Retry(ctx, func() (struct{}, error) {
			if err := apply(ctx, batch); err != nil {
				if syncErrors.HasCode(err, syncErrors.ErrCodeInvalidInput) {
					return struct{}{}, backoff.Permanent(err)
				}
				return struct{}{}, err
			}
			return struct{}{}, nil
		},
			backoff.WithBackOff(b),
			backoff.WithMaxTries(opts.MaxTries),
			backoff.WithNotify(func(err error, next time.Duration) {
				logger.WarnContext(ctx, "batch failed, retrying",
					slog.String("operation", op),
					slog.Int("batch", index),
					slog.Duration("next", next),
					slog.Any("error", err))
				if opts.OnRetry != nil {
					opts.OnRetry(op, err, next)
				}
			}),
		)
		if err != nil {
			return syncErrors.NewStrategyError(syncErrors.OpApply,
				fmt.Errorf("%s batch %d (%d items): %w", op, index, len(batch), err))
		}
		return nil
	}

	batches := make([][]T, 0, (len(items)+batchSize-1)/batchSize)
	for start := 0; start < len(items); start += batchSize {
		batches = append(batches, items[start:min(start+batchSize, len(items))])
	}

	if opts.Concurrency < 2 || len(batches) == 1 {
		applied := 0
		for i, batch := range batches {
			if err := runBatch(ctx, i, batch); err != nil {
				return applied, err
			}
			applied += len(batch)
		}
		return applied, nil
	}

	done := make([]bool, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, batch := range batches {
		g.Go(func() error {
			if err := runBatch(gctx, i, batch); err != nil {
				return err
			}
			done[i] = true
			return nil
		})
	}
	err := g.Wait()

	applied := 0
	for i, ok := range done {
		if ok {
			applied += len(batches[i])
		}
	}
	return applied, err
}
