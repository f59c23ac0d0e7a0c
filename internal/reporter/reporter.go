// Package reporter batches usage samples and ships them to the backend
// over the device-authenticated channel, spilling to encrypted local
// storage when delivery fails.
package reporter

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/fernwall/screentime/internal/domain"
)

// Config holds reporter settings.
type Config struct {
	DeviceID       string
	APIKey         string
	FlushInterval  time.Duration // default 30s
	MaxAttempts    uint64        // bounded retry budget per flush
	InitialBackoff time.Duration
}

// DefaultConfig returns reporter defaults.
func DefaultConfig() Config {
	return Config{
		FlushInterval:  30 * time.Second,
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
	}
}

// Reporter drains the pending batch on a fixed interval, independent of
// the detector's polling tick, so a slow network flush never blocks
// classification.
type Reporter struct {
	config Config
	batch  *Batch
	client domain.BackendClient
	spill  domain.SpillQueue
	logger *zap.Logger
}

// New creates a reporter. The spill queue may be nil, in which case
// undeliverable batches stay in memory until the next interval.
func New(config Config, batch *Batch, client domain.BackendClient, spill domain.SpillQueue, logger *zap.Logger) *Reporter {
	if config.FlushInterval == 0 {
		config.FlushInterval = DefaultConfig().FlushInterval
	}
	if config.MaxAttempts == 0 {
		config.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = DefaultConfig().InitialBackoff
	}
	return &Reporter{
		config: config,
		batch:  batch,
		client: client,
		spill:  spill,
		logger: logger,
	}
}

// Run starts the flush loop. On cancellation it attempts one final
// flush before returning, so shutdown never silently drops the batch.
func (r *Reporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.config.FlushInterval)
	defer ticker.Stop()

	r.logger.Info("usage reporter started",
		zap.Duration("flush_interval", r.config.FlushInterval))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("usage reporter stopping, final flush")
			// The loop context is gone; give the last flush its own
			// bounded deadline.
			flushCtx, cancel := context.WithTimeout(context.Background(), DefaultRequestTimeout)
			if err := r.Flush(flushCtx); err != nil {
				r.logger.Warn("final flush failed, batch spilled", zap.Error(err))
			}
			cancel()
			return ctx.Err()

		case <-ticker.C:
			if err := r.Flush(ctx); err != nil {
				r.logger.Warn("flush failed", zap.Error(err))
			}
		}
	}
}

// Flush sends everything pending: previously spilled entries first,
// then the current in-memory batch. Spilled rows are only peeked
// here and removed after the send is confirmed, so a failed delivery,
// a failed re-spill, or a crash mid-flush can at worst resend entries
// the server already has; the interval merger absorbs those
// duplicates. On failure the fresh batch moves to the spill queue so
// the in-memory queue cannot grow without bound.
func (r *Reporter) Flush(ctx context.Context) error {
	pending := r.batch.Peek()

	var spilled []domain.UsageLogEntry
	if r.spill != nil {
		var err error
		spilled, err = r.spill.Peek()
		if err != nil {
			r.logger.Warn("failed to read spill queue", zap.Error(err))
		}
	}

	payload := make([]domain.UsageLogEntry, 0, len(spilled)+len(pending))
	payload = append(payload, spilled...)
	payload = append(payload, pending...)
	if len(payload) == 0 {
		return nil
	}

	err := r.send(ctx, payload)
	if err == nil {
		if r.spill != nil && len(spilled) > 0 {
			if dropErr := r.spill.Drop(len(spilled)); dropErr != nil {
				// rows stay spilled and get resent next flush
				r.logger.Warn("failed to clear delivered spill rows", zap.Error(dropErr))
			}
		}
		r.batch.Drop(len(pending))
		r.logger.Debug("batch flushed", zap.Int("entries", len(payload)))
		return nil
	}

	// Delivery failed after the retry budget: persist the fresh batch
	// durably. The spilled prefix was never removed, so it is safe
	// either way.
	if r.spill != nil && len(pending) > 0 {
		if spillErr := r.spill.Push(pending); spillErr != nil {
			r.logger.Error("failed to spill batch", zap.Error(spillErr))
			// keep the in-memory batch intact as the fallback
			return err
		}
		r.batch.Drop(len(pending))
	}
	return err
}

// send delivers with bounded exponential backoff. Authentication
// failures are retried too: a backend mid-rotation can transiently
// reject valid credentials.
func (r *Reporter) send(ctx context.Context, entries []domain.UsageLogEntry) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(r.config.InitialBackoff),
		), r.config.MaxAttempts-1),
		ctx,
	)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := r.client.ReportUsage(ctx, r.config.DeviceID, r.config.APIKey, entries)
		if err != nil {
			r.logger.Debug("report attempt failed",
				zap.Int("attempt", attempt),
				zap.Error(err))
			if errors.Is(err, domain.ErrUnauthorized) || domain.IsTransient(err) {
				return err
			}
			// validation or other permanent rejection: retrying the
			// same payload cannot succeed
			return backoff.Permanent(err)
		}
		return nil
	}, policy)
}

// PendingLen returns in-memory plus spilled entry counts, for status
// display.
func (r *Reporter) PendingLen() (memory, spilled int) {
	memory = r.batch.Len()
	if r.spill != nil {
		if n, err := r.spill.Len(); err == nil {
			spilled = n
		}
	}
	return memory, spilled
}
