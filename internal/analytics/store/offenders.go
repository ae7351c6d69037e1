package store

import (
	"context"
	"time"

	"github.com/serroba/admission-go/internal/analytics"
	"go.uber.org/zap"
)

// DenialCounter counts stored denials for a key.
type DenialCounter interface {
	CountSince(ctx context.Context, key string, since time.Time) (int64, error)
}

// OffenderWatch saves events to an underlying store and warns once a key
// reaches threshold denials inside window.
type OffenderWatch struct {
	store     analytics.Store
	counter   DenialCounter
	window    time.Duration
	threshold int64
	logger    *zap.Logger
}

// NewOffenderWatch wraps store. counter is usually the same postgres store.
func NewOffenderWatch(
	store analytics.Store,
	counter DenialCounter,
	window time.Duration,
	threshold int64,
	logger *zap.Logger,
) *OffenderWatch {
	return &OffenderWatch{
		store:     store,
		counter:   counter,
		window:    window,
		threshold: threshold,
		logger:    logger,
	}
}

// SaveDenied persists event, then checks the key's recent denial count.
// Counting failures are logged and do not nack the message.
func (w *OffenderWatch) SaveDenied(ctx context.Context, event *analytics.DeniedEvent) error {
	if err := w.store.SaveDenied(ctx, event); err != nil {
		return err
	}

	n, err := w.counter.CountSince(ctx, event.Key, event.DeniedAt.Add(-w.window))
	if err != nil {
		w.logger.Error("failed to count recent denials", zap.String("key", event.Key), zap.Error(err))

		return nil
	}

	if n >= w.threshold {
		w.logger.Warn("repeated admission denials",
			zap.String("key", event.Key),
			zap.String("scope", event.Scope),
			zap.Int64("count", n),
			zap.Duration("window", w.window),
		)
	}

	return nil
}

// Compile-time check.
var _ analytics.Store = (*OffenderWatch)(nil)
