package store

import (
	"context"

	"github.com/serroba/admission-go/internal/analytics"
	"go.uber.org/zap"
)

// Noop is a no-op implementation of analytics.Store that logs events.
type Noop struct {
	logger *zap.Logger
}

// NewNoop creates a new no-op analytics store.
func NewNoop(logger *zap.Logger) *Noop {
	return &Noop{logger: logger}
}

// SaveDenied logs the event and drops it.
func (n *Noop) SaveDenied(_ context.Context, event *analytics.DeniedEvent) error {
	n.logger.Info("admission denied event received",
		zap.String("id", event.ID),
		zap.String("key", event.Key),
		zap.String("scope", event.Scope),
		zap.String("reason", event.Reason),
		zap.Int64("retryAfterMs", event.RetryAfterMs),
		zap.Time("deniedAt", event.DeniedAt),
	)

	return nil
}

// Compile-time check.
var _ analytics.Store = (*Noop)(nil)
