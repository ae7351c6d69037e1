package analytics

import "context"

// Store defines the interface for persisting denial events.
type Store interface {
	SaveDenied(ctx context.Context, event *DeniedEvent) error
}
