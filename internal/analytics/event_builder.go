package analytics

import (
	"time"

	"github.com/google/uuid"
	"github.com/serroba/admission-go/internal/ratelimit"
)

// NewDeniedEvent builds the event for a denied decision on key.
// Callers fill in the request fields they know about.
func NewDeniedEvent(key string, d ratelimit.Decision, source string, at time.Time) *DeniedEvent {
	return &DeniedEvent{
		ID:           uuid.NewString(),
		Key:          key,
		Scope:        string(ratelimit.ScopeOf(key)),
		Reason:       string(d.Reason),
		Limit:        d.Limit,
		RetryAfterMs: d.RetryAfter.Milliseconds(),
		DeniedAt:     at,
		Source:       source,
	}
}
