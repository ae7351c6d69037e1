package ratelimit

import "time"

// Reason explains why a check was denied.
type Reason string

const (
	// ReasonNone is set on admitted decisions.
	ReasonNone Reason = ""
	// ReasonLimit means the primary window quota is exhausted.
	ReasonLimit Reason = "limit"
	// ReasonBurst means the burst sub-window cap was hit.
	ReasonBurst Reason = "burst"
	// ReasonInvalid means the limit configuration cannot admit anything.
	ReasonInvalid Reason = "invalid"
)

// Decision is the verdict returned by every check.
type Decision struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetTime time.Time
	// RetryAfter is zero for admitted decisions and positive for denials.
	RetryAfter time.Duration
	Reason     Reason
}

// RetryAfterSeconds returns RetryAfter rounded up to whole seconds,
// the unit of the HTTP Retry-After header.
func (d Decision) RetryAfterSeconds() int64 {
	if d.RetryAfter <= 0 {
		return 0
	}

	secs := int64(d.RetryAfter / time.Second)
	if d.RetryAfter%time.Second != 0 {
		secs++
	}

	return secs
}
