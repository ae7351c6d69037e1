package handlers

import (
	"math"
	"strconv"
	"time"

	"github.com/serroba/admission-go/internal/ratelimit"
)

// CheckRequest is the request body for a raw identifier check.
type CheckRequest struct {
	Body struct {
		Identifier    string `doc:"Opaque scope key; may be empty"             example:"api-key-7" json:"identifier"`
		Limit         int64  `doc:"Max requests per window; <= 0 always denies" example:"100"       json:"limit"`
		WindowMs      int64  `doc:"Window length in milliseconds"               example:"60000"     json:"windowMs"                maximum:"9223372036854"`
		BurstLimit    *int64 `doc:"Optional cap inside the burst sub-window"    example:"10"        json:"burstLimit,omitempty"`
		BurstWindowMs int64  `doc:"Burst sub-window in milliseconds"            example:"1000"      json:"burstWindowMs,omitempty" maximum:"9223372036854"`
	}
}

// CheckUserRequest is the request body for a per-user, per-action check.
type CheckUserRequest struct {
	Body struct {
		UserID   string `doc:"Authenticated user id"         example:"42"    json:"userId"`
		Action   string `doc:"Guarded action"                example:"login" json:"action"`
		Limit    int64  `doc:"Max requests per window"       example:"5"     json:"limit"`
		WindowMs int64  `doc:"Window length in milliseconds" example:"60000" json:"windowMs" maximum:"9223372036854"`
	}
}

// CheckIPRequest is the request body for a per-IP check.
type CheckIPRequest struct {
	Body struct {
		IP       string `doc:"Client IP"                     example:"203.0.113.7" json:"ip"`
		Limit    int64  `doc:"Max requests per window"       example:"100"         json:"limit"`
		WindowMs int64  `doc:"Window length in milliseconds" example:"60000"       json:"windowMs" maximum:"9223372036854"`
	}
}

// DecisionBody is the admission verdict.
type DecisionBody struct {
	Allowed      bool      `doc:"Whether the action may proceed"         json:"allowed"`
	Limit        int64     `doc:"Configured limit"                       json:"limit"`
	Remaining    int64     `doc:"Requests left in the current window"    json:"remaining"`
	ResetTime    time.Time `doc:"When the current window ends"           json:"resetTime"`
	RetryAfterMs int64     `doc:"Milliseconds to wait; set when denied"  json:"retryAfterMs,omitempty"`
	Reason       string    `doc:"Why the request was denied"             json:"reason,omitempty" enum:"limit,burst,invalid"`
}

// DecisionResponse wraps the verdict. Denials are still 200: the verdict is data.
type DecisionResponse struct {
	Headers struct {
		RetryAfter string `doc:"Seconds until retry, set when denied" header:"Retry-After"`
	}
	Body DecisionBody
}

func newDecisionResponse(d ratelimit.Decision) *DecisionResponse {
	resp := &DecisionResponse{}
	resp.Body = DecisionBody{
		Allowed:      d.Allowed,
		Limit:        d.Limit,
		Remaining:    d.Remaining,
		ResetTime:    d.ResetTime,
		RetryAfterMs: d.RetryAfter.Milliseconds(),
		Reason:       string(d.Reason),
	}

	if !d.Allowed {
		resp.Headers.RetryAfter = strconv.FormatInt(d.RetryAfterSeconds(), 10)

		// Sub-millisecond waits must still read as a positive delay.
		if resp.Body.RetryAfterMs == 0 {
			resp.Body.RetryAfterMs = 1
		}
	}

	return resp
}

// maxWindowMs is the longest window, in milliseconds, a time.Duration holds.
const maxWindowMs = math.MaxInt64 / int64(time.Millisecond)

// windowFromMs converts a millisecond count, clamping values that would
// overflow time.Duration to the longest representable window.
func windowFromMs(ms int64) time.Duration {
	if ms > maxWindowMs {
		ms = maxWindowMs
	}

	return time.Duration(ms) * time.Millisecond
}
