package analytics

import "time"

// TopicAdmissionDenied carries one DeniedEvent per rejected check.
const TopicAdmissionDenied = "admission.denied"

// DeniedEvent records a request that admission control turned away.
type DeniedEvent struct {
	ID           string    `json:"id"`
	Key          string    `json:"key"`
	Scope        string    `json:"scope"`
	Reason       string    `json:"reason"`
	Limit        int64     `json:"limit"`
	RetryAfterMs int64     `json:"retryAfterMs"`
	DeniedAt     time.Time `json:"deniedAt"`
	Source       string    `json:"source"`
	Path         string    `json:"path,omitempty"`
	ClientIP     string    `json:"clientIp,omitempty"`
	UserAgent    string    `json:"userAgent,omitempty"`
	RequestID    string    `json:"requestId,omitempty"`
}

const (
	// SourceMiddleware marks denials of this service's own endpoints.
	SourceMiddleware = "middleware"
	// SourceCheckAPI marks denials returned through the check endpoints.
	SourceCheckAPI = "check_api"
)
