package handlers

import (
	"context"
	"time"

	"github.com/serroba/admission-go/internal/analytics"
	"github.com/serroba/admission-go/internal/messaging"
	"github.com/serroba/admission-go/internal/ratelimit"
	"go.uber.org/zap"
)

// AdmissionHandler exposes the limiter to other services over HTTP.
type AdmissionHandler struct {
	limiter       ratelimit.Limiter
	publishDenied messaging.Publish[analytics.DeniedEvent]
	logger        *zap.Logger
}

// NewAdmissionHandler creates a new admission handler.
func NewAdmissionHandler(
	limiter ratelimit.Limiter,
	publishDenied messaging.Publish[analytics.DeniedEvent],
	logger *zap.Logger,
) *AdmissionHandler {
	return &AdmissionHandler{
		limiter:       limiter,
		publishDenied: publishDenied,
		logger:        logger,
	}
}

// Check counts one request against a raw identifier.
func (h *AdmissionHandler) Check(ctx context.Context, req *CheckRequest) (*DecisionResponse, error) {
	cfg := ratelimit.LimitConfig{
		Max:    req.Body.Limit,
		Window: windowFromMs(req.Body.WindowMs),
	}

	if req.Body.BurstLimit != nil {
		cfg.Burst = &ratelimit.BurstConfig{
			Max:    *req.Body.BurstLimit,
			Window: windowFromMs(req.Body.BurstWindowMs),
		}
	}

	d := h.limiter.CheckRateLimit(req.Body.Identifier, cfg)
	h.reportDenied(ctx, req.Body.Identifier, d)

	return newDecisionResponse(d), nil
}

// CheckUser counts one request against a user and action pair.
func (h *AdmissionHandler) CheckUser(ctx context.Context, req *CheckUserRequest) (*DecisionResponse, error) {
	d := h.limiter.CheckUserRateLimit(req.Body.UserID, req.Body.Action, req.Body.Limit, windowFromMs(req.Body.WindowMs))
	h.reportDenied(ctx, ratelimit.UserKey(req.Body.UserID, req.Body.Action), d)

	return newDecisionResponse(d), nil
}

// CheckIP counts one request against a client IP.
func (h *AdmissionHandler) CheckIP(ctx context.Context, req *CheckIPRequest) (*DecisionResponse, error) {
	d := h.limiter.CheckIPRateLimit(req.Body.IP, req.Body.Limit, windowFromMs(req.Body.WindowMs))
	h.reportDenied(ctx, ratelimit.IPKey(req.Body.IP), d)

	return newDecisionResponse(d), nil
}

// reportDenied publishes a denial event. Publish failures are logged only;
// the caller still gets its verdict.
func (h *AdmissionHandler) reportDenied(ctx context.Context, key string, d ratelimit.Decision) {
	if d.Allowed {
		return
	}

	meta := RequestMetaFromContext(ctx)
	event := analytics.NewDeniedEvent(key, d, analytics.SourceCheckAPI, time.Now().UTC())
	event.ClientIP = meta.ClientIP
	event.UserAgent = meta.UserAgent
	event.RequestID = meta.RequestID

	h.logger.Debug("check denied",
		zap.String("key", key),
		zap.String("reason", string(d.Reason)),
		zap.Duration("retry_after", d.RetryAfter),
	)

	if err := h.publishDenied(ctx, event); err != nil {
		h.logger.Error("failed to publish denied event",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
