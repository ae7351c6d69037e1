package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/admission-go/internal/analytics"
	"github.com/serroba/admission-go/internal/handlers"
	"github.com/serroba/admission-go/internal/messaging"
	"github.com/serroba/admission-go/internal/ratelimit"
	"go.uber.org/zap"
)

// UserIDHeader carries the authenticated user id. It is set by the upstream
// auth layer; this service never parses tokens.
const UserIDHeader = "X-User-ID"

const (
	headerLimit     = "X-RateLimit-Limit"
	headerRemaining = "X-RateLimit-Remaining"
	headerReset     = "X-RateLimit-Reset"
	headerRetry     = "Retry-After"
)

// AdmissionControl returns a Huma middleware that checks every request
// against the limiter before it reaches the handler.
//
// Per-endpoint configuration can be provided via operation metadata using
// ratelimit.MetadataKey; operations without it use defaults. An endpoint can:
//   - Disable admission control entirely (Disabled: true)
//   - Key by user and action instead of IP (Scope: ratelimit.ScopeUser)
//   - Define its own quota and burst cap (Limit: ratelimit.LimitConfig{...})
func AdmissionControl(
	api huma.API,
	limiter ratelimit.Limiter,
	defaults ratelimit.EndpointConfig,
	clientIP ClientIPFunc,
	publishDenied messaging.Publish[analytics.DeniedEvent],
	logger *zap.Logger,
) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		cfg := defaults
		if c := ratelimit.GetEndpointConfig(ctx); c != nil {
			cfg = *c
		}

		if cfg.Disabled {
			next(ctx)

			return
		}

		key := resolveKey(ctx, cfg, clientIP)
		d := limiter.CheckRateLimit(key, cfg.Limit)

		writeRateLimitHeaders(ctx, d)

		if !d.Allowed {
			handleDenied(api, ctx, key, clientIP(ctx), d, publishDenied, logger)

			return
		}

		next(ctx)
	}
}

// resolveKey picks the scope key for the request. User scope falls back to
// the client IP when no user id is present.
func resolveKey(ctx huma.Context, cfg ratelimit.EndpointConfig, clientIP ClientIPFunc) string {
	if cfg.Scope == ratelimit.ScopeUser {
		if userID := ctx.Header(UserIDHeader); userID != "" {
			return ratelimit.UserKey(userID, actionName(ctx, cfg))
		}
	}

	return ratelimit.IPKey(clientIP(ctx))
}

// actionName defaults to the operation ID, then to the route template.
func actionName(ctx huma.Context, cfg ratelimit.EndpointConfig) string {
	if cfg.Action != "" {
		return cfg.Action
	}

	if op := ctx.Operation(); op != nil {
		if op.OperationID != "" {
			return op.OperationID
		}

		return op.Path
	}

	return ""
}

func writeRateLimitHeaders(ctx huma.Context, d ratelimit.Decision) {
	ctx.SetHeader(headerLimit, strconv.FormatInt(d.Limit, 10))
	ctx.SetHeader(headerRemaining, strconv.FormatInt(d.Remaining, 10))
	ctx.SetHeader(headerReset, strconv.FormatInt(d.ResetTime.Unix(), 10))
}

// handleDenied logs, publishes and responds to a denied request.
func handleDenied(
	api huma.API,
	ctx huma.Context,
	key, ip string,
	d ratelimit.Decision,
	publishDenied messaging.Publish[analytics.DeniedEvent],
	logger *zap.Logger,
) {
	path := getOperationPath(ctx)
	meta := handlers.RequestMetaFromContext(ctx.Context())

	logger.Warn("rate limit exceeded",
		zap.String("path", path),
		zap.String("method", ctx.Method()),
		zap.String("key", key),
		zap.String("reason", string(d.Reason)),
		zap.Int64("limit", d.Limit),
		zap.Duration("retry_after", d.RetryAfter),
		zap.String("request_id", meta.RequestID),
	)

	event := analytics.NewDeniedEvent(key, d, analytics.SourceMiddleware, time.Now().UTC())
	event.Path = path
	event.ClientIP = ip
	event.UserAgent = ctx.Header("User-Agent")
	event.RequestID = meta.RequestID

	if err := publishDenied(ctx.Context(), event); err != nil {
		logger.Error("failed to publish denied event", zap.String("key", key), zap.Error(err))
	}

	ctx.SetHeader(headerRetry, strconv.FormatInt(d.RetryAfterSeconds(), 10))

	msg := fmt.Sprintf("rate limit exceeded: retry in %s", d.RetryAfter.Round(time.Millisecond))
	if d.Reason == ratelimit.ReasonBurst {
		msg = fmt.Sprintf("too many requests in a short burst: retry in %s", d.RetryAfter.Round(time.Millisecond))
	}

	_ = huma.WriteErr(api, ctx, http.StatusTooManyRequests, msg)
}

// getOperationPath extracts the path from the operation, if available.
func getOperationPath(ctx huma.Context) string {
	if op := ctx.Operation(); op != nil {
		return op.Path
	}

	return ""
}
