package middleware

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/admission-go/internal/handlers"
)

// RequestIDHeader is read from the request when present and always echoed back.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLen bounds caller-supplied request ids.
const maxRequestIDLen = 64

// RequestMeta is a middleware that adds request id, client IP, user-agent,
// and user id to the request context.
func RequestMeta(_ huma.API, newID func() string, clientIP ClientIPFunc) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		requestID := ctx.Header(RequestIDHeader)
		if requestID == "" || len(requestID) > maxRequestIDLen {
			requestID = newID()
		}

		ctx.SetHeader(RequestIDHeader, requestID)

		meta := handlers.RequestMeta{
			RequestID: requestID,
			ClientIP:  clientIP(ctx),
			UserAgent: ctx.Header("User-Agent"),
			UserID:    ctx.Header(UserIDHeader),
		}

		newCtx := handlers.ContextWithRequestMeta(ctx.Context(), meta)
		ctx = huma.WithContext(ctx, newCtx)

		next(ctx)
	}
}
