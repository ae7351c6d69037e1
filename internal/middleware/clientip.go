package middleware

import (
	"net"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// ClientIPFunc resolves the client address of a request.
type ClientIPFunc func(ctx huma.Context) string

// ClientIP returns a resolver for the client address. Forwarding headers
// are only honoured when trustProxyHeaders is set, since any client can
// send them; otherwise the peer address of the connection is used.
func ClientIP(trustProxyHeaders bool) ClientIPFunc {
	if !trustProxyHeaders {
		return remoteIP
	}

	return forwardedIP
}

func forwardedIP(ctx huma.Context) string {
	// Check X-Forwarded-For header (may contain multiple IPs)
	if xff := ctx.Header("X-Forwarded-For"); xff != "" {
		// Take the first IP (original client)
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}

		return strings.TrimSpace(xff)
	}

	if xri := ctx.Header("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	return remoteIP(ctx)
}

func remoteIP(ctx huma.Context) string {
	addr := ctx.RemoteAddr()

	ip, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}

	return ip
}
