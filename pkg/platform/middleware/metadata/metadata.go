// Package metadata tags each admin request with a correlation id and the
// caller's address.
package metadata

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"gatekeeper/pkg/requestcontext"
)

// HeaderRequestID carries a caller-supplied correlation id and is echoed on every response.
const HeaderRequestID = "X-Request-ID"

const maxRequestIDLength = 128

type contextKeyClientIP struct{}

// RequestMetadata assigns the request id and client IP. It should be the
// first middleware in the chain so every log line can carry the id.
func RequestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(HeaderRequestID))
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		ctx = WithClientIP(ctx, ClientIPFromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(contextKeyClientIP{}).(string); ok {
		return ip
	}
	return ""
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKeyClientIP{}, ip)
}

// ClientIPFromRequest prefers the first X-Forwarded-For hop, then X-Real-IP,
// then the connection address.
func ClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
