// Package requesttime provides middleware that pins "now" for a request.
// All operations within a single HTTP request use the same timestamp,
// ensuring consistency in audit logs and domain timestamps.
package requesttime

import (
	"net/http"
	"time"

	"gatekeeper/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request
// and stores it in the context for consistent time references throughout the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
