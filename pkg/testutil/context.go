package testutil

import (
	"net/http"

	"gatekeeper/pkg/requestcontext"
)

// WithAdmin attaches an authenticated admin to the request, as the auth
// middleware would after validating a token.
func WithAdmin(req *http.Request, subject string, guilds ...string) *http.Request {
	return req.WithContext(requestcontext.WithAdmin(req.Context(), subject, guilds))
}

// AdminMiddleware authenticates every request as subject, for handler tests
// mounted without the real auth chain.
func AdminMiddleware(subject string, guilds ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, WithAdmin(r, subject, guilds...))
		})
	}
}
