package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"gatekeeper/pkg/requestcontext"
)

// JWTValidator defines the interface for validating admin tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// TokenRevocationChecker reports whether a token id has been revoked.
type TokenRevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// JWTClaims represents the claims the middleware needs from a validated token.
type JWTClaims struct {
	Subject string
	Guilds  []string
	JTI     string
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireAuth validates the bearer token and stores the admin subject and
// guild scope in the request context. revocationChecker may be nil.
func RequireAuth(validator JWTValidator, revocationChecker TokenRevocationChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			if revocationChecker != nil {
				revoked, err := revocationChecker.IsTokenRevoked(ctx, claims.JTI)
				if err != nil {
					logger.ErrorContext(ctx, "failed to check token revocation",
						"error", err,
						"request_id", requestID,
					)
					writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to validate token")
					return
				}
				if revoked {
					logger.WarnContext(ctx, "unauthorized access - token revoked",
						"jti", claims.JTI,
						"request_id", requestID,
					)
					writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Token has been revoked")
					return
				}
			}

			ctx = requestcontext.WithAdmin(ctx, claims.Subject, claims.Guilds)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
