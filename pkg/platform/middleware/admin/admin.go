// Package admin scopes admin API routes to the guilds an admin token names.
package admin

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"gatekeeper/pkg/requestcontext"
)

// AllGuilds in a token's scope grants access to every guild.
const AllGuilds = "*"

// CanAccess reports whether guilds (a token scope) covers guildID.
func CanAccess(guilds []string, guildID string) bool {
	return guildID != "" && (slices.Contains(guilds, AllGuilds) || slices.Contains(guilds, guildID))
}

// RequireGuildAccess rejects requests whose {param} URL parameter is outside
// the authenticated admin's guild scope. It must run after auth.RequireAuth.
func RequireGuildAccess(param string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			guildID := chi.URLParam(r, param)
			if !CanAccess(requestcontext.AdminGuilds(ctx), guildID) {
				logger.WarnContext(ctx, "admin token not scoped to guild",
					"request_id", requestcontext.RequestID(ctx),
					"subject", requestcontext.AdminSubject(ctx),
					"guild_id", guildID,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","error_description":"token is not scoped to this guild"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
