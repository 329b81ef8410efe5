package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gatekeeper/internal/platform/metrics"
	"gatekeeper/pkg/platform/httputil"
	"gatekeeper/pkg/platform/middleware/admin"
	authmw "gatekeeper/pkg/platform/middleware/auth"
	"gatekeeper/pkg/platform/middleware/metadata"
	"gatekeeper/pkg/platform/middleware/requesttime"
)

// HealthCheck probes one dependency; a nil error means healthy.
type HealthCheck func(ctx context.Context) error

// GuildRoutes mounts handlers under /guilds/{guildID}.
type GuildRoutes interface {
	Register(r chi.Router)
}

type Deps struct {
	Logger      *slog.Logger
	Validator   authmw.JWTValidator
	Revocations authmw.TokenRevocationChecker
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	Checks      map[string]HealthCheck
	Guilds      GuildRoutes
}

// NewRouter wires the admin surface: unauthenticated health and metrics, and
// guild-scoped configuration behind admin bearer tokens.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(metadata.RequestMetadata)
	r.Use(chimw.Recoverer)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}

	r.Get("/healthz", healthz(d.Checks))
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/guilds/{guildID}", func(r chi.Router) {
		r.Use(authmw.RequireAuth(d.Validator, d.Revocations, d.Logger))
		r.Use(admin.RequireGuildAccess("guildID", d.Logger))
		r.Use(requesttime.Middleware)
		d.Guilds.Register(r)
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthz(checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		for _, name := range names {
			if resp.Checks == nil {
				resp.Checks = make(map[string]string, len(names))
			}
			if err := checks[name](ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
