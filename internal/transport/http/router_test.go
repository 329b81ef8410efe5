package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	jwttoken "gatekeeper/internal/jwt_token"
	"gatekeeper/internal/platform/metrics"
	"gatekeeper/pkg/requestcontext"
)

type echoRoutes struct{}

func (echoRoutes) Register(r chi.Router) {
	r.Get("/config", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"guild":   chi.URLParam(r, "guildID"),
			"subject": requestcontext.AdminSubject(r.Context()),
		})
	})
}

type RouterSuite struct {
	suite.Suite
	jwt     *jwttoken.JWTService
	healthy error
	router  http.Handler
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.jwt = jwttoken.NewJWTService("router-test-key", "gatekeeper")
	s.healthy = nil
	reg := prometheus.NewRegistry()
	s.router = NewRouter(Deps{
		Logger:    slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		Validator: jwttoken.NewJWTServiceAdapter(s.jwt),
		Metrics:   metrics.NewWith(reg),
		Gatherer:  reg,
		Checks: map[string]HealthCheck{
			"database": func(context.Context) error { return s.healthy },
		},
		Guilds: echoRoutes{},
	})
}

func (s *RouterSuite) get(path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RouterSuite) token(guilds ...string) string {
	tok, err := s.jwt.GenerateAdminToken("ops@example.com", guilds, time.Hour)
	s.Require().NoError(err)
	return tok
}

func (s *RouterSuite) TestHealthz() {
	w := s.get("/healthz", "")
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"status":"ok","checks":{"database":"ok"}}`, w.Body.String())

	s.healthy = errors.New("connection refused")
	w = s.get("/healthz", "")
	s.Equal(http.StatusServiceUnavailable, w.Code)
	s.Contains(w.Body.String(), "degraded")
}

func (s *RouterSuite) TestMetricsEndpoint() {
	s.get("/healthz", "")

	w := s.get("/metrics", "")

	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "gatekeeper_http_requests_total")
}

func (s *RouterSuite) TestGuildRoutesRequireToken() {
	w := s.get("/guilds/g1/config", "")
	s.Equal(http.StatusUnauthorized, w.Code)
	s.NotEmpty(w.Header().Get("X-Request-ID"))
}

func (s *RouterSuite) TestGuildRoutesEnforceScope() {
	w := s.get("/guilds/g2/config", s.token("g1"))
	s.Equal(http.StatusForbidden, w.Code)
}

func (s *RouterSuite) TestScopedTokenReachesHandler() {
	w := s.get("/guilds/g1/config", s.token("g1"))

	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"guild":"g1","subject":"ops@example.com"}`, w.Body.String())
}
