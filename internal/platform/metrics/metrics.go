package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the admin HTTP surface metrics.
type Metrics struct {
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_http_requests_total",
			Help: "Total number of admin HTTP requests, by method, route and status",
		}, []string{"method", "route", "status"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gatekeeper_http_request_duration_seconds",
			Help:    "Admin HTTP request latency, by method and route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Middleware records every request against its chi route pattern, so path
// parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.Requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
