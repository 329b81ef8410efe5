package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	m := NewWith(prometheus.NewRegistry())
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/guilds/{guildID}/config", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, g := range []string{"g1", "g2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/guilds/"+g+"/config", nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues(http.MethodGet, "/guilds/{guildID}/config", "418")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestDuration))
}
