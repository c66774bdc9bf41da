package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := NewServerMetrics(prometheus.NewRegistry(), "api")
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/"+id, nil))
	}

	got := testutil.ToFloat64(m.Requests.WithLabelValues("GET /orders/{id}", "404"))
	if got != 2 {
		t.Errorf("requests = %v, want 2", got)
	}
}

func TestWebhookNilSafe(t *testing.T) {
	var m *ServerMetrics
	m.Webhook("applied")

	m = NewServerMetrics(prometheus.NewRegistry(), "api")
	m.Webhook("applied")
	if got := testutil.ToFloat64(m.Webhooks.WithLabelValues("applied")); got != 1 {
		t.Errorf("webhooks = %v", got)
	}
}
