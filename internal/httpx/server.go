package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lookali/marketplace-api/internal/metrics"
)

// Registrar mounts a handler group. authn guards routes that need a caller.
type Registrar interface {
	Register(r chi.Router, authn func(http.Handler) http.Handler)
}

func NewRouter(m *metrics.ServerMetrics, authn func(http.Handler) http.Handler, hs ...Registrar) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	if m != nil {
		r.Use(m.Middleware)
		r.Handle("/metrics", metrics.Handler())
	}
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	for _, h := range hs {
		h.Register(r, authn)
	}
	return r
}
