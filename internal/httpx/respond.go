package httpx

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"github.com/lookali/marketplace-api/internal/apperr"
	"github.com/lookali/marketplace-api/internal/auth"
	"github.com/lookali/marketplace-api/pkg/logkey"
)

const maxBody = 1 << 20

func init() {
	// Money goes out as JSON numbers, e.g. "total": 25.5.
	decimal.MarshalJSONWithoutQuotes = true
}

var errInvalidJSON = apperr.BadRequest("JSON inválido")

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders user-facing errors verbatim and hides everything else
// behind a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if e, ok := apperr.As(err); ok {
		writeJSON(w, e.Status, map[string]string{"error": e.Message})
		return
	}
	slog.ErrorContext(r.Context(), "request failed",
		slog.String(logkey.TraceID, middleware.GetReqID(r.Context())),
		slog.String("path", r.URL.Path),
		slog.String(logkey.ERROR, err.Error()))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Erro interno"})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(v); err != nil {
		return errInvalidJSON
	}
	return nil
}

// principal fetches the caller set by auth.Verifier.Middleware, answering 401
// itself when the route was mounted without it.
func principal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthenticated)
	}
	return p, ok
}
