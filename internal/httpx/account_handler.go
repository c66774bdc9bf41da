package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lookali/marketplace-api/internal/apperr"
	"github.com/lookali/marketplace-api/internal/lookup"
	"github.com/lookali/marketplace-api/internal/twofactor"
)

// AccountHandler serves two-factor management and the address/company
// lookups used by the sign-up and back-office forms.
type AccountHandler struct {
	TwoFactor *twofactor.Service
	Lookup    *lookup.Client
}

type codeReq struct {
	Code string `json:"code"`
}

func (h *AccountHandler) Register(r chi.Router, authn func(http.Handler) http.Handler) {
	r.Get("/lookup/cep/{cep}", h.lookupCEP)
	r.Get("/lookup/cnpj/{cnpj}", h.lookupCNPJ)

	r.Group(func(r chi.Router) {
		r.Use(authn)
		r.Get("/2fa", h.status)
		r.Post("/2fa/setup", h.setup)
		r.Post("/2fa/enable", h.enable)
		r.Post("/2fa/verify", h.verify)
		r.Post("/2fa/disable", h.disable)
	})
}

func (h *AccountHandler) status(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	enabled, err := h.TwoFactor.Status(ctx, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": enabled})
}

func (h *AccountHandler) setup(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	res, err := h.TwoFactor.Setup(ctx, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *AccountHandler) enable(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req codeReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	// bcrypt hashing of the backup codes dominates here.
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	codes, err := h.TwoFactor.Enable(ctx, p, req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"backup_codes": codes})
}

func (h *AccountHandler) verify(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req codeReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	valid, err := h.TwoFactor.Verify(ctx, p.UserID, req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !valid {
		writeError(w, r, apperr.New(http.StatusUnauthorized, "Código inválido"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

func (h *AccountHandler) disable(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req codeReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.TwoFactor.Disable(ctx, p, req.Code); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AccountHandler) lookupCEP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 12*time.Second)
	defer cancel()
	writeJSON(w, http.StatusOK, h.Lookup.LookupCEP(ctx, chi.URLParam(r, "cep")))
}

func (h *AccountHandler) lookupCNPJ(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 12*time.Second)
	defer cancel()
	writeJSON(w, http.StatusOK, h.Lookup.LookupCNPJ(ctx, chi.URLParam(r, "cnpj")))
}
