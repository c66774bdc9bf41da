package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lookali/marketplace-api/internal/auth"
	"github.com/lookali/marketplace-api/internal/metrics"
	"github.com/lookali/marketplace-api/internal/payments"
	"github.com/lookali/marketplace-api/pkg/logkey"
)

type WebhookReconciler interface {
	Handle(ctx context.Context, n payments.Notification) (payments.Outcome, error)
}

type PaymentStarter interface {
	CreatePreference(ctx context.Context, p auth.Principal, orderID string) (*payments.Preference, error)
	CreatePix(ctx context.Context, p auth.Principal, orderID string, in payments.PixInput) (*payments.PixResult, error)
}

type PaymentsHandler struct {
	Reconciler WebhookReconciler
	Checkout   PaymentStarter
	Metrics    *metrics.ServerMetrics
}

type webhookBody struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (h *PaymentsHandler) Register(r chi.Router, authn func(http.Handler) http.Handler) {
	r.Post("/webhooks/payments", h.webhook)
	r.Get("/webhooks/payments", h.webhookProbe)

	r.Group(func(r chi.Router) {
		r.Use(authn)
		r.Post("/orders/{id}/payments/preference", h.createPreference)
		r.Post("/orders/{id}/payments/pix", h.createPix)
	})
}

// webhookProbe answers the processor's reachability check.
func (h *PaymentsHandler) webhookProbe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *PaymentsHandler) webhook(w http.ResponseWriter, r *http.Request) {
	var body webhookBody
	if err := decode(r, &body); err != nil {
		h.Metrics.Webhook("bad_request")
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	n := payments.Notification{
		Type:        body.Type,
		Action:      body.Action,
		DataID:      body.Data.ID,
		Signature:   r.Header.Get("x-signature"),
		RequestID:   r.Header.Get("x-request-id"),
		PartnerHint: q.Get("partner"),
	}
	// Older notification formats only carry the id and topic in the query.
	if n.DataID == "" {
		n.DataID = q.Get("data.id")
	}
	if n.Type == "" {
		n.Type = q.Get("type")
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	outcome, err := h.Reconciler.Handle(ctx, n)
	if err != nil {
		code, label, msg := webhookFailure(err)
		h.Metrics.Webhook(label)
		slog.WarnContext(ctx, "payment webhook rejected",
			slog.String(logkey.TraceID, middleware.GetReqID(ctx)),
			slog.String(logkey.PaymentID, n.DataID),
			slog.String(logkey.PartnerID, n.PartnerHint),
			slog.String(logkey.ERROR, err.Error()))
		writeJSON(w, code, map[string]string{"error": msg})
		return
	}
	if outcome == payments.OutcomeIgnored {
		h.Metrics.Webhook("ignored")
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}
	h.Metrics.Webhook("applied")
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func webhookFailure(err error) (int, string, string) {
	switch {
	case errors.Is(err, payments.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized", "Assinatura inválida"
	case errors.Is(err, payments.ErrOrderNotFound):
		return http.StatusNotFound, "order_not_found", "Pedido não encontrado"
	case errors.Is(err, payments.ErrAmountMismatch):
		return http.StatusBadRequest, "amount_mismatch", "Valor do pagamento não confere"
	default:
		return http.StatusInternalServerError, "error", "Erro interno"
	}
}

func (h *PaymentsHandler) createPreference(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	pref, err := h.Checkout.CreatePreference(ctx, p, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, pref)
}

func (h *PaymentsHandler) createPix(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req payments.PixInput
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	res, err := h.Checkout.CreatePix(ctx, p, chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}
