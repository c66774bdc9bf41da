package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lookali/marketplace-api/internal/events"
	"github.com/lookali/marketplace-api/internal/orders"
	"github.com/lookali/marketplace-api/pkg/logkey"
)

// DefaultScanLimit bounds the unmatched-order fallback search.
const DefaultScanLimit = 50

var (
	ErrUnauthorized   = errors.New("webhook: unauthorized")
	ErrOrderNotFound  = errors.New("webhook: no matching order")
	ErrAmountMismatch = errors.New("webhook: amount mismatch")
)

// Notification is one webhook delivery.
type Notification struct {
	Type        string
	Action      string
	DataID      string
	Signature   string // x-signature
	RequestID   string // x-request-id
	PartnerHint string // ?partner= on the notification URL
}

type Partner struct {
	ID            string
	AccessToken   string
	WebhookSecret string
}

type PaymentUpdate struct {
	OrderID         string
	PaymentID       string
	Status          orders.Status
	ProcessorStatus string
	StatusDetail    string
	OrderNumber     string // set only when the order had none
}

type Store interface {
	FindByPaymentID(ctx context.Context, paymentID string) (*orders.Order, error)
	Get(ctx context.Context, orderID string) (*orders.Order, error)
	Items(ctx context.Context, orderID string) ([]orders.Item, error)
	Partner(ctx context.Context, partnerID string) (Partner, error)
	UnmatchedOrders(ctx context.Context, limit int) ([]orders.Order, error)
	ApplyPayment(ctx context.Context, u PaymentUpdate) error
	SetPreference(ctx context.Context, orderID, preferenceID string) error
	SetPayment(ctx context.Context, orderID, paymentID, status, detail string) error
}

type Processor interface {
	GetPayment(ctx context.Context, token, id string) (*Payment, error)
	CreatePreference(ctx context.Context, token string, req PreferenceRequest) (*Preference, error)
	CreatePayment(ctx context.Context, token string, req PaymentRequest, idempotencyKey string) (*Payment, error)
}

// NumberSource hands out fresh order numbers; satisfied by *orders.Service.
type NumberSource interface {
	NewNumber(ctx context.Context) (string, error)
}

type StatusCache interface {
	SetStatus(ctx context.Context, orderID, status string)
}

type Outcome int

const (
	OutcomeIgnored Outcome = iota
	OutcomeApplied
)

// Reconciler is the only writer of payment-derived order state.
type Reconciler struct {
	Store     Store
	Processor Processor
	Numbers   NumberSource
	Cache     StatusCache     // optional
	Events    *events.Emitter // order.status.changed
	ScanLimit int
	Now       func() time.Time
}

type match struct {
	order   *orders.Order
	partner Partner
	payment *Payment
}

func (r *Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Handle reconciles one notification. Errors wrap ErrUnauthorized,
// ErrOrderNotFound or ErrAmountMismatch; anything else is internal.
func (r *Reconciler) Handle(ctx context.Context, n Notification) (Outcome, error) {
	if n.Type != "payment" || n.DataID == "" {
		return OutcomeIgnored, nil
	}
	if n.Signature == "" || n.RequestID == "" {
		return OutcomeIgnored, fmt.Errorf("%w: missing signature headers", ErrUnauthorized)
	}

	m, err := r.locate(ctx, n)
	if err != nil {
		return OutcomeIgnored, err
	}
	log := slog.With(slog.String(logkey.OrderID, m.order.ID), slog.String(logkey.PaymentID, n.DataID))

	if err := ValidateSignature(n.Signature, n.RequestID, n.DataID, m.partner.WebhookSecret, r.now()); err != nil {
		log.WarnContext(ctx, "webhook signature rejected", slog.String(logkey.ERROR, err.Error()))
		return OutcomeIgnored, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	if !AmountMatches(m.order.Total, m.payment.TransactionAmount) {
		log.WarnContext(ctx, "webhook amount mismatch",
			slog.String("order_total", m.order.Total.StringFixed(2)),
			slog.String("paid", m.payment.TransactionAmount.StringFixed(2)))
		return OutcomeIgnored, ErrAmountMismatch
	}

	u := PaymentUpdate{
		OrderID:         m.order.ID,
		PaymentID:       n.DataID,
		Status:          MapStatus(m.payment.Status),
		ProcessorStatus: m.payment.Status,
		StatusDetail:    m.payment.StatusDetail,
	}
	if m.order.OrderNumber == "" && r.Numbers != nil {
		num, err := r.Numbers.NewNumber(ctx)
		if err != nil {
			return OutcomeIgnored, fmt.Errorf("order number: %w", err)
		}
		u.OrderNumber = num
	}
	if err := r.Store.ApplyPayment(ctx, u); err != nil {
		return OutcomeIgnored, fmt.Errorf("apply payment: %w", err)
	}

	if r.Cache != nil {
		r.Cache.SetStatus(ctx, m.order.ID, string(u.Status))
	}
	r.Events.Emit(events.EventOrderPaymentUpdated, m.order.ID, n.RequestID, orders.StatusChangedPayload{
		OrderID:   m.order.ID,
		PartnerID: m.order.PartnerID,
		From:      m.order.Status,
		To:        u.Status,
		Source:    "payment",
		PaymentID: n.DataID,
	})
	log.InfoContext(ctx, "payment reconciled",
		slog.String("processor_status", m.payment.Status),
		slog.String("status", string(u.Status)))
	return OutcomeApplied, nil
}

// locate finds the order a payment belongs to: by recorded payment id, then
// through the partner hint, then by scanning recent unmatched orders.
func (r *Reconciler) locate(ctx context.Context, n Notification) (*match, error) {
	o, err := r.Store.FindByPaymentID(ctx, n.DataID)
	switch {
	case err == nil:
		partner, err := r.Store.Partner(ctx, o.PartnerID)
		if err != nil {
			return nil, fmt.Errorf("partner: %w", err)
		}
		p, err := r.Processor.GetPayment(ctx, partner.AccessToken, n.DataID)
		if err != nil {
			return nil, fmt.Errorf("get payment: %w", err)
		}
		return &match{order: o, partner: partner, payment: p}, nil
	case !errors.Is(err, orders.ErrNotFound):
		return nil, fmt.Errorf("find by payment id: %w", err)
	}

	if n.PartnerHint != "" {
		m, err := r.byHint(ctx, n)
		if err != nil {
			return nil, err
		}
		if m != nil {
			return m, nil
		}
	}
	return r.scan(ctx, n)
}

func (r *Reconciler) byHint(ctx context.Context, n Notification) (*match, error) {
	partner, err := r.Store.Partner(ctx, n.PartnerHint)
	if errors.Is(err, orders.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("partner: %w", err)
	}
	p, err := r.Processor.GetPayment(ctx, partner.AccessToken, n.DataID)
	if err != nil {
		slog.WarnContext(ctx, "payment lookup by hint failed",
			slog.String(logkey.PartnerID, partner.ID), slog.String(logkey.ERROR, err.Error()))
		return nil, nil
	}
	if p.ExternalReference == "" {
		return nil, nil
	}
	o, err := r.Store.Get(ctx, p.ExternalReference)
	if errors.Is(err, orders.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if o.PartnerID != partner.ID {
		return nil, nil
	}
	return &match{order: o, partner: partner, payment: p}, nil
}

// scan checks recent unmatched orders. The payment is fetched once per
// distinct partner and the first order whose id equals the payment's
// external reference wins.
func (r *Reconciler) scan(ctx context.Context, n Notification) (*match, error) {
	limit := r.ScanLimit
	if limit <= 0 {
		limit = DefaultScanLimit
	}
	candidates, err := r.Store.UnmatchedOrders(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("unmatched orders: %w", err)
	}

	type fetched struct {
		partner Partner
		payment *Payment
	}
	seen := make(map[string]fetched)
	for i := range candidates {
		o := &candidates[i]
		f, ok := seen[o.PartnerID]
		if !ok {
			partner, err := r.Store.Partner(ctx, o.PartnerID)
			if err == nil && partner.AccessToken != "" {
				f.partner = partner
				f.payment, err = r.Processor.GetPayment(ctx, partner.AccessToken, n.DataID)
			}
			if err != nil {
				slog.DebugContext(ctx, "payment not visible to partner",
					slog.String(logkey.PartnerID, o.PartnerID), slog.String(logkey.ERROR, err.Error()))
			}
			seen[o.PartnerID] = f
		}
		if f.payment != nil && f.payment.ExternalReference == o.ID {
			return &match{order: o, partner: f.partner, payment: f.payment}, nil
		}
	}
	return nil, ErrOrderNotFound
}
