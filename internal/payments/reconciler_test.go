package payments

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lookali/marketplace-api/internal/orders"
)

type fakeStore struct {
	Store

	byPayment map[string]*orders.Order
	orders    map[string]*orders.Order
	partners  map[string]Partner
	unmatched []orders.Order
	applied   []PaymentUpdate

	ApplyPaymentFunc func(ctx context.Context, u PaymentUpdate) error
}

func (f *fakeStore) FindByPaymentID(_ context.Context, id string) (*orders.Order, error) {
	if o, ok := f.byPayment[id]; ok {
		return o, nil
	}
	return nil, orders.ErrNotFound
}

func (f *fakeStore) Get(_ context.Context, id string) (*orders.Order, error) {
	if o, ok := f.orders[id]; ok {
		return o, nil
	}
	return nil, orders.ErrNotFound
}

func (f *fakeStore) Partner(_ context.Context, id string) (Partner, error) {
	if p, ok := f.partners[id]; ok {
		return p, nil
	}
	return Partner{}, orders.ErrNotFound
}

func (f *fakeStore) UnmatchedOrders(_ context.Context, limit int) ([]orders.Order, error) {
	if len(f.unmatched) > limit {
		return f.unmatched[:limit], nil
	}
	return f.unmatched, nil
}

func (f *fakeStore) ApplyPayment(ctx context.Context, u PaymentUpdate) error {
	if f.ApplyPaymentFunc != nil {
		return f.ApplyPaymentFunc(ctx, u)
	}
	f.applied = append(f.applied, u)
	return nil
}

// fakeProcessor answers GetPayment per access token.
type fakeProcessor struct {
	Processor

	payments map[string]*Payment // token -> payment
	calls    map[string]int
}

func (f *fakeProcessor) GetPayment(_ context.Context, token, _ string) (*Payment, error) {
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[token]++
	if p, ok := f.payments[token]; ok {
		return p, nil
	}
	return nil, &APIError{Status: 404, Message: "not found"}
}

type fixedNumbers string

func (n fixedNumbers) NewNumber(context.Context) (string, error) { return string(n), nil }

type cacheSpy map[string]string

func (c cacheSpy) SetStatus(_ context.Context, id, status string) { c[id] = status }

var webhookNow = time.Unix(1_760_000_000, 0)

func signed(dataID, requestID, secret string) Notification {
	ts := strconv.FormatInt(webhookNow.Unix(), 10)
	return Notification{
		Type:      "payment",
		DataID:    dataID,
		RequestID: requestID,
		Signature: "ts=" + ts + ",v1=" + SignManifest(dataID, requestID, ts, secret),
	}
}

func payment(ref, status, amount string) *Payment {
	return &Payment{
		ID:                json.Number("999"),
		Status:            status,
		ExternalReference: ref,
		TransactionAmount: decimal.RequireFromString(amount),
	}
}

func setup() (*Reconciler, *fakeStore, *fakeProcessor) {
	store := &fakeStore{
		byPayment: map[string]*orders.Order{},
		orders:    map[string]*orders.Order{},
		partners: map[string]Partner{
			"p1": {ID: "p1", AccessToken: "tok-1", WebhookSecret: "sec-1"},
			"p2": {ID: "p2", AccessToken: "tok-2", WebhookSecret: "sec-2"},
		},
	}
	proc := &fakeProcessor{payments: map[string]*Payment{}}
	r := &Reconciler{
		Store:     store,
		Processor: proc,
		Numbers:   fixedNumbers("#00A-XYZ12"),
		Now:       func() time.Time { return webhookNow },
	}
	return r, store, proc
}

func TestHandleIgnoresOtherEvents(t *testing.T) {
	r, _, _ := setup()
	for _, n := range []Notification{{Type: "merchant_order", DataID: "1"}, {Type: "payment"}} {
		out, err := r.Handle(context.Background(), n)
		if err != nil || out != OutcomeIgnored {
			t.Errorf("Handle(%+v) = %v, %v", n, out, err)
		}
	}
}

func TestHandleMissingHeaders(t *testing.T) {
	r, _, _ := setup()
	_, err := r.Handle(context.Background(), Notification{Type: "payment", DataID: "999"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestHandleExactMatch(t *testing.T) {
	r, store, proc := setup()
	cache := cacheSpy{}
	r.Cache = cache
	store.byPayment["999"] = &orders.Order{ID: "o1", PartnerID: "p1", OrderNumber: "#001-AAAAA",
		Total: decimal.RequireFromString("25.00"), Status: orders.StatusPending}
	proc.payments["tok-1"] = payment("o1", "approved", "25.00")

	out, err := r.Handle(context.Background(), signed("999", "req-1", "sec-1"))
	if err != nil || out != OutcomeApplied {
		t.Fatalf("Handle() = %v, %v", out, err)
	}
	if len(store.applied) != 1 {
		t.Fatalf("applied %d updates", len(store.applied))
	}
	u := store.applied[0]
	if u.Status != orders.StatusPaid || u.PaymentID != "999" || u.ProcessorStatus != "approved" {
		t.Errorf("update = %+v", u)
	}
	if u.OrderNumber != "" {
		t.Errorf("existing order number replaced with %q", u.OrderNumber)
	}
	if cache["o1"] != "paid" {
		t.Errorf("cache = %v", cache)
	}
}

func TestHandlePartnerHint(t *testing.T) {
	r, store, proc := setup()
	store.orders["o2"] = &orders.Order{ID: "o2", PartnerID: "p2", Total: decimal.RequireFromString("10.00")}
	proc.payments["tok-2"] = payment("o2", "rejected", "10.00")

	n := signed("999", "req-2", "sec-2")
	n.PartnerHint = "p2"
	if _, err := r.Handle(context.Background(), n); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	u := store.applied[0]
	if u.OrderID != "o2" || u.Status != orders.StatusCancelled {
		t.Errorf("update = %+v", u)
	}
	if u.OrderNumber != "#00A-XYZ12" {
		t.Errorf("missing order number not assigned: %q", u.OrderNumber)
	}
	if proc.calls["tok-1"] != 0 {
		t.Error("hint path should not query other partners")
	}
}

func TestHandleScanFetchesOncePerPartner(t *testing.T) {
	r, store, proc := setup()
	store.unmatched = []orders.Order{
		{ID: "a", PartnerID: "p1", Total: decimal.RequireFromString("5.00")},
		{ID: "b", PartnerID: "p1", Total: decimal.RequireFromString("5.00")},
		{ID: "c", PartnerID: "p2", Total: decimal.RequireFromString("7.50")},
		{ID: "d", PartnerID: "p2", Total: decimal.RequireFromString("7.50")},
	}
	proc.payments["tok-2"] = payment("d", "approved", "7.50")

	if _, err := r.Handle(context.Background(), signed("999", "req-3", "sec-2")); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if store.applied[0].OrderID != "d" {
		t.Errorf("matched %q, want d", store.applied[0].OrderID)
	}
	if proc.calls["tok-1"] != 1 || proc.calls["tok-2"] != 1 {
		t.Errorf("calls = %v, want one per partner", proc.calls)
	}
}

func TestHandleNoMatch(t *testing.T) {
	r, store, _ := setup()
	store.unmatched = []orders.Order{{ID: "a", PartnerID: "p1"}}
	_, err := r.Handle(context.Background(), signed("999", "req", "sec-1"))
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("err = %v, want ErrOrderNotFound", err)
	}
}

func TestHandleBadSignature(t *testing.T) {
	r, store, proc := setup()
	store.byPayment["999"] = &orders.Order{ID: "o1", PartnerID: "p1", Total: decimal.RequireFromString("1.00")}
	proc.payments["tok-1"] = payment("o1", "approved", "1.00")

	_, err := r.Handle(context.Background(), signed("999", "req", "wrong-secret"))
	if !errors.Is(err, ErrUnauthorized) || !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("err = %v", err)
	}
	if len(store.applied) != 0 {
		t.Error("order updated despite bad signature")
	}
}

func TestHandleAmountMismatch(t *testing.T) {
	r, store, proc := setup()
	store.byPayment["999"] = &orders.Order{ID: "o1", PartnerID: "p1", Total: decimal.RequireFromString("10.00")}
	proc.payments["tok-1"] = payment("o1", "approved", "10.02")

	_, err := r.Handle(context.Background(), signed("999", "req", "sec-1"))
	if !errors.Is(err, ErrAmountMismatch) {
		t.Fatalf("err = %v, want ErrAmountMismatch", err)
	}
}

func TestHandleUpdateFailure(t *testing.T) {
	r, store, proc := setup()
	store.byPayment["999"] = &orders.Order{ID: "o1", PartnerID: "p1", OrderNumber: "#001-AAAAA",
		Total: decimal.RequireFromString("10.00")}
	proc.payments["tok-1"] = payment("o1", "approved", "10.00")
	store.ApplyPaymentFunc = func(context.Context, PaymentUpdate) error { return errors.New("db down") }

	_, err := r.Handle(context.Background(), signed("999", "req", "sec-1"))
	if err == nil || errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrAmountMismatch) {
		t.Fatalf("err = %v, want internal error", err)
	}
}
