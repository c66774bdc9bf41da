package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/lookali/marketplace-api/internal/apperr"
	"github.com/lookali/marketplace-api/internal/auth"
	"github.com/lookali/marketplace-api/internal/orders"
)

type checkoutStore struct {
	fakeStore

	items       []orders.Item
	preferences map[string]string
	payments    map[string]string
}

func (s *checkoutStore) Items(context.Context, string) ([]orders.Item, error) { return s.items, nil }

func (s *checkoutStore) SetPreference(_ context.Context, orderID, prefID string) error {
	s.preferences[orderID] = prefID
	return nil
}

func (s *checkoutStore) SetPayment(_ context.Context, orderID, paymentID, _, _ string) error {
	s.payments[orderID] = paymentID
	return nil
}

type checkoutProcessor struct {
	Processor

	prefReq PreferenceRequest
	payReq  PaymentRequest
	key     string
}

func (p *checkoutProcessor) CreatePreference(_ context.Context, _ string, req PreferenceRequest) (*Preference, error) {
	p.prefReq = req
	return &Preference{ID: "pref-1", InitPoint: "https://pay.example/pref-1"}, nil
}

func (p *checkoutProcessor) CreatePayment(_ context.Context, _ string, req PaymentRequest, key string) (*Payment, error) {
	p.payReq = req
	p.key = key
	return &Payment{ID: json.Number("555"), Status: "pending"}, nil
}

func newCheckout() (*Checkout, *checkoutStore, *checkoutProcessor) {
	store := &checkoutStore{
		fakeStore: fakeStore{
			orders: map[string]*orders.Order{
				"o1": {ID: "o1", BuyerID: "buyer", PartnerID: "p1", OrderNumber: "#001-AAAAA",
					Status: orders.StatusPending, Total: decimal.RequireFromString("25.00")},
				"o2": {ID: "o2", BuyerID: "buyer", PartnerID: "p1", Status: orders.StatusPaid},
			},
			partners: map[string]Partner{"p1": {ID: "p1", AccessToken: "tok-1"}},
		},
		items: []orders.Item{
			{ProductID: "a", ProductName: "Café", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
			{ProductID: "b", ProductName: "Pão", Quantity: 1, UnitPrice: decimal.RequireFromString("5.00")},
		},
		preferences: map[string]string{},
		payments:    map[string]string{},
	}
	proc := &checkoutProcessor{}
	return &Checkout{Store: store, Processor: proc, PublicBaseURL: "https://api.lookali.com.br"}, store, proc
}

func TestCreatePreference(t *testing.T) {
	c, store, proc := newCheckout()
	pref, err := c.CreatePreference(context.Background(), auth.Principal{UserID: "buyer"}, "o1")
	if err != nil {
		t.Fatalf("CreatePreference() error = %v", err)
	}
	if pref.ID != "pref-1" || store.preferences["o1"] != "pref-1" {
		t.Errorf("preference not stored: %v", store.preferences)
	}
	if proc.prefReq.ExternalReference != "o1" {
		t.Errorf("external_reference = %q", proc.prefReq.ExternalReference)
	}
	if want := "https://api.lookali.com.br/webhooks/payments?partner=p1"; proc.prefReq.NotificationURL != want {
		t.Errorf("notification_url = %q", proc.prefReq.NotificationURL)
	}
	if len(proc.prefReq.Items) != 2 || proc.prefReq.Items[0].CurrencyID != "BRL" {
		t.Errorf("items = %+v", proc.prefReq.Items)
	}
}

func TestCreatePreferenceRules(t *testing.T) {
	c, _, _ := newCheckout()
	tests := []struct {
		name   string
		user   string
		order  string
		status int
	}{
		{"other buyer", "intruder", "o1", http.StatusForbidden},
		{"already paid", "buyer", "o2", http.StatusConflict},
		{"missing", "buyer", "nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.CreatePreference(context.Background(), auth.Principal{UserID: tt.user}, tt.order)
			e, ok := apperr.As(err)
			if !ok || e.Status != tt.status {
				t.Fatalf("err = %v, want status %d", err, tt.status)
			}
		})
	}
}

func TestCreatePix(t *testing.T) {
	c, store, proc := newCheckout()
	res, err := c.CreatePix(context.Background(), auth.Principal{UserID: "buyer"}, "o1", PixInput{PayerEmail: "ana@example.com"})
	if err != nil {
		t.Fatalf("CreatePix() error = %v", err)
	}
	if res.PaymentID != "555" || store.payments["o1"] != "555" {
		t.Errorf("payment id not recorded: %+v %v", res, store.payments)
	}
	if proc.key != "o1:pix" || !proc.payReq.TransactionAmount.Equal(decimal.RequireFromString("25.00")) {
		t.Errorf("request = %+v key=%q", proc.payReq, proc.key)
	}

	_, err = c.CreatePix(context.Background(), auth.Principal{UserID: "buyer"}, "o1", PixInput{PayerEmail: "nope"})
	if e, ok := apperr.As(err); !ok || e.Status != http.StatusBadRequest {
		t.Fatalf("err = %v, want 400", err)
	}
}
