package reviews

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/lookali/marketplace-api/internal/apperr"
	"github.com/lookali/marketplace-api/internal/auth"
)

const (
	partnerID = "0b7d8a52-1111-4000-8000-000000000001"
	productID = "0b7d8a52-1111-4000-8000-0000000000a1"
	orderID   = "0b7d8a52-1111-4000-8000-0000000000f1"
)

// memStore is an in-memory Store shared by the gate and service tests.
type memStore struct {
	owner      string
	paid       map[string]bool // user -> has paid order with partnerID
	reviews    map[string]*Review
	orders30d  int
	fraud      []FraudCheck
	orderBuyer string
	products   map[string]string // product -> partner

	InsertFraudCheckFunc func(ctx context.Context, fc FraudCheck) error
}

func newMemStore() *memStore {
	return &memStore{
		owner:      "seller",
		paid:       map[string]bool{},
		reviews:    map[string]*Review{},
		orderBuyer: "buyer",
		products:   map[string]string{productID: partnerID},
	}
}

func (m *memStore) PartnerOwner(_ context.Context, id string) (string, error) {
	if id != partnerID {
		return "", ErrNotFound
	}
	return m.owner, nil
}

func (m *memStore) HasPaidOrder(_ context.Context, userID, _ string) (bool, error) {
	return m.paid[userID], nil
}

func (m *memStore) HasReviewedProduct(_ context.Context, userID, productID string) (bool, error) {
	for _, r := range m.reviews {
		if r.UserID == userID && r.ProductID != nil && *r.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) RatingsByUserForPartner(_ context.Context, userID, partnerID string) ([]int, error) {
	var out []int
	for _, r := range m.reviews {
		if r.UserID == userID && r.PartnerID == partnerID {
			out = append(out, r.Rating)
		}
	}
	return out, nil
}

func (m *memStore) CountOrdersSince(context.Context, string, time.Time) (int, error) {
	return m.orders30d, nil
}

func (m *memStore) InsertFraudCheck(ctx context.Context, fc FraudCheck) error {
	if m.InsertFraudCheckFunc != nil {
		return m.InsertFraudCheckFunc(ctx, fc)
	}
	m.fraud = append(m.fraud, fc)
	return nil
}

func (m *memStore) OrderParties(_ context.Context, id string) (string, string, error) {
	if id != orderID {
		return "", "", ErrNotFound
	}
	return m.orderBuyer, partnerID, nil
}

func (m *memStore) ProductPartner(_ context.Context, id string) (string, error) {
	p, ok := m.products[id]
	if !ok {
		return "", ErrNotFound
	}
	return p, nil
}

func (m *memStore) Insert(_ context.Context, r *Review) error {
	m.reviews[r.ID] = r
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (*Review, error) {
	r, ok := m.reviews[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) Update(_ context.Context, r *Review) error {
	m.reviews[r.ID] = r
	return nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	delete(m.reviews, id)
	return nil
}

func (m *memStore) ListByProduct(context.Context, string) ([]Review, error) { return nil, nil }
func (m *memStore) ListByPartner(context.Context, string) ([]Review, error) { return nil, nil }

func input() CreateInput {
	return CreateInput{OrderID: orderID, PartnerID: partnerID, ProductID: productID, Rating: 5}
}

func wantStatus(t *testing.T, err error, status int) {
	t.Helper()
	e, ok := apperr.As(err)
	if !ok || e.Status != status {
		t.Fatalf("err = %v, want status %d", err, status)
	}
}

func TestGateBlocksOwnStore(t *testing.T) {
	store := newMemStore()
	store.paid["seller"] = true
	g := &Gate{Store: store}
	err := g.Check(context.Background(), "seller", input())
	wantStatus(t, err, http.StatusForbidden)
	if err.Error() != "Você não pode avaliar sua própria loja" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestGateRequiresPaidOrderThenOneReviewPerProduct(t *testing.T) {
	store := newMemStore()
	svc := &Service{Store: store, Gate: &Gate{Store: store}}
	buyer := auth.Principal{UserID: "buyer"}

	_, err := svc.Create(context.Background(), buyer, input())
	wantStatus(t, err, http.StatusForbidden)
	if err.Error() != "Você precisa ter um pedido pago com esta loja para avaliar" {
		t.Errorf("message = %q", err.Error())
	}

	store.paid["buyer"] = true
	if _, err := svc.Create(context.Background(), buyer, input()); err != nil {
		t.Fatalf("first review rejected: %v", err)
	}

	_, err = svc.Create(context.Background(), buyer, input())
	wantStatus(t, err, http.StatusConflict)
	if err.Error() != "Você já avaliou este produto" {
		t.Errorf("message = %q", err.Error())
	}
	if len(store.reviews) != 1 {
		t.Errorf("stored %d reviews, want 1", len(store.reviews))
	}
}

func TestGateUnknownPartner(t *testing.T) {
	g := &Gate{Store: newMemStore()}
	in := input()
	in.PartnerID = "0b7d8a52-1111-4000-8000-00000000dead"
	wantStatus(t, g.Check(context.Background(), "buyer", in), http.StatusNotFound)
}

func TestGateHeuristicsAreNonBlocking(t *testing.T) {
	store := newMemStore()
	store.paid["buyer"] = true
	store.orders30d = 5
	for i, rating := range []int{5, 4, 5} {
		id := string(rune('a' + i))
		store.reviews[id] = &Review{ID: id, UserID: "buyer", PartnerID: partnerID, Rating: rating}
	}
	g := &Gate{Store: store}

	if err := g.Check(context.Background(), "buyer", input()); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	kinds := map[string]bool{}
	for _, fc := range store.fraud {
		kinds[fc.Kind] = true
	}
	if !kinds[FraudRepeatedHighRatings] || !kinds[FraudHighOrderFrequency] {
		t.Errorf("fraud checks = %+v", store.fraud)
	}

	store.InsertFraudCheckFunc = func(context.Context, FraudCheck) error { return errors.New("db down") }
	if err := g.Check(context.Background(), "buyer", input()); err != nil {
		t.Fatalf("audit failure blocked the review: %v", err)
	}
}

func TestGateHeuristicThresholds(t *testing.T) {
	store := newMemStore()
	store.paid["buyer"] = true
	store.orders30d = 4
	store.reviews["a"] = &Review{ID: "a", UserID: "buyer", PartnerID: partnerID, Rating: 5}
	store.reviews["b"] = &Review{ID: "b", UserID: "buyer", PartnerID: partnerID, Rating: 5}
	store.reviews["c"] = &Review{ID: "c", UserID: "buyer", PartnerID: partnerID, Rating: 3}

	if err := (&Gate{Store: store}).Check(context.Background(), "buyer", input()); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if len(store.fraud) != 0 {
		t.Errorf("unexpected fraud checks: %+v", store.fraud)
	}
}
