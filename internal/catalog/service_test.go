package catalog

import (
	"context"
	"net/http"
	"regexp"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/lookali/marketplace-api/internal/apperr"
	"github.com/lookali/marketplace-api/internal/auth"
)

type fakeStore struct {
	Store

	owners        map[string]string
	takenSKUs     map[string]bool
	takenSupplier map[string]bool

	InsertProductFunc  func(ctx context.Context, p *Product) error
	InsertSupplierFunc func(ctx context.Context, s *Supplier) error
}

func (f *fakeStore) PartnerOwner(_ context.Context, partnerID string) (string, error) {
	owner, ok := f.owners[partnerID]
	if !ok {
		return "", ErrNotFound
	}
	return owner, nil
}

func (f *fakeStore) SKUExists(_ context.Context, sku string) (bool, error) {
	return f.takenSKUs[sku], nil
}

func (f *fakeStore) SupplierCodeExists(_ context.Context, _ string, code string) (bool, error) {
	return f.takenSupplier[code], nil
}

func (f *fakeStore) InsertProduct(ctx context.Context, p *Product) error {
	if f.InsertProductFunc != nil {
		return f.InsertProductFunc(ctx, p)
	}
	return nil
}

func (f *fakeStore) InsertSupplier(ctx context.Context, s *Supplier) error {
	if f.InsertSupplierFunc != nil {
		return f.InsertSupplierFunc(ctx, s)
	}
	return nil
}

func (f *fakeStore) DeleteProduct(context.Context, string, string) error { return ErrNotFound }

var owner = auth.Principal{UserID: "user-1", Email: "dono@lookali.com.br"}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	e, ok := apperr.As(err)
	if !ok {
		t.Fatalf("expected apperr, got %v", err)
	}
	return e.Status
}

func TestCreateProductOwnership(t *testing.T) {
	svc := &Service{Store: &fakeStore{owners: map[string]string{"p1": "user-1"}}}
	in := ProductInput{Kind: KindProduct, Name: "Queijo", Price: decimal.RequireFromString("12.50")}

	_, err := svc.CreateProduct(context.Background(), owner, "missing", in)
	if got := statusOf(t, err); got != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", got)
	}

	intruder := auth.Principal{UserID: "user-2"}
	_, err = svc.CreateProduct(context.Background(), intruder, "p1", in)
	if got := statusOf(t, err); got != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", got)
	}
}

func TestCreateProductSKU(t *testing.T) {
	var saved *Product
	store := &fakeStore{
		owners:    map[string]string{"p1": "user-1"},
		takenSKUs: map[string]bool{},
		InsertProductFunc: func(_ context.Context, p *Product) error {
			saved = p
			return nil
		},
	}
	svc := &Service{Store: store}

	prod, err := svc.CreateProduct(context.Background(), owner, "p1", ProductInput{
		Kind: KindRental, Name: " Bicicleta ", Price: decimal.RequireFromString("30.456"),
	})
	if err != nil {
		t.Fatalf("CreateProduct() error = %v", err)
	}
	if saved != prod {
		t.Fatal("product not persisted")
	}
	if !regexp.MustCompile(`^ALG-[A-Z0-9]{6}$`).MatchString(prod.SKU) {
		t.Errorf("SKU = %q", prod.SKU)
	}
	if prod.Name != "Bicicleta" {
		t.Errorf("Name = %q", prod.Name)
	}
	if !prod.Price.Equal(decimal.RequireFromString("30.46")) {
		t.Errorf("Price = %s", prod.Price)
	}
}

func TestCreateProductRejectsNegativePrice(t *testing.T) {
	svc := &Service{Store: &fakeStore{owners: map[string]string{"p1": "user-1"}}}
	_, err := svc.CreateProduct(context.Background(), owner, "p1", ProductInput{
		Kind: KindProduct, Name: "x", Price: decimal.NewFromInt(-1),
	})
	if got := statusOf(t, err); got != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", got)
	}
}

func TestCreateSupplierCode(t *testing.T) {
	svc := &Service{Store: &fakeStore{
		owners:        map[string]string{"p1": "user-1"},
		takenSupplier: map[string]bool{},
	}}
	sup, err := svc.CreateSupplier(context.Background(), owner, "p1", SupplierInput{Name: "Atacado Sul"})
	if err != nil {
		t.Fatalf("CreateSupplier() error = %v", err)
	}
	if !regexp.MustCompile(`^FOR-\d{5}$`).MatchString(sup.Code) {
		t.Errorf("Code = %q", sup.Code)
	}
}

func TestDeleteMissingProduct(t *testing.T) {
	svc := &Service{Store: &fakeStore{owners: map[string]string{"p1": "user-1"}}}
	err := svc.DeleteProduct(context.Background(), owner, "p1", "nope")
	if got := statusOf(t, err); got != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", got)
	}
}

func TestKindValid(t *testing.T) {
	for _, k := range []Kind{KindProduct, KindService, KindRental, KindSpace} {
		if !k.Valid() {
			t.Errorf("%q should be valid", k)
		}
	}
	if Kind("car").Valid() {
		t.Error("unknown kind accepted")
	}
}
