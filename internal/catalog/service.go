package catalog

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"

	"github.com/lookali/marketplace-api/internal/apperr"
	"github.com/lookali/marketplace-api/internal/auth"
	"github.com/lookali/marketplace-api/internal/uniq"
	"github.com/lookali/marketplace-api/internal/validate"
)

var ErrNotFound = errors.New("not found")

var (
	errPartnerNotFound = apperr.NotFound("Loja não encontrada")
	errAccessDenied    = apperr.Forbidden("Acesso negado")
	errRecordNotFound  = apperr.NotFound("Registro não encontrado")
	errNegativePrice   = apperr.BadRequest("price deve ser no mínimo 0")
)

type Store interface {
	PartnerOwner(ctx context.Context, partnerID string) (string, error)
	InsertPartner(ctx context.Context, p *Partner) error
	UpdatePartner(ctx context.Context, p *Partner) error
	SetPaymentCredentials(ctx context.Context, partnerID, accessToken, webhookSecret string) error
	ListPartnersByOwner(ctx context.Context, ownerID string) ([]Partner, error)

	SKUExists(ctx context.Context, sku string) (bool, error)
	InsertProduct(ctx context.Context, p *Product) error
	UpdateProduct(ctx context.Context, p *Product) error
	DeleteProduct(ctx context.Context, partnerID, id string) error
	ListProducts(ctx context.Context, partnerID string) ([]Product, error)

	InsertCustomer(ctx context.Context, c *Customer) error
	UpdateCustomer(ctx context.Context, c *Customer) error
	DeleteCustomer(ctx context.Context, partnerID, id string) error
	ListCustomers(ctx context.Context, partnerID string) ([]Customer, error)

	SupplierCodeExists(ctx context.Context, partnerID, code string) (bool, error)
	InsertSupplier(ctx context.Context, s *Supplier) error
	UpdateSupplier(ctx context.Context, s *Supplier) error
	DeleteSupplier(ctx context.Context, partnerID, id string) error
	ListSuppliers(ctx context.Context, partnerID string) ([]Supplier, error)

	InsertPaymentMethod(ctx context.Context, m *PaymentMethod) error
	UpdatePaymentMethod(ctx context.Context, m *PaymentMethod) error
	DeletePaymentMethod(ctx context.Context, partnerID, id string) error
	ListPaymentMethods(ctx context.Context, partnerID string) ([]PaymentMethod, error)
}

// Service implements the partner back-office. Every mutation is scoped to a
// partner owned by the caller.
type Service struct {
	Store Store
}

func (s *Service) authorize(ctx context.Context, p auth.Principal, partnerID string) error {
	owner, err := s.Store.PartnerOwner(ctx, partnerID)
	if errors.Is(err, ErrNotFound) {
		return errPartnerNotFound
	}
	if err != nil {
		return fmt.Errorf("partner owner: %w", err)
	}
	if owner != p.UserID {
		return errAccessDenied
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return errRecordNotFound
	}
	return err
}

// Partners

func (s *Service) CreatePartner(ctx context.Context, p auth.Principal, in PartnerInput) (*Partner, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	partner := &Partner{ID: uuid.NewString(), OwnerID: p.UserID, Name: strings.TrimSpace(in.Name), TaxID: in.TaxID}
	if err := s.Store.InsertPartner(ctx, partner); err != nil {
		return nil, fmt.Errorf("insert partner: %w", err)
	}
	return partner, nil
}

func (s *Service) UpdatePartner(ctx context.Context, p auth.Principal, id string, in PartnerInput) (*Partner, error) {
	if err := s.authorize(ctx, p, id); err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	partner := &Partner{ID: id, OwnerID: p.UserID, Name: strings.TrimSpace(in.Name), TaxID: in.TaxID}
	if err := s.Store.UpdatePartner(ctx, partner); err != nil {
		return nil, notFound(err)
	}
	return partner, nil
}

func (s *Service) SetPaymentCredentials(ctx context.Context, p auth.Principal, partnerID string, in PaymentCredentialsInput) error {
	if err := s.authorize(ctx, p, partnerID); err != nil {
		return err
	}
	if err := validate.Struct(in); err != nil {
		return err
	}
	return s.Store.SetPaymentCredentials(ctx, partnerID, in.AccessToken, in.WebhookSecret)
}

func (s *Service) MyPartners(ctx context.Context, p auth.Principal) ([]Partner, error) {
	return s.Store.ListPartnersByOwner(ctx, p.UserID)
}

// Products

var skuPrefix = map[Kind]string{
	KindProduct: "PRD",
	KindService: "SRV",
	KindRental:  "ALG",
	KindSpace:   "ESP",
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomCode(alphabet string, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(b)
}

// NewSKU returns a candidate SKU such as PRD-7KQ2ZD.
func NewSKU(k Kind) string {
	return skuPrefix[k] + "-" + randomCode(codeAlphabet, 6)
}

// NewSupplierCode returns a candidate supplier code such as FOR-04821.
func NewSupplierCode() string {
	return "FOR-" + randomCode("0123456789", 5)
}

func checkProduct(in ProductInput) error {
	if err := validate.Struct(in); err != nil {
		return err
	}
	if in.Price.IsNegative() {
		return errNegativePrice
	}
	return nil
}

func (s *Service) CreateProduct(ctx context.Context, p auth.Principal, partnerID string, in ProductInput) (*Product, error) {
	if err := s.authorize(ctx, p, partnerID); err != nil {
		return nil, err
	}
	if err := checkProduct(in); err != nil {
		return nil, err
	}
	sku, err := uniq.Generate(ctx, func() string { return NewSKU(in.Kind) }, s.Store.SKUExists)
	if err != nil {
		return nil, fmt.Errorf("generate sku: %w", err)
	}
	prod := &Product{
		ID:          uuid.NewString(),
		PartnerID:   partnerID,
		Kind:        in.Kind,
		SKU:         sku,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price.Round(2),
		Stock:       in.Stock,
	}
	if err := s.Store.InsertProduct(ctx, prod); err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}
	return prod, nil
}

func (s *Service) UpdateProduct(ctx context.Context, p auth.Principal, partnerID, id string, in ProductInput) (*Product, error) {
	if err := s.authorize(ctx, p, partnerID); err != nil {
		return nil, err
	}
	if err := checkProduct(in); err != nil {
		return nil, err
	}
	prod := &Product{
		ID:          id,
		PartnerID:   partnerID,
		Kind:        in.Kind,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price.Round(2),
		Stock:       in.Stock,
	}
	if err := s.Store.UpdateProduct(ctx, prod); err != nil {
		return nil, notFound(err)
	}
	return prod, nil
}

func (s *Service) DeleteProduct(ctx context.Context, p auth.Principal, partnerID, id string) error {
	if err := s.authorize(ctx, p, partnerID); err != nil {
		return err
	}
	return notFound(s.Store.DeleteProduct(ctx, partnerID, id))
}

func (s *Service) ListProducts(ctx context.Context, partnerID string) ([]Product, error) {
	return s.Store.ListProducts(ctx, partnerID)
}

// Customers

func (s *Service) CreateCustomer(ctx context.Context, p auth.Principal, partnerID string, in CustomerInput) (*Customer, error) {
	if err := s.authorize(ctx, p, partnerID); err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	c := customerFrom(uuid.NewString(), partnerID, in)
	if err := s.Store.InsertCustomer(ctx, c); err != nil {
		return nil, fmt.Errorf("insert customer: %w", err)
	}
	return c, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, p auth.Principal, partnerID, id string, in CustomerInput) (*Customer, error) {
	if err := s.authorize(ctx, p, partnerID); err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	c := customerFrom(id, partnerID, in)
	if err := s.Store.UpdateCustomer(ctx, c); err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func customerFrom(id, partnerID string, in CustomerInput) *Customer {
	return &Customer{
		ID: id, PartnerID: partnerID, Name: strings.TrimSpace(in.Name), Email: in.Email,
		Phone: in.Phone, TaxID: in.TaxID, PostalCode: in.PostalCode, Address: in.Address,
	}
}

func (s *Service) DeleteCustomer(ctx context.Context, p auth.Principal, partnerID, id string) error {
	if err := s.authorize(ctx, p, partnerID); err != nil {
		return err
	}
	return notFound(s.Store.DeleteCustomer(ctx, partnerID, id))
}

func (s *Service) ListCustomers(ctx context.Context, p auth.Principal, partnerID string) ([]Customer, error) {
	if err := s.authorize(ctx, p, partnerID); err != nil {
		return nil, err
	}
	return s.Store.ListCustomers(ctx, partnerID)
}

// Suppliers

func (s *Service) CreateSupplier(ctx context.Context, p auth.Principal, partnerID string, in SupplierInput) (*Supplier, error) {
	if err := s.authorize(ctx, p, partnerID); err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	code, err := uniq.Generate(ctx, NewSupplierCode, func(ctx context.Context, code string) (bool, error) {
		return s.Store.SupplierCodeExists(ctx, partnerID, code)
	})
	if err != nil {
		return nil, fmt.Errorf("generate supplier code: %w", err)
	}
	sup := &Supplier{
		ID: uuid.NewString(), PartnerID: partnerID, Code: code, Name: strings.TrimSpace(in.Name),
		Email: in.Email, Phone: in.Phone, TaxID: in.TaxID,
	}
	if err := s.Store.InsertSupplier(ctx, sup); err != nil {
		return nil, fmt.Errorf("insert supplier: %w", err)
	}
	return sup, nil
}

func (s *Service) UpdateSupplier(ctx context.Context, p auth.Principal, partnerID, id string, in SupplierInput) (*Supplier, error) {
	if err := s.authorize(ctx, p, partnerID); err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	sup := &Supplier{
		ID: id, PartnerID: partnerID, Name: strings.TrimSpace(in.Name),
		Email: in.Email, Phone: in.Phone, TaxID: in.TaxID,
	}
	if err := s.Store.UpdateSupplier(ctx, sup); err != nil {
		return nil, notFound(err)
	}
	return sup, nil
}

func (s *Service) DeleteSupplier(ctx context.Context, p auth.Principal, partnerID, id string) error {
	if err := s.authorize(ctx, p, partnerID); err != nil {
		return err
	}
	return notFound(s.Store.DeleteSupplier(ctx, partnerID, id))
}

func (s *Service) ListSuppliers(ctx context.Context, p auth.Principal, partnerID string) ([]Supplier, error) {
	if err := s.authorize(ctx, p, partnerID); err != nil {
		return nil, err
	}
	return s.Store.ListSuppliers(ctx, partnerID)
}

// Payment methods

func (s *Service) CreatePaymentMethod(ctx context.Context, p auth.Principal, partnerID string, in PaymentMethodInput) (*PaymentMethod, error) {
	if err := s.authorize(ctx, p, partnerID); err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	m := &PaymentMethod{ID: uuid.NewString(), PartnerID: partnerID, Name: strings.TrimSpace(in.Name), Kind: in.Kind, Active: in.Active}
	if err := s.Store.InsertPaymentMethod(ctx, m); err != nil {
		return nil, fmt.Errorf("insert payment method: %w", err)
	}
	return m, nil
}

func (s *Service) UpdatePaymentMethod(ctx context.Context, p auth.Principal, partnerID, id string, in PaymentMethodInput) (*PaymentMethod, error) {
	if err := s.authorize(ctx, p, partnerID); err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	m := &PaymentMethod{ID: id, PartnerID: partnerID, Name: strings.TrimSpace(in.Name), Kind: in.Kind, Active: in.Active}
	if err := s.Store.UpdatePaymentMethod(ctx, m); err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

func (s *Service) DeletePaymentMethod(ctx context.Context, p auth.Principal, partnerID, id string) error {
	if err := s.authorize(ctx, p, partnerID); err != nil {
		return err
	}
	return notFound(s.Store.DeletePaymentMethod(ctx, partnerID, id))
}

func (s *Service) ListPaymentMethods(ctx context.Context, p auth.Principal, partnerID string) ([]PaymentMethod, error) {
	if err := s.authorize(ctx, p, partnerID); err != nil {
		return nil, err
	}
	return s.Store.ListPaymentMethods(ctx, partnerID)
}
