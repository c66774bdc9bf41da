package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the catalog listing type.
type Kind string

const (
	KindProduct Kind = "product"
	KindService Kind = "service"
	KindRental  Kind = "rental"
	KindSpace   Kind = "space"
)

func (k Kind) Valid() bool {
	switch k {
	case KindProduct, KindService, KindRental, KindSpace:
		return true
	}
	return false
}

type Partner struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"owner_id"`
	Name          string    `json:"name"`
	TaxID         string    `json:"tax_id"`
	AverageRating *float64  `json:"average_rating"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Product struct {
	ID            string          `json:"id"`
	PartnerID     string          `json:"partner_id"`
	Kind          Kind            `json:"kind"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	Stock         int             `json:"stock"`
	AverageRating *float64        `json:"average_rating"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type Customer struct {
	ID         string    `json:"id"`
	PartnerID  string    `json:"partner_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	TaxID      string    `json:"tax_id"`
	PostalCode string    `json:"postal_code"`
	Address    string    `json:"address"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Supplier struct {
	ID        string    `json:"id"`
	PartnerID string    `json:"partner_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	TaxID     string    `json:"tax_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PaymentMethod struct {
	ID        string    `json:"id"`
	PartnerID string    `json:"partner_id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Inputs accepted by the back-office endpoints.

type PartnerInput struct {
	Name  string `json:"name" validate:"required,max=120"`
	TaxID string `json:"tax_id" validate:"omitempty,numeric,len=14"`
}

type PaymentCredentialsInput struct {
	AccessToken   string `json:"access_token" validate:"required,max=255"`
	WebhookSecret string `json:"webhook_secret" validate:"required,max=255"`
}

type ProductInput struct {
	Kind        Kind            `json:"kind" validate:"required,oneof=product service rental space"`
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description" validate:"max=5000"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"min=0"`
}

type CustomerInput struct {
	Name       string `json:"name" validate:"required,max=200"`
	Email      string `json:"email" validate:"omitempty,email"`
	Phone      string `json:"phone" validate:"max=30"`
	TaxID      string `json:"tax_id" validate:"omitempty,numeric,min=11,max=14"`
	PostalCode string `json:"postal_code" validate:"omitempty,numeric,len=8"`
	Address    string `json:"address" validate:"max=500"`
}

type SupplierInput struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone" validate:"max=30"`
	TaxID string `json:"tax_id" validate:"omitempty,numeric,min=11,max=14"`
}

type PaymentMethodInput struct {
	Name   string `json:"name" validate:"required,max=80"`
	Kind   string `json:"kind" validate:"required,oneof=pix cash credit_card debit_card boleto transfer"`
	Active bool   `json:"active"`
}
