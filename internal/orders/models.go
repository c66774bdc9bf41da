package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lookali/marketplace-api/internal/catalog"
)

type Order struct {
	ID              string          `json:"id"`
	OrderNumber     string          `json:"order_number"`
	BuyerID         string          `json:"buyer_id"`
	BuyerName       string          `json:"buyer_name"`
	PartnerID       string          `json:"partner_id"`
	Total           decimal.Decimal `json:"total"`
	DeliveryType    string          `json:"delivery_type"`
	DeliveryAddress string          `json:"delivery_address"`
	PaymentMethod   string          `json:"payment_method"`
	Notes           string          `json:"notes"`
	Status          Status          `json:"status"`
	MPPaymentID     *string         `json:"mp_payment_id"`
	MPPaymentStatus *string         `json:"mp_payment_status"`
	MPStatusDetail  *string         `json:"mp_status_detail"`
	MPPreferenceID  *string         `json:"mp_preference_id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Items           []Item          `json:"items,omitempty"`
}

// Item is a point-in-time copy of the product at checkout.
type Item struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"order_id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type CartItem struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	ProductID   string          `json:"product_id"`
	PartnerID   string          `json:"partner_id"`
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Snapshot is the catalog data copied into an order item.
type Snapshot struct {
	ProductID string
	PartnerID string
	Kind      catalog.Kind
	Name      string
	Price     decimal.Decimal
}

type CreateOrderInput struct {
	BuyerID         string          `json:"buyer_id" validate:"required"`
	PartnerID       string          `json:"partner_id" validate:"required,uuid"`
	ItemID          string          `json:"item_id" validate:"required,uuid"`
	ItemType        catalog.Kind    `json:"item_type" validate:"required,oneof=product service rental space"`
	Quantity        int             `json:"quantity" validate:"min=1"`
	Total           decimal.Decimal `json:"total"`
	DeliveryType    string          `json:"delivery_type" validate:"required,oneof=pickup delivery"`
	DeliveryAddress string          `json:"delivery_address" validate:"required_if=DeliveryType delivery,max=500"`
	PaymentMethod   string          `json:"payment_method" validate:"required,max=80"`
	Notes           string          `json:"notes" validate:"max=1000"`
}

type CheckoutItem struct {
	CartItemID string          `json:"cart_item_id" validate:"required,uuid"`
	ProductID  string          `json:"product_id" validate:"required,uuid"`
	Quantity   int             `json:"quantity" validate:"min=1"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

type CheckoutInput struct {
	PartnerID       string         `json:"partner_id" validate:"required,uuid"`
	Items           []CheckoutItem `json:"items" validate:"required,min=1,dive"`
	DeliveryType    string         `json:"delivery_type" validate:"required,oneof=pickup delivery"`
	DeliveryAddress string         `json:"delivery_address" validate:"required_if=DeliveryType delivery,max=500"`
	PaymentMethod   string         `json:"payment_method" validate:"required,max=80"`
	Notes           string         `json:"notes" validate:"max=1000"`
}

type CartInput struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"min=1"`
}
