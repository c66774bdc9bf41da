package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lookali/marketplace-api/internal/apperr"
	"github.com/lookali/marketplace-api/internal/auth"
	"github.com/lookali/marketplace-api/internal/events"
	"github.com/lookali/marketplace-api/internal/uniq"
	"github.com/lookali/marketplace-api/internal/validate"
	"github.com/lookali/marketplace-api/pkg/logkey"
)

var ErrNotFound = errors.New("not found")

var (
	errSelfOnly          = apperr.Forbidden("Você só pode criar pedidos para você mesmo")
	errOrderNotFound     = apperr.NotFound("Pedido não encontrado")
	errItemNotFound      = apperr.NotFound("Item não encontrado")
	errPartnerNotFound   = apperr.NotFound("Loja não encontrada")
	errAccessDenied      = apperr.Forbidden("Acesso negado")
	errItemKindMismatch  = apperr.BadRequest("Tipo de item inválido")
	errItemOtherPartner  = apperr.BadRequest("Item não pertence a esta loja")
	errNegativeTotal     = apperr.BadRequest("total deve ser no mínimo 0")
	errNegativeUnitPrice = apperr.BadRequest("unit_price deve ser no mínimo 0")
	errInvalidStatus     = apperr.BadRequest("Status inválido")
	errInvalidTransition = apperr.BadRequest("Transição de status inválida")
	errCartNotFound      = apperr.NotFound("Item do carrinho não encontrado")
)

type Store interface {
	LatestOrderNumber(ctx context.Context) (string, error)
	OrderNumberExists(ctx context.Context, number string) (bool, error)
	BuyerName(ctx context.Context, userID string) (string, error)
	Snapshot(ctx context.Context, productID string) (Snapshot, error)
	PartnerOwner(ctx context.Context, partnerID string) (string, error)

	// Create writes the order, its items and removes the given cart rows in
	// one transaction.
	Create(ctx context.Context, o *Order, items []Item, cartItemIDs []string) error
	Get(ctx context.Context, id string) (*Order, error)
	Items(ctx context.Context, orderID string) ([]Item, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]Order, error)
	ListByPartner(ctx context.Context, partnerID string) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, s Status) error
	Delete(ctx context.Context, id string) error

	AddCartItem(ctx context.Context, c *CartItem) error
	ListCart(ctx context.Context, userID string) ([]CartItem, error)
	RemoveCartItem(ctx context.Context, userID, id string) error
}

type StatusCache interface {
	SetStatus(ctx context.Context, orderID, status string)
	GetStatus(ctx context.Context, orderID string) (string, bool)
}

type Service struct {
	Store   Store
	Cache   StatusCache     // optional
	Created *events.Emitter // order.created
	Changed *events.Emitter // order.status.changed
}

// NewNumber returns an order number not yet used by any order.
func (s *Service) NewNumber(ctx context.Context) (string, error) {
	latest, err := s.Store.LatestOrderNumber(ctx)
	if err != nil {
		return "", fmt.Errorf("latest order number: %w", err)
	}
	return uniq.Generate(ctx, func() string { return NextOrderNumber(latest) }, s.Store.OrderNumberExists)
}

func (s *Service) CreateOrder(ctx context.Context, p auth.Principal, in CreateOrderInput) (*Order, error) {
	if in.BuyerID != p.UserID {
		return nil, errSelfOnly
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if in.Total.IsNegative() {
		return nil, errNegativeTotal
	}

	snap, err := s.Store.Snapshot(ctx, in.ItemID)
	if errors.Is(err, ErrNotFound) {
		return nil, errItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("item snapshot: %w", err)
	}
	if snap.Kind != in.ItemType {
		return nil, errItemKindMismatch
	}
	if snap.PartnerID != in.PartnerID {
		return nil, errItemOtherPartner
	}

	o, err := s.newOrder(ctx, p, in.PartnerID, in.DeliveryType, in.DeliveryAddress, in.PaymentMethod, in.Notes)
	if err != nil {
		return nil, err
	}
	o.Total = in.Total.Round(2)

	price := snap.Price.Round(2)
	items := []Item{{
		ID:          uuid.NewString(),
		OrderID:     o.ID,
		ProductID:   snap.ProductID,
		ProductName: snap.Name,
		UnitPrice:   price,
		Quantity:    in.Quantity,
		Subtotal:    price.Mul(decimal.NewFromInt(int64(in.Quantity))),
	}}
	if err := s.Store.Create(ctx, o, items, nil); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	s.created(ctx, o, items)
	return o, nil
}

// CheckoutCart turns the caller's cart rows for one partner into a single
// order. Prices come from the request and are summed per line.
func (s *Service) CheckoutCart(ctx context.Context, p auth.Principal, in CheckoutInput) (*Order, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	o, err := s.newOrder(ctx, p, in.PartnerID, in.DeliveryType, in.DeliveryAddress, in.PaymentMethod, in.Notes)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(in.Items))
	cartIDs := make([]string, 0, len(in.Items))
	total := decimal.Zero
	for _, ci := range in.Items {
		if ci.UnitPrice.IsNegative() {
			return nil, errNegativeUnitPrice
		}
		snap, err := s.Store.Snapshot(ctx, ci.ProductID)
		if errors.Is(err, ErrNotFound) {
			return nil, errItemNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("item snapshot: %w", err)
		}
		if snap.PartnerID != in.PartnerID {
			return nil, errItemOtherPartner
		}
		price := ci.UnitPrice.Round(2)
		sub := price.Mul(decimal.NewFromInt(int64(ci.Quantity)))
		total = total.Add(sub)
		items = append(items, Item{
			ID:          uuid.NewString(),
			OrderID:     o.ID,
			ProductID:   ci.ProductID,
			ProductName: snap.Name,
			UnitPrice:   price,
			Quantity:    ci.Quantity,
			Subtotal:    sub,
		})
		cartIDs = append(cartIDs, ci.CartItemID)
	}
	o.Total = total

	if err := s.Store.Create(ctx, o, items, cartIDs); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	s.created(ctx, o, items)
	return o, nil
}

func (s *Service) newOrder(ctx context.Context, p auth.Principal, partnerID, deliveryType, address, method, notes string) (*Order, error) {
	name, err := s.Store.BuyerName(ctx, p.UserID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("buyer name: %w", err)
	}
	number, err := s.NewNumber(ctx)
	if err != nil {
		return nil, err
	}
	return &Order{
		ID:              uuid.NewString(),
		OrderNumber:     number,
		BuyerID:         p.UserID,
		BuyerName:       name,
		PartnerID:       partnerID,
		DeliveryType:    deliveryType,
		DeliveryAddress: address,
		PaymentMethod:   method,
		Notes:           notes,
		Status:          StatusPending,
	}, nil
}

func (s *Service) created(ctx context.Context, o *Order, items []Item) {
	o.Items = items
	if s.Cache != nil {
		s.Cache.SetStatus(ctx, o.ID, string(o.Status))
	}
	s.Created.Emit(events.EventOrderCreated, o.ID, middleware.GetReqID(ctx), OrderCreatedPayload{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		BuyerID:     o.BuyerID,
		PartnerID:   o.PartnerID,
		Total:       o.Total.StringFixed(2),
		Items:       toLines(items),
	})
	slog.InfoContext(ctx, "order created",
		slog.String(logkey.OrderID, o.ID),
		slog.String(logkey.PartnerID, o.PartnerID),
		slog.String("order_number", o.OrderNumber))
}

func (s *Service) load(ctx context.Context, id string) (*Order, error) {
	o, err := s.Store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, errOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (s *Service) ownsPartner(ctx context.Context, p auth.Principal, partnerID string) (bool, error) {
	owner, err := s.Store.PartnerOwner(ctx, partnerID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("partner owner: %w", err)
	}
	return owner == p.UserID, nil
}

// sellerOrder loads an order the caller may manage as the store owner.
func (s *Service) sellerOrder(ctx context.Context, p auth.Principal, id string) (*Order, error) {
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.ownsPartner(ctx, p, o.PartnerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errAccessDenied
	}
	return o, nil
}

// Get returns the order with its items to the buyer or the store owner.
func (s *Service) Get(ctx context.Context, p auth.Principal, id string) (*Order, error) {
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.BuyerID != p.UserID {
		ok, err := s.ownsPartner(ctx, p, o.PartnerID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errAccessDenied
		}
	}
	items, err := s.Store.Items(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("order items: %w", err)
	}
	o.Items = items
	return o, nil
}

// Status answers from the cache first and fills it on a miss.
func (s *Service) Status(ctx context.Context, id string) (Status, error) {
	if s.Cache != nil {
		if st, ok := s.Cache.GetStatus(ctx, id); ok {
			return Status(st), nil
		}
	}
	o, err := s.load(ctx, id)
	if err != nil {
		return "", err
	}
	if s.Cache != nil {
		s.Cache.SetStatus(ctx, id, string(o.Status))
	}
	return o.Status, nil
}

func (s *Service) ListForBuyer(ctx context.Context, p auth.Principal) ([]Order, error) {
	return s.Store.ListByBuyer(ctx, p.UserID)
}

func (s *Service) ListForPartner(ctx context.Context, p auth.Principal, partnerID string) ([]Order, error) {
	owner, err := s.Store.PartnerOwner(ctx, partnerID)
	if errors.Is(err, ErrNotFound) {
		return nil, errPartnerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("partner owner: %w", err)
	}
	if owner != p.UserID {
		return nil, errAccessDenied
	}
	return s.Store.ListByPartner(ctx, partnerID)
}

// UpdateStatus applies a manual status change by the store owner.
func (s *Service) UpdateStatus(ctx context.Context, p auth.Principal, id string, to Status) (*Order, error) {
	if !to.Valid() {
		return nil, errInvalidStatus
	}
	o, err := s.sellerOrder(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, to) {
		return nil, errInvalidTransition
	}
	if err := s.Store.UpdateStatus(ctx, id, to); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errOrderNotFound
		}
		return nil, fmt.Errorf("update status: %w", err)
	}
	from := o.Status
	o.Status = to
	if s.Cache != nil {
		s.Cache.SetStatus(ctx, id, string(to))
	}
	s.Changed.Emit(events.EventOrderStatusChanged, id, middleware.GetReqID(ctx), StatusChangedPayload{
		OrderID: id, PartnerID: o.PartnerID, From: from, To: to, Source: "seller",
	})
	return o, nil
}

// Delete removes the order and, through the foreign key, its items.
func (s *Service) Delete(ctx context.Context, p auth.Principal, id string) error {
	if _, err := s.sellerOrder(ctx, p, id); err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return errOrderNotFound
		}
		return fmt.Errorf("delete order: %w", err)
	}
	slog.InfoContext(ctx, "order deleted", slog.String(logkey.OrderID, id), slog.String(logkey.UserID, p.UserID))
	return nil
}
