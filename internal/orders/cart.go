package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/lookali/marketplace-api/internal/auth"
	"github.com/lookali/marketplace-api/internal/validate"
)

func (s *Service) AddToCart(ctx context.Context, p auth.Principal, in CartInput) (*CartItem, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	snap, err := s.Store.Snapshot(ctx, in.ProductID)
	if errors.Is(err, ErrNotFound) {
		return nil, errItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("item snapshot: %w", err)
	}
	c := &CartItem{
		ID:          uuid.NewString(),
		UserID:      p.UserID,
		ProductID:   in.ProductID,
		PartnerID:   snap.PartnerID,
		ProductName: snap.Name,
		Price:       snap.Price,
		Quantity:    in.Quantity,
	}
	if err := s.Store.AddCartItem(ctx, c); err != nil {
		return nil, fmt.Errorf("add cart item: %w", err)
	}
	return c, nil
}

func (s *Service) ListCart(ctx context.Context, p auth.Principal) ([]CartItem, error) {
	return s.Store.ListCart(ctx, p.UserID)
}

func (s *Service) RemoveFromCart(ctx context.Context, p auth.Principal, id string) error {
	err := s.Store.RemoveCartItem(ctx, p.UserID, id)
	if errors.Is(err, ErrNotFound) {
		return errCartNotFound
	}
	return err
}
