package reviews

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/lookali/marketplace-api/internal/apperr"
	"github.com/lookali/marketplace-api/internal/auth"
	"github.com/lookali/marketplace-api/internal/events"
	"github.com/lookali/marketplace-api/internal/validate"
)

var ErrNotFound = errors.New("not found")

var (
	errReviewNotFound = apperr.NotFound("Avaliação não encontrada")
	errNotAuthor      = apperr.Forbidden("Você só pode alterar suas próprias avaliações")
	errInvalidOrder   = apperr.BadRequest("Pedido inválido para esta avaliação")
	errProductMissing = apperr.NotFound("Produto não encontrado")
	errProductOther   = apperr.BadRequest("Produto não pertence a esta loja")
)

type Store interface {
	GateStore
	OrderParties(ctx context.Context, orderID string) (buyerID, partnerID string, err error)
	ProductPartner(ctx context.Context, productID string) (string, error)
	Insert(ctx context.Context, r *Review) error
	Get(ctx context.Context, id string) (*Review, error)
	Update(ctx context.Context, r *Review) error
	Delete(ctx context.Context, id string) error
	ListByProduct(ctx context.Context, productID string) ([]Review, error)
	ListByPartner(ctx context.Context, partnerID string) ([]Review, error)
}

type Service struct {
	Store  Store
	Gate   *Gate
	Events *events.Emitter // review.changed
}

func (s *Service) Create(ctx context.Context, p auth.Principal, in CreateInput) (*Review, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	buyer, partner, err := s.Store.OrderParties(ctx, in.OrderID)
	if errors.Is(err, ErrNotFound) {
		return nil, errInvalidOrder
	}
	if err != nil {
		return nil, fmt.Errorf("order parties: %w", err)
	}
	if buyer != p.UserID || partner != in.PartnerID {
		return nil, errInvalidOrder
	}
	if in.ProductID != "" {
		owner, err := s.Store.ProductPartner(ctx, in.ProductID)
		if errors.Is(err, ErrNotFound) {
			return nil, errProductMissing
		}
		if err != nil {
			return nil, fmt.Errorf("product partner: %w", err)
		}
		if owner != in.PartnerID {
			return nil, errProductOther
		}
	}
	if err := s.Gate.Check(ctx, p.UserID, in); err != nil {
		return nil, err
	}

	r := &Review{
		ID:        uuid.NewString(),
		OrderID:   in.OrderID,
		UserID:    p.UserID,
		PartnerID: in.PartnerID,
		Rating:    in.Rating,
		Comment:   in.Comment,
	}
	if in.ProductID != "" {
		r.ProductID = &in.ProductID
	}
	if err := s.Store.Insert(ctx, r); err != nil {
		return nil, fmt.Errorf("insert review: %w", err)
	}
	s.changed(ctx, r, "created")
	return r, nil
}

func (s *Service) authored(ctx context.Context, p auth.Principal, id string) (*Review, error) {
	r, err := s.Store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, errReviewNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if r.UserID != p.UserID {
		return nil, errNotAuthor
	}
	return r, nil
}

func (s *Service) Update(ctx context.Context, p auth.Principal, id string, in UpdateInput) (*Review, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	r, err := s.authored(ctx, p, id)
	if err != nil {
		return nil, err
	}
	r.Rating = in.Rating
	r.Comment = in.Comment
	if err := s.Store.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}
	s.changed(ctx, r, "updated")
	return r, nil
}

func (s *Service) Delete(ctx context.Context, p auth.Principal, id string) error {
	r, err := s.authored(ctx, p, id)
	if err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	s.changed(ctx, r, "deleted")
	return nil
}

func (s *Service) ListForProduct(ctx context.Context, productID string) ([]Review, error) {
	return s.Store.ListByProduct(ctx, productID)
}

func (s *Service) ListForPartner(ctx context.Context, partnerID string) ([]Review, error) {
	return s.Store.ListByPartner(ctx, partnerID)
}

// changed hands the rating recomputation to the ratings worker.
func (s *Service) changed(ctx context.Context, r *Review, action string) {
	payload := ChangedPayload{ReviewID: r.ID, PartnerID: r.PartnerID, Action: action}
	if r.ProductID != nil {
		payload.ProductID = *r.ProductID
	}
	s.Events.Emit(events.EventReviewChanged, r.PartnerID, middleware.GetReqID(ctx), payload)
}
