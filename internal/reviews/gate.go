package reviews

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lookali/marketplace-api/internal/apperr"
	"github.com/lookali/marketplace-api/pkg/logkey"
)

const (
	highRatingMin        = 4
	highRatingPriorCount = 3
	orderBurstCount      = 5
	orderBurstWindow     = 30 * 24 * time.Hour
)

var (
	errOwnStore        = apperr.Forbidden("Você não pode avaliar sua própria loja")
	errNoPaidOrder     = apperr.Forbidden("Você precisa ter um pedido pago com esta loja para avaliar")
	errAlreadyReviewed = apperr.Conflict("Você já avaliou este produto")
	errPartnerNotFound = apperr.NotFound("Loja não encontrada")
)

type GateStore interface {
	PartnerOwner(ctx context.Context, partnerID string) (string, error)
	HasPaidOrder(ctx context.Context, userID, partnerID string) (bool, error)
	HasReviewedProduct(ctx context.Context, userID, productID string) (bool, error)
	RatingsByUserForPartner(ctx context.Context, userID, partnerID string) ([]int, error)
	CountOrdersSince(ctx context.Context, userID string, since time.Time) (int, error)
	InsertFraudCheck(ctx context.Context, fc FraudCheck) error
}

// Gate decides whether a review may be written. The first three checks block;
// the heuristics only leave an audit row.
type Gate struct {
	Store GateStore
	Now   func() time.Time
}

func (g *Gate) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

func (g *Gate) Check(ctx context.Context, userID string, in CreateInput) error {
	owner, err := g.Store.PartnerOwner(ctx, in.PartnerID)
	if errors.Is(err, ErrNotFound) {
		return errPartnerNotFound
	}
	if err != nil {
		return fmt.Errorf("partner owner: %w", err)
	}
	if owner == userID {
		return errOwnStore
	}

	paid, err := g.Store.HasPaidOrder(ctx, userID, in.PartnerID)
	if err != nil {
		return fmt.Errorf("paid order: %w", err)
	}
	if !paid {
		return errNoPaidOrder
	}

	if in.ProductID != "" {
		done, err := g.Store.HasReviewedProduct(ctx, userID, in.ProductID)
		if err != nil {
			return fmt.Errorf("existing review: %w", err)
		}
		if done {
			return errAlreadyReviewed
		}
	}

	g.heuristics(ctx, userID, in.PartnerID)
	return nil
}

func (g *Gate) heuristics(ctx context.Context, userID, partnerID string) {
	log := slog.With(slog.String(logkey.UserID, userID), slog.String(logkey.PartnerID, partnerID))

	if ratings, err := g.Store.RatingsByUserForPartner(ctx, userID, partnerID); err != nil {
		log.WarnContext(ctx, "fraud heuristic failed", slog.String("check", FraudRepeatedHighRatings), slog.String(logkey.ERROR, err.Error()))
	} else if allHigh(ratings) {
		g.record(ctx, log, FraudCheck{
			UserID: userID, PartnerID: partnerID, Kind: FraudRepeatedHighRatings,
			Details: map[string]any{"prior_reviews": len(ratings), "min_rating": highRatingMin},
		})
	}

	since := g.now().Add(-orderBurstWindow)
	if n, err := g.Store.CountOrdersSince(ctx, userID, since); err != nil {
		log.WarnContext(ctx, "fraud heuristic failed", slog.String("check", FraudHighOrderFrequency), slog.String(logkey.ERROR, err.Error()))
	} else if n >= orderBurstCount {
		g.record(ctx, log, FraudCheck{
			UserID: userID, PartnerID: partnerID, Kind: FraudHighOrderFrequency,
			Details: map[string]any{"orders_30d": n},
		})
	}
}

func allHigh(ratings []int) bool {
	if len(ratings) < highRatingPriorCount {
		return false
	}
	for _, r := range ratings {
		if r < highRatingMin {
			return false
		}
	}
	return true
}

func (g *Gate) record(ctx context.Context, log *slog.Logger, fc FraudCheck) {
	if err := g.Store.InsertFraudCheck(ctx, fc); err != nil {
		log.ErrorContext(ctx, "fraud check not recorded", slog.String("kind", fc.Kind), slog.String(logkey.ERROR, err.Error()))
		return
	}
	log.InfoContext(ctx, "fraud check recorded", slog.String("kind", fc.Kind))
}
