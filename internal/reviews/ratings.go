package reviews

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Average returns the mean rounded to two decimals. ok is false for an empty
// set so callers leave the stored value untouched.
func Average(ratings []int) (avg float64, ok bool) {
	if len(ratings) == 0 {
		return 0, false
	}
	var sum int64
	for _, r := range ratings {
		sum += int64(r)
	}
	avg, _ = decimal.NewFromInt(sum).Div(decimal.NewFromInt(int64(len(ratings)))).Round(2).Float64()
	return avg, true
}

type RatingStore interface {
	ProductRatings(ctx context.Context, productID string) ([]int, error)
	PartnerRatings(ctx context.Context, partnerID string) ([]int, error)
	SetProductRating(ctx context.Context, productID string, avg float64) error
	SetPartnerRating(ctx context.Context, partnerID string, avg float64) error
}

// Recomputer rebuilds the denormalized average_rating columns from scratch.
type Recomputer struct {
	Store RatingStore
}

func (r *Recomputer) Product(ctx context.Context, productID string) error {
	ratings, err := r.Store.ProductRatings(ctx, productID)
	if err != nil {
		return fmt.Errorf("product ratings: %w", err)
	}
	avg, ok := Average(ratings)
	if !ok {
		return nil
	}
	return r.Store.SetProductRating(ctx, productID, avg)
}

func (r *Recomputer) Partner(ctx context.Context, partnerID string) error {
	ratings, err := r.Store.PartnerRatings(ctx, partnerID)
	if err != nil {
		return fmt.Errorf("partner ratings: %w", err)
	}
	avg, ok := Average(ratings)
	if !ok {
		return nil
	}
	return r.Store.SetPartnerRating(ctx, partnerID, avg)
}
