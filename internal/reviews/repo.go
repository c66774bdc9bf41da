package reviews

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

const reviewColumns = `id, order_id, user_id, partner_id, product_id::text, rating, comment, created_at, updated_at`

func scanReview(row pgx.Row) (*Review, error) {
	var r Review
	err := row.Scan(&r.ID, &r.OrderID, &r.UserID, &r.PartnerID, &r.ProductID,
		&r.Rating, &r.Comment, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *Repo) PartnerOwner(ctx context.Context, partnerID string) (string, error) {
	var owner string
	err := r.DB.QueryRow(ctx, `SELECT owner_id FROM partners WHERE id=$1`, partnerID).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return owner, err
}

func (r *Repo) HasPaidOrder(ctx context.Context, userID, partnerID string) (bool, error) {
	var ok bool
	err := r.DB.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM orders WHERE buyer_id=$1 AND partner_id=$2 AND status='paid')`,
		userID, partnerID).Scan(&ok)
	return ok, err
}

func (r *Repo) HasReviewedProduct(ctx context.Context, userID, productID string) (bool, error) {
	var ok bool
	err := r.DB.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM reviews WHERE user_id=$1 AND product_id=$2)`,
		userID, productID).Scan(&ok)
	return ok, err
}

func (r *Repo) RatingsByUserForPartner(ctx context.Context, userID, partnerID string) ([]int, error) {
	return r.ratings(ctx, `SELECT rating FROM reviews WHERE user_id=$1 AND partner_id=$2`, userID, partnerID)
}

func (r *Repo) CountOrdersSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE buyer_id=$1 AND created_at >= $2`,
		userID, since).Scan(&n)
	return n, err
}

func (r *Repo) InsertFraudCheck(ctx context.Context, fc FraudCheck) error {
	var partnerID *string
	if fc.PartnerID != "" {
		partnerID = &fc.PartnerID
	}
	details := fc.Details
	if details == nil {
		details = map[string]any{}
	}
	_, err := r.DB.Exec(ctx, `
		INSERT INTO fraud_checks(user_id, partner_id, kind, details)
		VALUES ($1, $2, $3, $4)`, fc.UserID, partnerID, fc.Kind, details)
	return err
}

func (r *Repo) OrderParties(ctx context.Context, orderID string) (string, string, error) {
	var buyer, partner string
	err := r.DB.QueryRow(ctx, `SELECT buyer_id, partner_id FROM orders WHERE id=$1`, orderID).Scan(&buyer, &partner)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", ErrNotFound
	}
	return buyer, partner, err
}

func (r *Repo) ProductPartner(ctx context.Context, productID string) (string, error) {
	var partner string
	err := r.DB.QueryRow(ctx, `SELECT partner_id FROM products WHERE id=$1`, productID).Scan(&partner)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return partner, err
}

func (r *Repo) Insert(ctx context.Context, rv *Review) error {
	return r.DB.QueryRow(ctx, `
		INSERT INTO reviews(id, order_id, user_id, partner_id, product_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		rv.ID, rv.OrderID, rv.UserID, rv.PartnerID, rv.ProductID, rv.Rating, rv.Comment,
	).Scan(&rv.CreatedAt, &rv.UpdatedAt)
}

func (r *Repo) Get(ctx context.Context, id string) (*Review, error) {
	return scanReview(r.DB.QueryRow(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id=$1`, id))
}

func (r *Repo) Update(ctx context.Context, rv *Review) error {
	err := r.DB.QueryRow(ctx, `
		UPDATE reviews SET rating=$2, comment=$3, updated_at=now()
		WHERE id=$1 RETURNING updated_at`, rv.ID, rv.Rating, rv.Comment).Scan(&rv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM reviews WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) list(ctx context.Context, where string, arg string) ([]Review, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE `+where+` ORDER BY created_at DESC`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rv)
	}
	return out, rows.Err()
}

func (r *Repo) ListByProduct(ctx context.Context, productID string) ([]Review, error) {
	return r.list(ctx, "product_id=$1", productID)
}

func (r *Repo) ListByPartner(ctx context.Context, partnerID string) ([]Review, error) {
	return r.list(ctx, "partner_id=$1", partnerID)
}

func (r *Repo) ratings(ctx context.Context, sql string, args ...any) ([]int, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int])
}

func (r *Repo) ProductRatings(ctx context.Context, productID string) ([]int, error) {
	return r.ratings(ctx, `SELECT rating FROM reviews WHERE product_id=$1`, productID)
}

// PartnerRatings covers every review on any of the partner's products.
func (r *Repo) PartnerRatings(ctx context.Context, partnerID string) ([]int, error) {
	return r.ratings(ctx, `
		SELECT r.rating FROM reviews r
		JOIN products p ON p.id = r.product_id
		WHERE p.partner_id=$1`, partnerID)
}

func (r *Repo) SetProductRating(ctx context.Context, productID string, avg float64) error {
	_, err := r.DB.Exec(ctx, `UPDATE products SET average_rating=$2 WHERE id=$1`, productID, avg)
	return err
}

func (r *Repo) SetPartnerRating(ctx context.Context, partnerID string, avg float64) error {
	_, err := r.DB.Exec(ctx, `UPDATE partners SET average_rating=$2 WHERE id=$1`, partnerID, avg)
	return err
}
