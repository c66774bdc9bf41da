package payments

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lookali/marketplace-api/internal/orders"
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) FindByPaymentID(ctx context.Context, paymentID string) (*orders.Order, error) {
	return orders.ScanOrder(r.DB.QueryRow(ctx,
		`SELECT `+orders.Columns+` FROM orders WHERE mp_payment_id=$1`, paymentID))
}

func (r *Repo) Get(ctx context.Context, orderID string) (*orders.Order, error) {
	return orders.ScanOrder(r.DB.QueryRow(ctx,
		`SELECT `+orders.Columns+` FROM orders WHERE id=$1`, orderID))
}

func (r *Repo) Items(ctx context.Context, orderID string) ([]orders.Item, error) {
	return (&orders.Repo{DB: r.DB}).Items(ctx, orderID)
}

func (r *Repo) Partner(ctx context.Context, partnerID string) (Partner, error) {
	var p Partner
	err := r.DB.QueryRow(ctx,
		`SELECT id, mp_access_token, mp_webhook_secret FROM partners WHERE id=$1`, partnerID,
	).Scan(&p.ID, &p.AccessToken, &p.WebhookSecret)
	if errors.Is(err, pgx.ErrNoRows) {
		return Partner{}, orders.ErrNotFound
	}
	return p, err
}

func (r *Repo) UnmatchedOrders(ctx context.Context, limit int) ([]orders.Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+orders.Columns+` FROM orders
		WHERE mp_payment_id IS NULL
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []orders.Order
	for rows.Next() {
		o, err := orders.ScanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (r *Repo) ApplyPayment(ctx context.Context, u PaymentUpdate) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET
			status=$2,
			mp_payment_id=$3,
			mp_payment_status=$4,
			mp_status_detail=$5,
			order_number=COALESCE(order_number, NULLIF($6, '')),
			updated_at=now()
		WHERE id=$1`,
		u.OrderID, string(u.Status), u.PaymentID, u.ProcessorStatus, u.StatusDetail, u.OrderNumber)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return orders.ErrNotFound
	}
	return nil
}

func (r *Repo) SetPreference(ctx context.Context, orderID, preferenceID string) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE orders SET mp_preference_id=$2, updated_at=now() WHERE id=$1`, orderID, preferenceID)
	return err
}

func (r *Repo) SetPayment(ctx context.Context, orderID, paymentID, status, detail string) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE orders SET mp_payment_id=$2, mp_payment_status=$3, mp_status_detail=$4, updated_at=now()
		WHERE id=$1`, orderID, paymentID, status, detail)
	return err
}
