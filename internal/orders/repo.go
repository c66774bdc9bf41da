package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lookali/marketplace-api/internal/catalog"
)

type Repo struct{ DB *pgxpool.Pool }

// Columns is the select list understood by ScanOrder.
const Columns = `id, COALESCE(order_number, ''), buyer_id, buyer_name, partner_id, total,
	delivery_type, delivery_address, payment_method, notes, status,
	mp_payment_id, mp_payment_status, mp_status_detail, mp_preference_id,
	created_at, updated_at`

// ScanOrder reads one row selected with Columns.
func ScanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var status string
	err := row.Scan(&o.ID, &o.OrderNumber, &o.BuyerID, &o.BuyerName, &o.PartnerID, &o.Total,
		&o.DeliveryType, &o.DeliveryAddress, &o.PaymentMethod, &o.Notes, &status,
		&o.MPPaymentID, &o.MPPaymentStatus, &o.MPStatusDetail, &o.MPPreferenceID,
		&o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	o.Status = Status(status)
	return &o, nil
}

func (r *Repo) LatestOrderNumber(ctx context.Context) (string, error) {
	var n string
	err := r.DB.QueryRow(ctx, `
		SELECT order_number FROM orders
		WHERE order_number IS NOT NULL
		ORDER BY created_at DESC LIMIT 1`).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return n, err
}

func (r *Repo) OrderNumberExists(ctx context.Context, number string) (bool, error) {
	var ok bool
	err := r.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE order_number=$1)`, number).Scan(&ok)
	return ok, err
}

func (r *Repo) BuyerName(ctx context.Context, userID string) (string, error) {
	var name string
	err := r.DB.QueryRow(ctx, `SELECT display_name FROM profiles WHERE id=$1`, userID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return name, err
}

func (r *Repo) Snapshot(ctx context.Context, productID string) (Snapshot, error) {
	var s Snapshot
	var kind string
	err := r.DB.QueryRow(ctx, `SELECT id, partner_id, kind, name, price FROM products WHERE id=$1`, productID).
		Scan(&s.ProductID, &s.PartnerID, &kind, &s.Name, &s.Price)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	s.Kind = catalog.Kind(kind)
	return s, err
}

func (r *Repo) PartnerOwner(ctx context.Context, partnerID string) (string, error) {
	var owner string
	err := r.DB.QueryRow(ctx, `SELECT owner_id FROM partners WHERE id=$1`, partnerID).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return owner, err
}

func (r *Repo) Create(ctx context.Context, o *Order, items []Item, cartItemIDs []string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, order_number, buyer_id, buyer_name, partner_id, total,
			delivery_type, delivery_address, payment_method, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`,
		o.ID, o.OrderNumber, o.BuyerID, o.BuyerName, o.PartnerID, o.Total,
		o.DeliveryType, o.DeliveryAddress, o.PaymentMethod, o.Notes, string(o.Status),
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(`
			INSERT INTO order_items(id, order_id, product_id, product_name, unit_price, quantity, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			it.ID, o.ID, it.ProductID, it.ProductName, it.UnitPrice, it.Quantity, it.Subtotal)
	}
	if len(cartItemIDs) > 0 {
		batch.Queue(`DELETE FROM cart_items WHERE user_id=$1 AND id = ANY($2)`, o.BuyerID, cartItemIDs)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repo) Get(ctx context.Context, id string) (*Order, error) {
	return ScanOrder(r.DB.QueryRow(ctx, `SELECT `+Columns+` FROM orders WHERE id=$1`, id))
}

func (r *Repo) Items(ctx context.Context, orderID string) ([]Item, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, product_id, product_name, unit_price, quantity, subtotal
		FROM order_items WHERE order_id=$1 ORDER BY product_name`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName,
			&it.UnitPrice, &it.Quantity, &it.Subtotal); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repo) list(ctx context.Context, where string, arg any) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+Columns+` FROM orders WHERE `+where+` ORDER BY created_at DESC`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Order{}
	for rows.Next() {
		o, err := ScanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (r *Repo) ListByBuyer(ctx context.Context, buyerID string) ([]Order, error) {
	return r.list(ctx, "buyer_id=$1", buyerID)
}

func (r *Repo) ListByPartner(ctx context.Context, partnerID string) ([]Order, error) {
	return r.list(ctx, "partner_id=$1", partnerID)
}

func (r *Repo) UpdateStatus(ctx context.Context, id string, s Status) error {
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, id, string(s))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) AddCartItem(ctx context.Context, c *CartItem) error {
	return r.DB.QueryRow(ctx, `
		INSERT INTO cart_items(id, user_id, product_id, quantity)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		c.ID, c.UserID, c.ProductID, c.Quantity,
	).Scan(&c.CreatedAt)
}

func (r *Repo) ListCart(ctx context.Context, userID string) ([]CartItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT c.id, c.user_id, c.product_id, p.partner_id, p.name, p.price, c.quantity, c.created_at
		FROM cart_items c JOIN products p ON p.id = c.product_id
		WHERE c.user_id=$1 ORDER BY c.created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []CartItem{}
	for rows.Next() {
		var c CartItem
		if err := rows.Scan(&c.ID, &c.UserID, &c.ProductID, &c.PartnerID, &c.ProductName,
			&c.Price, &c.Quantity, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) RemoveCartItem(ctx context.Context, userID, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM cart_items WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
