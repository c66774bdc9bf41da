package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

func affected(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) PartnerOwner(ctx context.Context, partnerID string) (string, error) {
	var owner string
	err := r.DB.QueryRow(ctx, `SELECT owner_id FROM partners WHERE id=$1`, partnerID).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return owner, err
}

func (r *Repo) InsertPartner(ctx context.Context, p *Partner) error {
	return r.DB.QueryRow(ctx, `
		INSERT INTO partners(id, owner_id, name, tax_id)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		p.ID, p.OwnerID, p.Name, p.TaxID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *Repo) UpdatePartner(ctx context.Context, p *Partner) error {
	err := r.DB.QueryRow(ctx, `
		UPDATE partners SET name=$2, tax_id=$3, updated_at=now()
		WHERE id=$1
		RETURNING average_rating, created_at, updated_at`,
		p.ID, p.Name, p.TaxID,
	).Scan(&p.AverageRating, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *Repo) SetPaymentCredentials(ctx context.Context, partnerID, accessToken, webhookSecret string) error {
	return affected(r.DB.Exec(ctx, `
		UPDATE partners SET mp_access_token=$2, mp_webhook_secret=$3, updated_at=now()
		WHERE id=$1`, partnerID, accessToken, webhookSecret))
}

func (r *Repo) ListPartnersByOwner(ctx context.Context, ownerID string) ([]Partner, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, owner_id, name, tax_id, average_rating, created_at, updated_at
		FROM partners WHERE owner_id=$1 ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Partner{}
	for rows.Next() {
		var p Partner
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &p.TaxID, &p.AverageRating, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) SKUExists(ctx context.Context, sku string) (bool, error) {
	var ok bool
	err := r.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE sku=$1)`, sku).Scan(&ok)
	return ok, err
}

func (r *Repo) InsertProduct(ctx context.Context, p *Product) error {
	return r.DB.QueryRow(ctx, `
		INSERT INTO products(id, partner_id, kind, sku, name, description, price, stock)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		p.ID, p.PartnerID, string(p.Kind), p.SKU, p.Name, p.Description, p.Price, p.Stock,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *Repo) UpdateProduct(ctx context.Context, p *Product) error {
	err := r.DB.QueryRow(ctx, `
		UPDATE products SET kind=$3, name=$4, description=$5, price=$6, stock=$7, updated_at=now()
		WHERE id=$1 AND partner_id=$2
		RETURNING sku, average_rating, created_at, updated_at`,
		p.ID, p.PartnerID, string(p.Kind), p.Name, p.Description, p.Price, p.Stock,
	).Scan(&p.SKU, &p.AverageRating, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *Repo) DeleteProduct(ctx context.Context, partnerID, id string) error {
	return affected(r.DB.Exec(ctx, `DELETE FROM products WHERE id=$1 AND partner_id=$2`, id, partnerID))
}

func (r *Repo) ListProducts(ctx context.Context, partnerID string) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, partner_id, kind, sku, name, description, price, stock, average_rating, created_at, updated_at
		FROM products WHERE partner_id=$1 ORDER BY name`, partnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Product{}
	for rows.Next() {
		var p Product
		var kind string
		if err := rows.Scan(&p.ID, &p.PartnerID, &kind, &p.SKU, &p.Name, &p.Description,
			&p.Price, &p.Stock, &p.AverageRating, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Kind = Kind(kind)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) InsertCustomer(ctx context.Context, c *Customer) error {
	return r.DB.QueryRow(ctx, `
		INSERT INTO customers(id, partner_id, name, email, phone, tax_id, postal_code, address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		c.ID, c.PartnerID, c.Name, c.Email, c.Phone, c.TaxID, c.PostalCode, c.Address,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r *Repo) UpdateCustomer(ctx context.Context, c *Customer) error {
	err := r.DB.QueryRow(ctx, `
		UPDATE customers SET name=$3, email=$4, phone=$5, tax_id=$6, postal_code=$7, address=$8, updated_at=now()
		WHERE id=$1 AND partner_id=$2
		RETURNING created_at, updated_at`,
		c.ID, c.PartnerID, c.Name, c.Email, c.Phone, c.TaxID, c.PostalCode, c.Address,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *Repo) DeleteCustomer(ctx context.Context, partnerID, id string) error {
	return affected(r.DB.Exec(ctx, `DELETE FROM customers WHERE id=$1 AND partner_id=$2`, id, partnerID))
}

func (r *Repo) ListCustomers(ctx context.Context, partnerID string) ([]Customer, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, partner_id, name, email, phone, tax_id, postal_code, address, created_at, updated_at
		FROM customers WHERE partner_id=$1 ORDER BY name`, partnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Customer{}
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.PartnerID, &c.Name, &c.Email, &c.Phone, &c.TaxID,
			&c.PostalCode, &c.Address, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) SupplierCodeExists(ctx context.Context, partnerID, code string) (bool, error) {
	var ok bool
	err := r.DB.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM suppliers WHERE partner_id=$1 AND code=$2)`, partnerID, code).Scan(&ok)
	return ok, err
}

func (r *Repo) InsertSupplier(ctx context.Context, s *Supplier) error {
	return r.DB.QueryRow(ctx, `
		INSERT INTO suppliers(id, partner_id, code, name, email, phone, tax_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		s.ID, s.PartnerID, s.Code, s.Name, s.Email, s.Phone, s.TaxID,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
}

func (r *Repo) UpdateSupplier(ctx context.Context, s *Supplier) error {
	err := r.DB.QueryRow(ctx, `
		UPDATE suppliers SET name=$3, email=$4, phone=$5, tax_id=$6, updated_at=now()
		WHERE id=$1 AND partner_id=$2
		RETURNING code, created_at, updated_at`,
		s.ID, s.PartnerID, s.Name, s.Email, s.Phone, s.TaxID,
	).Scan(&s.Code, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *Repo) DeleteSupplier(ctx context.Context, partnerID, id string) error {
	return affected(r.DB.Exec(ctx, `DELETE FROM suppliers WHERE id=$1 AND partner_id=$2`, id, partnerID))
}

func (r *Repo) ListSuppliers(ctx context.Context, partnerID string) ([]Supplier, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, partner_id, code, name, email, phone, tax_id, created_at, updated_at
		FROM suppliers WHERE partner_id=$1 ORDER BY code`, partnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Supplier{}
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.PartnerID, &s.Code, &s.Name, &s.Email, &s.Phone,
			&s.TaxID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repo) InsertPaymentMethod(ctx context.Context, m *PaymentMethod) error {
	return r.DB.QueryRow(ctx, `
		INSERT INTO payment_methods(id, partner_id, name, kind, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		m.ID, m.PartnerID, m.Name, m.Kind, m.Active,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
}

func (r *Repo) UpdatePaymentMethod(ctx context.Context, m *PaymentMethod) error {
	err := r.DB.QueryRow(ctx, `
		UPDATE payment_methods SET name=$3, kind=$4, active=$5, updated_at=now()
		WHERE id=$1 AND partner_id=$2
		RETURNING created_at, updated_at`,
		m.ID, m.PartnerID, m.Name, m.Kind, m.Active,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *Repo) DeletePaymentMethod(ctx context.Context, partnerID, id string) error {
	return affected(r.DB.Exec(ctx, `DELETE FROM payment_methods WHERE id=$1 AND partner_id=$2`, id, partnerID))
}

func (r *Repo) ListPaymentMethods(ctx context.Context, partnerID string) ([]PaymentMethod, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, partner_id, name, kind, active, created_at, updated_at
		FROM payment_methods WHERE partner_id=$1 ORDER BY name`, partnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []PaymentMethod{}
	for rows.Next() {
		var m PaymentMethod
		if err := rows.Scan(&m.ID, &m.PartnerID, &m.Name, &m.Kind, &m.Active, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
