package twofactor

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Get(ctx context.Context, userID string) (*Record, error) {
	rec := Record{UserID: userID}
	err := r.DB.QueryRow(ctx,
		`SELECT secret, enabled, backup_codes FROM user_two_factor WHERE user_id=$1`, userID,
	).Scan(&rec.Secret, &rec.Enabled, &rec.BackupCodes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *Repo) Save(ctx context.Context, rec *Record) error {
	codes := rec.BackupCodes
	if codes == nil {
		codes = []string{}
	}
	_, err := r.DB.Exec(ctx, `
		INSERT INTO user_two_factor(user_id, secret, enabled, backup_codes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET secret=EXCLUDED.secret, enabled=EXCLUDED.enabled,
			backup_codes=EXCLUDED.backup_codes, updated_at=now()`,
		rec.UserID, rec.Secret, rec.Enabled, codes)
	return err
}

func (r *Repo) Delete(ctx context.Context, userID string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM user_two_factor WHERE user_id=$1`, userID)
	return err
}
