package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/setting/entity"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/pkg/database"
)

// Repo is the repository implementation for user_settings backed by PostgreSQL.
type Repo struct {
	db *sqlx.DB
}

// NewRepo constructs a new Repo with an existing *sqlx.DB connection.
func NewRepo(db *sqlx.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) List(ctx context.Context, userID string) ([]entity.Setting, error) {
	const q = `SELECT code, domain, enabled FROM user_settings WHERE user_id = $1 ORDER BY code, domain`
	out := []entity.Setting{}
	if err := r.db.SelectContext(ctx, &out, q, userID); err != nil {
		return nil, err
	}
	return out, nil
}

// Replace swaps the whole set of preferences of a user in one transaction.
func (r *Repo) Replace(ctx context.Context, userID string, settings []entity.Setting) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return ReplaceTx(ctx, tx, userID, settings)
	})
}

// ReplaceTx swaps the preferences of a user inside an open transaction.
func ReplaceTx(ctx context.Context, tx *sqlx.Tx, userID string, settings []entity.Setting) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM user_settings WHERE user_id = $1`, userID); err != nil {
		return err
	}
	for _, s := range settings {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_settings (user_id, code, domain, enabled) VALUES ($1, $2, $3, $4)`,
			userID, s.Code, s.Domain, s.Enabled); err != nil {
			return err
		}
	}
	return nil
}

// Get returns one preference or sql.ErrNoRows.
func (r *Repo) Get(ctx context.Context, userID, code string, domain entity.Domain) (entity.Setting, error) {
	const q = `SELECT code, domain, enabled FROM user_settings WHERE user_id = $1 AND code = $2 AND domain = $3`
	var s entity.Setting
	err := r.db.GetContext(ctx, &s, q, userID, code, domain)
	return s, err
}
