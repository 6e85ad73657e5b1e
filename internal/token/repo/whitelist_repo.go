package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/pkg/database"
)

// WhitelistRepo persists issued tokens in user_tokens.
type WhitelistRepo struct {
	db *sqlx.DB
}

func NewWhitelistRepo(db *sqlx.DB) *WhitelistRepo {
	return &WhitelistRepo{db: db}
}

// Replace locks the user row, drops the user's tokens of the given scope and
// inserts rec, all in one transaction. Concurrent logins of the same user
// serialize on the row lock so exactly one token survives.
func (r *WhitelistRepo) Replace(ctx context.Context, userID, scope string, rec entity.TokenRecord) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var id string
		if err := tx.GetContext(ctx, &id, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_tokens WHERE user_id = $1 AND scope = $2`, userID, scope); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO user_tokens (token, user_id, scope, expires_at) VALUES ($1, $2, $3, $4)`,
			rec.Value, userID, rec.Scope, rec.ExpiresAt)
		return err
	})
}

func (r *WhitelistRepo) Delete(ctx context.Context, userID, value string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_tokens WHERE user_id = $1 AND token = $2`, userID, value)
	return err
}

func (r *WhitelistRepo) Exists(ctx context.Context, userID, scope, value string) (bool, error) {
	const q = `SELECT 1 FROM user_tokens WHERE user_id = $1 AND scope = $2 AND token = $3 AND expires_at > NOW()`
	var one int
	err := r.db.GetContext(ctx, &one, q, userID, scope, value)
	if err != nil {
		if database.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// PurgeExpired removes whitelist rows past their expiry and returns how many were removed.
func (r *WhitelistRepo) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_tokens WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
