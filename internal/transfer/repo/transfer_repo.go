package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/transfer/entity"
)

type TransferRepo struct {
	db *sqlx.DB
}

func NewTransferRepo(db *sqlx.DB) *TransferRepo { return &TransferRepo{db: db} }

func (r *TransferRepo) Create(ctx context.Context, t *entity.Transfer) error {
	const q = `INSERT INTO transfers (id, sender_id, receiver_id, amount, transaction_hash, note)
		VALUES (:id, :sender_id, :receiver_id, :amount, :transaction_hash, :note)
		RETURNING created_at`
	rows, err := r.db.NamedQueryContext(ctx, q, t)
	if err != nil {
		return err
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&t.CreatedAt); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ListFor returns transfers sent or received by userID, newest first.
func (r *TransferRepo) ListFor(ctx context.Context, userID string) ([]entity.Transfer, error) {
	out := []entity.Transfer{}
	const q = `SELECT id, sender_id, receiver_id, amount, transaction_hash, note, created_at
		FROM transfers WHERE sender_id = $1 OR receiver_id = $1
		ORDER BY created_at DESC, id DESC`
	if err := r.db.SelectContext(ctx, &out, q, userID); err != nil {
		return nil, err
	}
	return out, nil
}
