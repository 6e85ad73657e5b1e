package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/notification/entity"
)

type OutboxRepo struct {
	db *sqlx.DB
}

func NewOutboxRepo(db *sqlx.DB) *OutboxRepo {
	return &OutboxRepo{db: db}
}

// Insert writes all messages with a single statement.
func (r *OutboxRepo) Insert(ctx context.Context, msgs []entity.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	const q = `INSERT INTO notification_outbox (id, user_id, event, domain, subject_id, payload)
		VALUES (:id, :user_id, :event, :domain, :subject_id, :payload)`
	_, err := r.db.NamedExecContext(ctx, q, msgs)
	return err
}
