package repository

import (
	"context"
	"time"

	"rentloop/internal/infra"
	"rentloop/internal/infra/db"

	"github.com/google/uuid"
)

// NotificationRepository writes outbox jobs for the delivery worker. Rows are
// committed with the state change they announce; delivery never blocks the
// request path.
type NotificationRepository struct {
	db db.DBTX
}

func NewNotificationRepository(dbtx db.DBTX) *NotificationRepository {
	return &NotificationRepository{db: dbtx}
}

const createJobSQL = `
INSERT INTO notification_jobs (id, kind, topic, payload, run_at, created_at)
VALUES ($1,$2,$3,$4,$5, now())`

func (r *NotificationRepository) CreateJob(ctx context.Context, kind, topic string, payload []byte, runAt time.Time) error {
	_, err := r.db.Exec(ctx, createJobSQL, uuid.New(), kind, topic, payload, runAt)
	if err != nil {
		return infra.WrapRepoErr("failed to create notification job", err)
	}
	return nil
}
