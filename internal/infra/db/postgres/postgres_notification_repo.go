package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v4/pgxpool"

	"moderation-service/internal/domain"
	"moderation-service/internal/domain/model"
	"moderation-service/internal/domain/ports/repository"
)

var _ repository.NotificationRepository = (*notificationRepo)(nil)

type notificationRepo struct{ pool *pgxpool.Pool }

func NewNotificationRepo(pool *pgxpool.Pool) *notificationRepo {
	return &notificationRepo{pool: pool}
}

func (r *notificationRepo) Save(ctx context.Context, tx repository.Tx, n *model.Notification) error {
	const q = `
INSERT INTO notifications (id, user_id, content_id, status, title, message, is_read, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`
	_, err := execSQL(ctx, r.pool, tx, q, n.ID, n.UserID, n.ContentID, n.Status, n.Title, n.Message, n.IsRead, n.CreatedAt)
	return writeErr(err)
}

func (r *notificationRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.Notification, error) {
	const q = `SELECT id, user_id, content_id, status, title, message, is_read, created_at
FROM notifications WHERE user_id=$1
ORDER BY created_at DESC
LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, limitOrAll(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Notification
	for rows.Next() {
		var (
			n      model.Notification
			status string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.ContentID, &status, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		n.Status = model.Status(status)
		out = append(out, &n)
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *notificationRepo) MarkRead(ctx context.Context, tx repository.Tx, userID, id string) error {
	const q = `UPDATE notifications SET is_read=TRUE WHERE id=$1 AND user_id=$2;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, userID)
	if err != nil {
		return writeErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ repository.ActivityRepository = (*activityRepo)(nil)

type activityRepo struct{ pool *pgxpool.Pool }

func NewActivityRepo(pool *pgxpool.Pool) *activityRepo {
	return &activityRepo{pool: pool}
}

func (r *activityRepo) Log(ctx context.Context, tx repository.Tx, e *model.ActivityEntry) error {
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO activity_log (id, actor_id, action, target_id, metadata, created_at)
VALUES ($1,$2,$3,$4,$5::jsonb,$6);`
	_, err = execSQL(ctx, r.pool, tx, q, e.ID, e.ActorID, e.Action, e.TargetID, string(meta), e.CreatedAt)
	return writeErr(err)
}

func (r *activityRepo) ListByTarget(ctx context.Context, tx repository.Tx, targetID string, limit int) ([]*model.ActivityEntry, error) {
	const q = `SELECT id, actor_id, action, target_id, metadata, created_at
FROM activity_log WHERE target_id=$1
ORDER BY created_at DESC
LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, targetID, limitOrAll(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.ActivityEntry
	for rows.Next() {
		var (
			e      model.ActivityEntry
			action string
			meta   []byte
		)
		if err := rows.Scan(&e.ID, &e.ActorID, &action, &e.TargetID, &meta, &e.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		e.Action = model.ActivityAction(action)
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &e.Metadata)
		}
		out = append(out, &e)
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}
