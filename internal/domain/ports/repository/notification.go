package repository

import (
	"context"

	"moderation-service/internal/domain/model"
)

type NotificationRepository interface {
	Save(ctx context.Context, tx Tx, n *model.Notification) error
	ListByUser(ctx context.Context, tx Tx, userID string, limit int) ([]*model.Notification, error)
	// MarkRead returns domain.ErrNotFound when the notification does not belong to userID.
	MarkRead(ctx context.Context, tx Tx, userID, id string) error
}

type ActivityRepository interface {
	Log(ctx context.Context, tx Tx, entry *model.ActivityEntry) error
	ListByTarget(ctx context.Context, tx Tx, targetID string, limit int) ([]*model.ActivityEntry, error)
}
