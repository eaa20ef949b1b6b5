package repository

import (
	"context"
	"time"

	"moderation-service/internal/domain/model"
)

type ContentRepository interface {
	Create(ctx context.Context, tx Tx, item *model.ContentItem) error
	// FindByID returns soft-deleted items too. Inside a transaction the item
	// stays locked until the transaction ends.
	FindByID(ctx context.Context, tx Tx, id string) (*model.ContentItem, error)
	// Update writes component and aggregate state and bumps Version.
	Update(ctx context.Context, tx Tx, item *model.ContentItem) error
	UpdateTag(ctx context.Context, tx Tx, id string, tag model.TagResult) error
	SoftDelete(ctx context.Context, tx Tx, id string, at time.Time) error
	// ListByMediaID returns non-deleted posts embedding the media item.
	ListByMediaID(ctx context.Context, tx Tx, mediaID string) ([]*model.ContentItem, error)
	ListByStatus(ctx context.Context, tx Tx, status model.Status, limit int) ([]*model.ContentItem, error)
	// ListStaleAwaiting returns non-deleted items still AWAITING_VERDICT that were created before olderThan.
	ListStaleAwaiting(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.ContentItem, error)
}
