package adapter

import (
	"context"

	"moderation-service/internal/domain/model"
)

// ReviewAlerter tells moderators that an item entered NEEDS_REVIEW.
type ReviewAlerter interface {
	AlertReview(ctx context.Context, item *model.ContentItem) error
}

type NoopAlerter struct{}

func (NoopAlerter) AlertReview(context.Context, *model.ContentItem) error { return nil }
