package adapter

import (
	"context"

	"moderation-service/internal/domain/model"
)

// VerdictCallback delivers finished job results back to the gateway.
type VerdictCallback interface {
	DeliverVerdict(ctx context.Context, subjectID string, component model.Component, score float64) error
	DeliverTag(ctx context.Context, mediaID string, tag model.TagResult) error
	DeliverSummary(ctx context.Context, placeID string, summary model.SummaryResult) error
}

// JobDispatcher hands a job to the runner without waiting for it.
type JobDispatcher interface {
	Dispatch(ctx context.Context, jobID string) error
}
