package repository

import (
	"context"
	"time"

	"moderation-service/internal/domain/model"
)

// JobRepository transitions are conditional: each reports false when the job
// was not in the expected source state, so a status never regresses.
type JobRepository interface {
	Create(ctx context.Context, tx Tx, job *model.ModerationJob) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.ModerationJob, error)
	MarkProcessing(ctx context.Context, id string) (bool, error)
	Complete(ctx context.Context, id string, result model.JobResult) (bool, error)
	Fail(ctx context.Context, id string, detail string) (bool, error)
	ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]*model.ModerationJob, error)
	// LatestCompleted returns the newest COMPLETED job of kind for subjectID.
	LatestCompleted(ctx context.Context, subjectID string, kind model.JobKind) (*model.ModerationJob, error)
}
