package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"moderation-service/internal/domain"
	"moderation-service/internal/domain/model"
	"moderation-service/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*jobRepo)(nil)

type jobRepo struct{ pool *pgxpool.Pool }

func NewJobRepo(pool *pgxpool.Pool) *jobRepo {
	return &jobRepo{pool: pool}
}

const jobColumns = `id, kind, subject_id, status, input, result, error, created_at, updated_at`

func (r *jobRepo) Create(ctx context.Context, tx repository.Tx, j *model.ModerationJob) error {
	input, err := json.Marshal(j.Input)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO moderation_jobs (id, kind, subject_id, status, input, error, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5::jsonb, '', $6, $7);`
	_, err = execSQL(ctx, r.pool, tx, q, j.ID, j.Kind, j.SubjectID, j.Status, string(input), j.CreatedAt, j.UpdatedAt)
	return writeErr(err)
}

func (r *jobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.ModerationJob, error) {
	const q = `SELECT ` + jobColumns + ` FROM moderation_jobs WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanJob(row)
}

// MarkProcessing only moves PENDING jobs, so concurrent executions of the
// same job id run the capability at most once.
func (r *jobRepo) MarkProcessing(ctx context.Context, id string) (bool, error) {
	const q = `UPDATE moderation_jobs SET status='PROCESSING', updated_at=NOW() WHERE id=$1 AND status='PENDING';`
	return r.transition(ctx, q, id)
}

func (r *jobRepo) Complete(ctx context.Context, id string, result model.JobResult) (bool, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return false, domain.ErrInvalidArgument
	}
	const q = `UPDATE moderation_jobs SET status='COMPLETED', result=$2::jsonb, updated_at=NOW() WHERE id=$1 AND status='PROCESSING';`
	return r.transition(ctx, q, id, string(raw))
}

func (r *jobRepo) Fail(ctx context.Context, id string, detail string) (bool, error) {
	const q = `UPDATE moderation_jobs SET status='FAILED', error=$2, updated_at=NOW() WHERE id=$1 AND status='PROCESSING';`
	return r.transition(ctx, q, id, detail)
}

func (r *jobRepo) ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]*model.ModerationJob, error) {
	const q = `SELECT ` + jobColumns + ` FROM moderation_jobs
WHERE status='PENDING' AND created_at < $1
ORDER BY created_at
LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, nil, q, before, limitOrAll(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.ModerationJob
	for rows.Next() {
		j, err := scanJob(notFoundRow{rows})
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *jobRepo) LatestCompleted(ctx context.Context, subjectID string, kind model.JobKind) (*model.ModerationJob, error) {
	const q = `SELECT ` + jobColumns + ` FROM moderation_jobs
WHERE subject_id=$1 AND kind=$2 AND status='COMPLETED'
ORDER BY updated_at DESC
LIMIT 1;`
	row, err := pickRow(ctx, r.pool, nil, q, subjectID, kind)
	if err != nil {
		return nil, err
	}
	return scanJob(row)
}

func (r *jobRepo) transition(ctx context.Context, q string, args ...interface{}) (bool, error) {
	cmd, err := execSQL(ctx, r.pool, nil, q, args...)
	if err != nil {
		return false, writeErr(err)
	}
	return cmd.RowsAffected() >= 1, nil
}

func scanJob(row scanner) (*model.ModerationJob, error) {
	var (
		j            model.ModerationJob
		kind, status string
		input        []byte
		result       []byte
	)
	if err := row.Scan(&j.ID, &kind, &j.SubjectID, &status, &input, &result, &j.Error, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, err
	}
	j.Kind = model.JobKind(kind)
	j.Status = model.JobStatus(status)
	if len(input) > 0 {
		if err := json.Unmarshal(input, &j.Input); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	if len(result) > 0 {
		var res model.JobResult
		if err := json.Unmarshal(result, &res); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		j.Result = &res
	}
	return &j, nil
}
