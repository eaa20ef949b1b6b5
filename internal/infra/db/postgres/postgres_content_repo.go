package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"moderation-service/internal/domain"
	"moderation-service/internal/domain/model"
	"moderation-service/internal/domain/ports/repository"
)

var _ repository.ContentRepository = (*contentRepo)(nil)

type contentRepo struct{ pool *pgxpool.Pool }

func NewContentRepo(pool *pgxpool.Pool) *contentRepo {
	return &contentRepo{pool: pool}
}

const contentColumns = `id, kind, owner_id, body, media_id, object_key, mime_type, detected_label, label_confidence,
  status, text_status, text_score, text_reason, text_source,
  media_status, media_score, media_reason, media_source,
  confidence, rejection_reason, version, created_at, updated_at, deleted_at`

func (r *contentRepo) Create(ctx context.Context, tx repository.Tx, c *model.ContentItem) error {
	const q = `
INSERT INTO content_items (` + contentColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24);`

	ts, tsc, tr, tsrc := componentArgs(c.Text)
	ms, msc, mr, msrc := componentArgs(c.Media)
	_, err := execSQL(ctx, r.pool, tx, q,
		c.ID, c.Kind, c.OwnerID, c.Body, nullString(c.MediaID), c.ObjectKey, c.MimeType, c.DetectedLabel, c.LabelConfidence,
		c.Status, ts, tsc, tr, tsrc,
		ms, msc, mr, msrc,
		c.Confidence, c.RejectionReason, c.Version, c.CreatedAt, c.UpdatedAt, c.DeletedAt)
	return writeErr(err)
}

func (r *contentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.ContentItem, error) {
	q := `SELECT ` + contentColumns + ` FROM content_items WHERE id=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanContent(row)
}

func (r *contentRepo) Update(ctx context.Context, tx repository.Tx, c *model.ContentItem) error {
	const q = `
UPDATE content_items SET
  status=$2, text_status=$3, text_score=$4, text_reason=$5, text_source=$6,
  media_status=$7, media_score=$8, media_reason=$9, media_source=$10,
  confidence=$11, rejection_reason=$12, updated_at=$13, version=version+1
WHERE id=$1
RETURNING version;`

	ts, tsc, tr, tsrc := componentArgs(c.Text)
	ms, msc, mr, msrc := componentArgs(c.Media)
	row, err := pickRow(ctx, r.pool, tx, q,
		c.ID, c.Status, ts, tsc, tr, tsrc, ms, msc, mr, msrc,
		c.Confidence, c.RejectionReason, c.UpdatedAt)
	if err != nil {
		return err
	}
	return row.Scan(&c.Version)
}

func (r *contentRepo) UpdateTag(ctx context.Context, tx repository.Tx, id string, tag model.TagResult) error {
	const q = `UPDATE content_items SET detected_label=$2, label_confidence=$3, updated_at=NOW() WHERE id=$1 AND kind='MEDIA';`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, tag.Label, tag.Confidence)
	if err != nil {
		return writeErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *contentRepo) SoftDelete(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	const q = `UPDATE content_items SET deleted_at=$2, updated_at=$2 WHERE id=$1 AND deleted_at IS NULL;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, at)
	if err != nil {
		return writeErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *contentRepo) ListByMediaID(ctx context.Context, tx repository.Tx, mediaID string) ([]*model.ContentItem, error) {
	const q = `SELECT ` + contentColumns + ` FROM content_items
WHERE kind='POST' AND media_id=$1 AND deleted_at IS NULL
ORDER BY created_at;`
	return r.list(ctx, tx, q, mediaID)
}

func (r *contentRepo) ListByStatus(ctx context.Context, tx repository.Tx, status model.Status, limit int) ([]*model.ContentItem, error) {
	const q = `SELECT ` + contentColumns + ` FROM content_items
WHERE status=$1 AND deleted_at IS NULL
ORDER BY created_at
LIMIT $2;`
	return r.list(ctx, tx, q, status, limitOrAll(limit))
}

func (r *contentRepo) ListStaleAwaiting(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.ContentItem, error) {
	const q = `SELECT ` + contentColumns + ` FROM content_items
WHERE status='AWAITING_VERDICT' AND deleted_at IS NULL AND created_at < $1
ORDER BY created_at
LIMIT $2;`
	return r.list(ctx, tx, q, olderThan, limitOrAll(limit))
}

func (r *contentRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.ContentItem, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.ContentItem
	for rows.Next() {
		c, err := scanContent(notFoundRow{rows})
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanContent(row scanner) (*model.ContentItem, error) {
	var (
		c                                     model.ContentItem
		kind, status                          string
		mediaID                               *string
		textStatus, textReason, textSource    *string
		mediaStatus, mediaReason, mediaSource *string
		textScore, mediaScore                 *float64
	)
	if err := row.Scan(
		&c.ID, &kind, &c.OwnerID, &c.Body, &mediaID, &c.ObjectKey, &c.MimeType, &c.DetectedLabel, &c.LabelConfidence,
		&status, &textStatus, &textScore, &textReason, &textSource,
		&mediaStatus, &mediaScore, &mediaReason, &mediaSource,
		&c.Confidence, &c.RejectionReason, &c.Version, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt,
	); err != nil {
		return nil, err
	}
	c.Kind = model.ContentKind(kind)
	c.Status = model.Status(status)
	c.MediaID = derefString(mediaID)
	c.Text = componentFrom(textStatus, textScore, textReason, textSource)
	c.Media = componentFrom(mediaStatus, mediaScore, mediaReason, mediaSource)
	return &c, nil
}

// componentArgs flattens a component into nullable columns; an absent
// component is stored as NULL status.
func componentArgs(s *model.ComponentState) (status *string, score *float64, reason *string, source *string) {
	if s == nil {
		return nil, nil, nil, nil
	}
	st := string(s.Status)
	return &st, s.Score, nullString(s.Reason), nullString(string(s.Source))
}

func componentFrom(status *string, score *float64, reason, source *string) *model.ComponentState {
	if status == nil {
		return nil
	}
	return &model.ComponentState{
		Status: model.Status(*status),
		Score:  score,
		Reason: derefString(reason),
		Source: model.VerdictSource(derefString(source)),
	}
}

// limitOrAll turns a non-positive limit into NULL, which Postgres reads as LIMIT ALL.
func limitOrAll(limit int) *int {
	if limit <= 0 {
		return nil
	}
	return &limit
}
