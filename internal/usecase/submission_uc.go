package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"moderation-service/internal/domain"
	"moderation-service/internal/domain/model"
	"moderation-service/internal/domain/ports/adapter"
	"moderation-service/internal/domain/ports/repository"
)

// Compile-time check
var _ SubmissionUseCase = (*submissionUC)(nil)

const maxSummaryComments = 200

// Submission is a created item with the jobs queued for it.
type Submission struct {
	Item *model.ContentItem
	Jobs []*model.ModerationJob
}

type SubmissionUseCase interface {
	// SubmitPost creates a post and its moderation jobs. A non-empty mediaID
	// attaches an existing media item, adding a media component.
	SubmitPost(ctx context.Context, ownerID, body, mediaID string) (*Submission, error)
	// SubmitMedia registers an uploaded object and queues moderation and tagging.
	SubmitMedia(ctx context.Context, ownerID, objectKey, mimeType string) (*Submission, error)
	// RequestSummary queues a comment summary for a place.
	RequestSummary(ctx context.Context, placeID string, comments []string) (*model.ModerationJob, error)
	LatestSummary(ctx context.Context, placeID string) (*model.ModerationJob, error)
	Get(ctx context.Context, id string) (*model.ContentItem, error)
	// Delete soft-deletes an item owned by ownerID.
	Delete(ctx context.Context, id, ownerID string) error
	// GetJob returns domain.ErrNotFound when the job exists under another kind.
	GetJob(ctx context.Context, kind model.JobKind, id string) (*model.ModerationJob, error)
}

type submissionUC struct {
	tm         repository.TransactionManager
	content    repository.ContentRepository
	jobs       repository.JobRepository
	activity   repository.ActivityRepository
	dispatcher adapter.JobDispatcher
	log        *zerolog.Logger
	now        func() time.Time
}

func NewSubmissionUseCase(
	tm repository.TransactionManager,
	content repository.ContentRepository,
	jobs repository.JobRepository,
	activity repository.ActivityRepository,
	dispatcher adapter.JobDispatcher,
	logger *zerolog.Logger,
) *submissionUC {
	return &submissionUC{
		tm:         tm,
		content:    content,
		jobs:       jobs,
		activity:   activity,
		dispatcher: dispatcher,
		log:        logger,
		now:        time.Now,
	}
}

func newJobID() string { return ulid.Make().String() }

func (u *submissionUC) SubmitPost(ctx context.Context, ownerID, body, mediaID string) (*Submission, error) {
	ownerID, body, mediaID = strings.TrimSpace(ownerID), strings.TrimSpace(body), strings.TrimSpace(mediaID)
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner is required", domain.ErrInvalidArgument)
	}
	if body == "" {
		return nil, fmt.Errorf("%w: body is required", domain.ErrInvalidArgument)
	}

	now := u.now()
	item := &model.ContentItem{
		ID:        uuid.NewString(),
		Kind:      model.ContentKindPost,
		OwnerID:   ownerID,
		Body:      body,
		Status:    model.StatusAwaitingVerdict,
		Text:      model.AwaitingComponent(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	jobs := []*model.ModerationJob{
		model.NewJob(newJobID(), model.JobKindTextModeration, item.ID, model.JobInput{Text: body}, now),
	}

	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if mediaID != "" {
			media, err := u.content.FindByID(ctx, tx, mediaID)
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("%w: media %s not found", domain.ErrInvalidArgument, mediaID)
			}
			if err != nil {
				return err
			}
			if media.Kind != model.ContentKindMedia || media.IsDeleted() {
				return fmt.Errorf("%w: %s is not a live media item", domain.ErrInvalidArgument, mediaID)
			}
			item.MediaID = media.ID
			item.Media = model.AwaitingComponent()
			jobs = append(jobs, model.NewJob(newJobID(), model.JobKindMediaModeration, media.ID,
				model.JobInput{ObjectKey: media.ObjectKey, MimeType: media.MimeType}, now))
		}
		return u.persist(ctx, tx, item, jobs)
	})
	if err != nil {
		return nil, err
	}

	u.dispatch(ctx, jobs)
	return &Submission{Item: item, Jobs: jobs}, nil
}

func (u *submissionUC) SubmitMedia(ctx context.Context, ownerID, objectKey, mimeType string) (*Submission, error) {
	ownerID, objectKey = strings.TrimSpace(ownerID), strings.TrimSpace(objectKey)
	if ownerID == "" || objectKey == "" {
		return nil, fmt.Errorf("%w: owner and object key are required", domain.ErrInvalidArgument)
	}

	now := u.now()
	item := &model.ContentItem{
		ID:        uuid.NewString(),
		Kind:      model.ContentKindMedia,
		OwnerID:   ownerID,
		ObjectKey: objectKey,
		MimeType:  strings.TrimSpace(mimeType),
		Status:    model.StatusAwaitingVerdict,
		Media:     model.AwaitingComponent(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	in := model.JobInput{ObjectKey: item.ObjectKey, MimeType: item.MimeType}
	jobs := []*model.ModerationJob{
		model.NewJob(newJobID(), model.JobKindMediaModeration, item.ID, in, now),
		model.NewJob(newJobID(), model.JobKindMediaTagging, item.ID, in, now),
	}

	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		return u.persist(ctx, tx, item, jobs)
	})
	if err != nil {
		return nil, err
	}

	u.dispatch(ctx, jobs)
	return &Submission{Item: item, Jobs: jobs}, nil
}

func (u *submissionUC) RequestSummary(ctx context.Context, placeID string, comments []string) (*model.ModerationJob, error) {
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return nil, fmt.Errorf("%w: place id is required", domain.ErrInvalidArgument)
	}
	cleaned := make([]string, 0, len(comments))
	for _, c := range comments {
		if c = strings.TrimSpace(c); c != "" {
			cleaned = append(cleaned, c)
		}
	}
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("%w: at least one comment is required", domain.ErrInvalidArgument)
	}
	if len(cleaned) > maxSummaryComments {
		cleaned = cleaned[len(cleaned)-maxSummaryComments:]
	}

	job := model.NewJob(newJobID(), model.JobKindSummary, placeID, model.JobInput{Comments: cleaned}, u.now())
	if err := u.jobs.Create(ctx, repository.NoTX, job); err != nil {
		return nil, err
	}
	u.dispatch(ctx, []*model.ModerationJob{job})
	return job, nil
}

func (u *submissionUC) LatestSummary(ctx context.Context, placeID string) (*model.ModerationJob, error) {
	return u.jobs.LatestCompleted(ctx, placeID, model.JobKindSummary)
}

func (u *submissionUC) Get(ctx context.Context, id string) (*model.ContentItem, error) {
	item, err := u.content.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	if item.IsDeleted() {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

func (u *submissionUC) Delete(ctx context.Context, id, ownerID string) error {
	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		item, err := u.content.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if item.IsDeleted() {
			return domain.ErrNotFound
		}
		if item.OwnerID != ownerID {
			return domain.ErrForbidden
		}
		now := u.now()
		if err := u.content.SoftDelete(ctx, tx, id, now); err != nil {
			return err
		}
		return u.activity.Log(ctx, tx, &model.ActivityEntry{
			ID:        uuid.NewString(),
			ActorID:   ownerID,
			Action:    model.ActionContentDeleted,
			TargetID:  id,
			Metadata:  map[string]any{"kind": string(item.Kind)},
			CreatedAt: now,
		})
	})
}

func (u *submissionUC) GetJob(ctx context.Context, kind model.JobKind, id string) (*model.ModerationJob, error) {
	job, err := u.jobs.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	if job.Kind != kind {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

func (u *submissionUC) persist(ctx context.Context, tx repository.Tx, item *model.ContentItem, jobs []*model.ModerationJob) error {
	if err := u.content.Create(ctx, tx, item); err != nil {
		return err
	}
	for _, j := range jobs {
		if err := u.jobs.Create(ctx, tx, j); err != nil {
			return err
		}
	}
	return u.activity.Log(ctx, tx, &model.ActivityEntry{
		ID:        uuid.NewString(),
		ActorID:   item.OwnerID,
		Action:    model.ActionContentSubmitted,
		TargetID:  item.ID,
		Metadata:  map[string]any{"kind": string(item.Kind), "jobs": len(jobs)},
		CreatedAt: item.CreatedAt,
	})
}

// dispatch hands jobs to the runner after commit. Failures leave the job
// PENDING and are only logged.
func (u *submissionUC) dispatch(ctx context.Context, jobs []*model.ModerationJob) {
	for _, j := range jobs {
		if err := u.safeDispatch(ctx, j.ID); err != nil {
			u.log.Warn().Err(err).Str("job_id", j.ID).Str("kind", string(j.Kind)).Msg("job dispatch failed; left pending")
		}
	}
}

func (u *submissionUC) safeDispatch(ctx context.Context, jobID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatch panic: %v", r)
		}
	}()
	if u.dispatcher == nil {
		return errors.New("no dispatcher configured")
	}
	return u.dispatcher.Dispatch(ctx, jobID)
}
