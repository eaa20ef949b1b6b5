package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"moderation-service/internal/domain"
	"moderation-service/internal/domain/model"
	"moderation-service/internal/domain/policy"
	"moderation-service/internal/domain/ports/repository"
)

// Compile-time check
var _ VerdictUseCase = (*verdictUC)(nil)

// VerdictOutcome is the callback response body.
type VerdictOutcome struct {
	ContentID       string          `json:"content_id"`
	Component       model.Component `json:"component"`
	ComponentStatus model.Status    `json:"component_status"`
	AggregateStatus model.Status    `json:"aggregate_status"`
}

// VerdictUseCase handles results delivered by the job runner.
type VerdictUseCase interface {
	// ApplyScore maps score through the decision policy and reconciles the
	// resulting verdict. An empty component means the item's default one.
	ApplyScore(ctx context.Context, contentID string, component model.Component, score *float64) (*VerdictOutcome, error)
	// RecordTag stores an advisory label on a media item.
	RecordTag(ctx context.Context, mediaID string, label *string, confidence *float64) (*model.ContentItem, error)
	// RecordSummary audits a finished comment summary for a place.
	RecordSummary(ctx context.Context, placeID string, summary model.SummaryResult) error
}

type verdictUC struct {
	policy    policy.Policy
	tm        repository.TransactionManager
	content   repository.ContentRepository
	activity  repository.ActivityRepository
	reconcile ReconcileUseCase
	log       *zerolog.Logger
}

func NewVerdictUseCase(
	p policy.Policy,
	tm repository.TransactionManager,
	content repository.ContentRepository,
	activity repository.ActivityRepository,
	reconcile ReconcileUseCase,
	logger *zerolog.Logger,
) *verdictUC {
	return &verdictUC{policy: p, tm: tm, content: content, activity: activity, reconcile: reconcile, log: logger}
}

func (u *verdictUC) ApplyScore(ctx context.Context, contentID string, component model.Component, score *float64) (*VerdictOutcome, error) {
	if score == nil {
		return nil, fmt.Errorf("%w: score is required", domain.ErrInvalidArgument)
	}
	status, err := u.policy.Decide(*score)
	if err != nil {
		return nil, err
	}
	if component == "" {
		item, err := u.content.FindByID(ctx, repository.NoTX, contentID)
		if err != nil {
			return nil, err
		}
		component = item.DefaultComponent()
	}

	in := VerdictInput{
		ContentID: contentID,
		Component: component,
		Status:    status,
		Score:     score,
		Source:    model.SourceAI,
	}
	if status == model.StatusRejected {
		in.Reason = aiRejectionReason(component)
	}
	res, err := u.reconcile.Apply(ctx, in)
	if err != nil {
		return nil, err
	}

	item := res.Item
	if component == model.ComponentMedia && item.Kind == model.ContentKindMedia {
		n := u.reconcile.PropagateMedia(ctx, item.ID, *item.Media, "", "")
		u.log.Debug().Str("media_id", item.ID).Int("posts", n).Msg("media verdict propagated")
	}

	return &VerdictOutcome{
		ContentID:       item.ID,
		Component:       component,
		ComponentStatus: item.Component(component).Status,
		AggregateStatus: item.Status,
	}, nil
}

func (u *verdictUC) RecordTag(ctx context.Context, mediaID string, label *string, confidence *float64) (*model.ContentItem, error) {
	if confidence == nil {
		return nil, fmt.Errorf("%w: confidence is required", domain.ErrInvalidArgument)
	}
	if !model.ValidScore(*confidence) {
		return nil, fmt.Errorf("%w: confidence=%v", domain.ErrScoreOutOfRange, *confidence)
	}
	tag := model.TagResult{Confidence: *confidence}
	if label != nil {
		tag.Label = strings.TrimSpace(*label)
	}

	var item *model.ContentItem
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		found, err := u.content.FindByID(ctx, tx, mediaID)
		if err != nil {
			return err
		}
		if found.Kind != model.ContentKindMedia {
			return domain.ErrNotFound
		}
		if err := u.content.UpdateTag(ctx, tx, mediaID, tag); err != nil {
			return err
		}
		found.DetectedLabel = tag.Label
		found.LabelConfidence = &tag.Confidence
		item = found
		return u.activity.Log(ctx, tx, &model.ActivityEntry{
			ID:        uuid.NewString(),
			Action:    model.ActionAIMediaTag,
			TargetID:  mediaID,
			Metadata:  map[string]any{"detected_label": tag.Label, "confidence": tag.Confidence},
			CreatedAt: time.Now(),
		})
	})
	if err != nil {
		return nil, err
	}
	u.log.Info().Str("media_id", mediaID).Str("label", tag.Label).Float64("confidence", tag.Confidence).Msg("media tagged")
	return item, nil
}

func (u *verdictUC) RecordSummary(ctx context.Context, placeID string, summary model.SummaryResult) error {
	if strings.TrimSpace(placeID) == "" {
		return fmt.Errorf("%w: place id is required", domain.ErrInvalidArgument)
	}
	if err := (model.JobResult{Kind: model.JobKindSummary, Summary: &summary}).Validate(); err != nil {
		return err
	}
	err := u.activity.Log(ctx, repository.NoTX, &model.ActivityEntry{
		ID:       uuid.NewString(),
		Action:   model.ActionAISummary,
		TargetID: placeID,
		Metadata: map[string]any{
			"overall_sentiment": summary.OverallSentiment,
			"liked":             summary.Liked,
			"disliked":          summary.Disliked,
		},
		CreatedAt: time.Now(),
	})
	if err != nil {
		return err
	}
	u.log.Info().Str("place_id", placeID).Str("sentiment", summary.OverallSentiment).Msg("place summary recorded")
	return nil
}
