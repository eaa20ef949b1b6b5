package web

import (
	"time"

	"moderation-service/internal/domain/model"
	"moderation-service/internal/usecase"
)

type componentView struct {
	Status model.Status        `json:"status"`
	Score  *float64            `json:"score,omitempty"`
	Reason string              `json:"reason,omitempty"`
	Source model.VerdictSource `json:"source,omitempty"`
}

type contentView struct {
	ID              string            `json:"id"`
	Kind            model.ContentKind `json:"kind"`
	OwnerID         string            `json:"owner_id"`
	Body            string            `json:"body,omitempty"`
	MediaID         string            `json:"media_id,omitempty"`
	ObjectKey       string            `json:"object_key,omitempty"`
	MimeType        string            `json:"mime_type,omitempty"`
	DetectedLabel   string            `json:"detected_label,omitempty"`
	LabelConfidence *float64          `json:"label_confidence,omitempty"`
	Status          model.Status      `json:"status"`
	Text            *componentView    `json:"text,omitempty"`
	Media           *componentView    `json:"media,omitempty"`
	Confidence      *float64          `json:"confidence,omitempty"`
	RejectionReason string            `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func toComponentView(s *model.ComponentState) *componentView {
	if s == nil {
		return nil
	}
	return &componentView{Status: s.Status, Score: s.Score, Reason: s.Reason, Source: s.Source}
}

func toContentView(c *model.ContentItem) contentView {
	return contentView{
		ID:              c.ID,
		Kind:            c.Kind,
		OwnerID:         c.OwnerID,
		Body:            c.Body,
		MediaID:         c.MediaID,
		ObjectKey:       c.ObjectKey,
		MimeType:        c.MimeType,
		DetectedLabel:   c.DetectedLabel,
		LabelConfidence: c.LabelConfidence,
		Status:          c.Status,
		Text:            toComponentView(c.Text),
		Media:           toComponentView(c.Media),
		Confidence:      c.Confidence,
		RejectionReason: c.RejectionReason,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func toContentViews(items []*model.ContentItem) []contentView {
	out := make([]contentView, 0, len(items))
	for _, it := range items {
		out = append(out, toContentView(it))
	}
	return out
}

type submissionView struct {
	contentView
	JobIDs []string `json:"job_ids"`
}

func toSubmissionView(s *usecase.Submission) submissionView {
	ids := make([]string, 0, len(s.Jobs))
	for _, j := range s.Jobs {
		ids = append(ids, j.ID)
	}
	return submissionView{contentView: toContentView(s.Item), JobIDs: ids}
}

type jobView struct {
	ID        string           `json:"id"`
	Kind      model.JobKind    `json:"kind"`
	SubjectID string           `json:"subject_id"`
	Status    model.JobStatus  `json:"status"`
	Result    *model.JobResult `json:"result,omitempty"`
	Error     string           `json:"error_detail,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func toJobView(j *model.ModerationJob) jobView {
	return jobView{
		ID:        j.ID,
		Kind:      j.Kind,
		SubjectID: j.SubjectID,
		Status:    j.Status,
		Result:    j.Result,
		Error:     j.Error,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

type notificationView struct {
	ID        string       `json:"id"`
	ContentID string       `json:"content_id"`
	Status    model.Status `json:"status"`
	Title     string       `json:"title"`
	Message   string       `json:"message"`
	IsRead    bool         `json:"is_read"`
	CreatedAt time.Time    `json:"created_at"`
}

type activityView struct {
	ID        string               `json:"id"`
	ActorID   string               `json:"actor_id"`
	Action    model.ActivityAction `json:"action"`
	Metadata  map[string]any       `json:"metadata,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}
