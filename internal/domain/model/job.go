package model

import (
	"fmt"
	"strings"
	"time"

	"moderation-service/internal/domain"
)

type JobKind string

const (
	JobKindTextModeration  JobKind = "TEXT_MODERATION"
	JobKindMediaModeration JobKind = "MEDIA_MODERATION"
	JobKindMediaTagging    JobKind = "MEDIA_TAGGING"
	JobKindSummary         JobKind = "SUMMARY"
)

// ParseJobKind accepts the enum value in either case, with '-' or '_' separators.
func ParseJobKind(s string) (JobKind, error) {
	k := JobKind(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	switch k {
	case JobKindTextModeration, JobKindMediaModeration, JobKindMediaTagging, JobKindSummary:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrUnknownJobKind, s)
}

// Component returns the content component a moderation job decides.
// Tagging and summary jobs decide nothing.
func (k JobKind) Component() (Component, bool) {
	switch k {
	case JobKindTextModeration:
		return ComponentText, true
	case JobKindMediaModeration:
		return ComponentMedia, true
	}
	return "", false
}

// NeedsMedia reports whether the job's payload is a stored media object.
func (k JobKind) NeedsMedia() bool {
	return k == JobKindMediaModeration || k == JobKindMediaTagging
}

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JobInput is the payload a job is executed against.
type JobInput struct {
	Text      string   `json:"text,omitempty"`
	ObjectKey string   `json:"object_key,omitempty"`
	MimeType  string   `json:"mime_type,omitempty"`
	Comments  []string `json:"comments,omitempty"`
}

// ModerationJob tracks one capability invocation.
type ModerationJob struct {
	ID        string
	Kind      JobKind
	SubjectID string
	Status    JobStatus
	Input     JobInput
	Result    *JobResult
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewJob builds a PENDING job.
func NewJob(id string, kind JobKind, subjectID string, in JobInput, now time.Time) *ModerationJob {
	return &ModerationJob{
		ID:        id,
		Kind:      kind,
		SubjectID: subjectID,
		Status:    JobStatusPending,
		Input:     in,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (j *ModerationJob) Clone() *ModerationJob {
	if j == nil {
		return nil
	}
	cp := *j
	cp.Input.Comments = append([]string(nil), j.Input.Comments...)
	if j.Result != nil {
		r := *j.Result
		cp.Result = &r
	}
	return &cp
}
