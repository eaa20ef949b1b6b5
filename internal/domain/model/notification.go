package model

import "time"

// Notification is an owner-facing message recorded on an aggregate transition.
type Notification struct {
	ID        string
	UserID    string
	ContentID string
	Status    Status
	Title     string
	Message   string
	IsRead    bool
	CreatedAt time.Time
}

// ActivityAction classifies an activity log entry.
type ActivityAction string

const (
	ActionContentSubmitted ActivityAction = "CONTENT_SUBMITTED"
	ActionContentDeleted   ActivityAction = "CONTENT_DELETED"
	ActionAITextVerdict    ActivityAction = "AI_TEXT_VERDICT"
	ActionAIMediaVerdict   ActivityAction = "AI_MEDIA_VERDICT"
	ActionAIMediaTag       ActivityAction = "AI_MEDIA_TAG"
	ActionAISummary        ActivityAction = "AI_SUMMARY"
	ActionAdminApproved    ActivityAction = "ADMIN_APPROVED"
	ActionAdminReview      ActivityAction = "ADMIN_NEEDS_REVIEW"
	ActionAdminRejected    ActivityAction = "ADMIN_REJECTED"
)

// ActivityEntry is an append-only audit record.
type ActivityEntry struct {
	ID        string
	ActorID   string
	Action    ActivityAction
	TargetID  string
	Metadata  map[string]any
	CreatedAt time.Time
}
