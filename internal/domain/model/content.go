package model

import (
	"fmt"
	"strings"
	"time"

	"moderation-service/internal/domain"
)

// ContentKind distinguishes user posts from uploaded media items.
type ContentKind string

const (
	ContentKindPost  ContentKind = "POST"
	ContentKindMedia ContentKind = "MEDIA"
)

// Component names one independently moderated part of a content item.
type Component string

const (
	ComponentText  Component = "TEXT"
	ComponentMedia Component = "MEDIA"
)

// ParseComponent accepts either case.
func ParseComponent(s string) (Component, error) {
	switch Component(strings.ToUpper(strings.TrimSpace(s))) {
	case ComponentText:
		return ComponentText, nil
	case ComponentMedia:
		return ComponentMedia, nil
	}
	return "", fmt.Errorf("%w: unknown component %q", domain.ErrInvalidArgument, s)
}

// Status is shared by components and the aggregate.
type Status string

const (
	StatusAwaitingVerdict Status = "AWAITING_VERDICT"
	StatusNeedsReview     Status = "NEEDS_REVIEW"
	StatusApproved        Status = "APPROVED"
	StatusRejected        Status = "REJECTED"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusAwaitingVerdict, StatusNeedsReview, StatusApproved, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", domain.ErrInvalidArgument, s)
}

// IsVerdict reports whether s is a decided value (anything but AWAITING_VERDICT).
func (s Status) IsVerdict() bool {
	return s == StatusNeedsReview || s == StatusApproved || s == StatusRejected
}

// VerdictSource records who produced a component's current status.
type VerdictSource string

const (
	SourceNone  VerdictSource = ""
	SourceAI    VerdictSource = "AI"
	SourceAdmin VerdictSource = "ADMIN"
)

// ComponentState is the moderation state of one component.
type ComponentState struct {
	Status Status
	Score  *float64
	Reason string
	Source VerdictSource
}

// AwaitingComponent returns a fresh component with no verdict.
func AwaitingComponent() *ComponentState {
	return &ComponentState{Status: StatusAwaitingVerdict}
}

// ContentItem is a post or a media item under moderation. A post always has
// a text component and has a media component only when it embeds media.
// A media item has only a media component.
type ContentItem struct {
	ID      string
	Kind    ContentKind
	OwnerID string

	// post fields
	Body    string
	MediaID string

	// media fields
	ObjectKey       string
	MimeType        string
	DetectedLabel   string
	LabelConfidence *float64

	Status          Status
	Text            *ComponentState
	Media           *ComponentState
	Confidence      *float64
	RejectionReason string

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// Component returns the state for c, or nil when the item has no such component.
func (c *ContentItem) Component(comp Component) *ComponentState {
	switch comp {
	case ComponentText:
		return c.Text
	case ComponentMedia:
		return c.Media
	}
	return nil
}

// DefaultComponent is the component a verdict targets when the caller does not name one.
func (c *ContentItem) DefaultComponent() Component {
	if c.Kind == ContentKindMedia {
		return ComponentMedia
	}
	return ComponentText
}

// PresentStatuses lists the status of every present component.
func (c *ContentItem) PresentStatuses() []Status {
	out := make([]Status, 0, 2)
	if c.Text != nil {
		out = append(out, c.Text.Status)
	}
	if c.Media != nil {
		out = append(out, c.Media.Status)
	}
	return out
}

// FirstRejectionReason returns the reason of the first rejected component, text first.
func (c *ContentItem) FirstRejectionReason() string {
	for _, st := range []*ComponentState{c.Text, c.Media} {
		if st != nil && st.Status == StatusRejected && st.Reason != "" {
			return st.Reason
		}
	}
	return ""
}

// ReferencedMediaID returns the media item whose verdict drives this item's media component.
func (c *ContentItem) ReferencedMediaID() string {
	if c.Kind == ContentKindMedia {
		return c.ID
	}
	return c.MediaID
}

func (c *ContentItem) IsDeleted() bool { return c.DeletedAt != nil }

// Clone returns a deep copy.
func (c *ContentItem) Clone() *ContentItem {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Text = c.Text.clone()
	cp.Media = c.Media.clone()
	cp.Confidence = cloneFloat(c.Confidence)
	cp.LabelConfidence = cloneFloat(c.LabelConfidence)
	if c.DeletedAt != nil {
		t := *c.DeletedAt
		cp.DeletedAt = &t
	}
	return &cp
}

func (s *ComponentState) clone() *ComponentState {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Score = cloneFloat(s.Score)
	return &cp
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// DeriveStatus computes the aggregate from the present components. An admin
// rejection on any component is terminal for the aggregate even while the
// other component still awaits its verdict.
func (c *ContentItem) DeriveStatus() Status {
	for _, st := range []*ComponentState{c.Text, c.Media} {
		if st != nil && st.Status == StatusRejected && st.Source == SourceAdmin {
			return StatusRejected
		}
	}
	if agg, ok := Reconcile(c.PresentStatuses()); ok {
		return agg
	}
	return StatusAwaitingVerdict
}

// Reconcile derives the aggregate status from the statuses of the present
// components. The second return value is false when the aggregate must stay
// as it is, which is the case while any component still awaits a verdict.
func Reconcile(present []Status) (Status, bool) {
	if len(present) == 0 {
		return "", false
	}
	rejected, review := false, false
	for _, s := range present {
		switch s {
		case StatusAwaitingVerdict:
			return "", false
		case StatusRejected:
			rejected = true
		case StatusNeedsReview:
			review = true
		}
	}
	switch {
	case rejected:
		return StatusRejected, true
	case review:
		return StatusNeedsReview, true
	}
	return StatusApproved, true
}
