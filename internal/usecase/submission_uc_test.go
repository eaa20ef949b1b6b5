//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"moderation-service/internal/domain"
	"moderation-service/internal/domain/model"
	"moderation-service/internal/usecase"
)

func TestSubmissionUseCase_SubmitPost(t *testing.T) {
	ctx := context.Background()

	t.Run("should create the item, jobs and dispatch them", func(t *testing.T) {
		f := newFixture(t)
		f.seedMedia(t, "m1", "uploader")

		sub, err := f.submissions.SubmitPost(ctx, "author", "  hi there ", "m1")
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		if sub.Item.Body != "hi there" || sub.Item.Media == nil || sub.Item.MediaID != "m1" {
			t.Errorf("unexpected item %+v", sub.Item)
		}
		if sub.Item.Status != model.StatusAwaitingVerdict {
			t.Errorf("expected AWAITING_VERDICT, got %s", sub.Item.Status)
		}
		if len(f.dispatcher.ids) != 2 {
			t.Errorf("expected two dispatched jobs, got %d", len(f.dispatcher.ids))
		}
		for _, j := range sub.Jobs {
			stored, err := f.jobs.FindByID(ctx, nil, j.ID)
			if err != nil || stored.Status != model.JobStatusPending {
				t.Errorf("job %s not stored as PENDING: %v", j.ID, err)
			}
		}
	})

	t.Run("should reject an unknown media reference without writing anything", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.submissions.SubmitPost(ctx, "author", "text", "nope")
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
		if len(f.dispatcher.ids) != 0 {
			t.Errorf("expected nothing dispatched, got %v", f.dispatcher.ids)
		}
		pending, _ := f.jobs.ListPendingBefore(ctx, farFuture(), 10)
		if len(pending) != 0 {
			t.Errorf("expected no stored jobs, got %d", len(pending))
		}
	})

	t.Run("should refuse to attach a post as media", func(t *testing.T) {
		f := newFixture(t)
		f.seedPost(t, "p1", "author", "")
		if _, err := f.submissions.SubmitPost(ctx, "author", "text", "p1"); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("should keep the submission when dispatch fails", func(t *testing.T) {
		f := newFixture(t)
		f.dispatcher.err = errors.New("queue full")
		sub, err := f.submissions.SubmitPost(ctx, "author", "text", "")
		if err != nil {
			t.Fatalf("submit should succeed, got %v", err)
		}
		job, err := f.jobs.FindByID(ctx, nil, sub.Jobs[0].ID)
		if err != nil || job.Status != model.JobStatusPending {
			t.Errorf("expected job left PENDING, got %v (err %v)", job, err)
		}
	})

	t.Run("should require owner and body", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.submissions.SubmitPost(ctx, "", "text", ""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for owner, got %v", err)
		}
		if _, err := f.submissions.SubmitPost(ctx, "author", "   ", ""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for body, got %v", err)
		}
	})
}

func TestSubmissionUseCase_SubmitMedia(t *testing.T) {
	f := newFixture(t)
	sub, err := f.submissions.SubmitMedia(context.Background(), "uploader", "a.jpg", "image/jpeg")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sub.Item.Kind != model.ContentKindMedia || sub.Item.Text != nil || sub.Item.Media == nil {
		t.Errorf("unexpected media item %+v", sub.Item)
	}
	kinds := map[model.JobKind]bool{}
	for _, j := range sub.Jobs {
		kinds[j.Kind] = true
		if j.SubjectID != sub.Item.ID || j.Input.ObjectKey != "a.jpg" {
			t.Errorf("unexpected job %+v", j)
		}
	}
	if !kinds[model.JobKindMediaModeration] || !kinds[model.JobKindMediaTagging] {
		t.Errorf("expected moderation and tagging jobs, got %v", kinds)
	}
}

func TestSubmissionUseCase_Delete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedPost(t, "p1", "author", "")

	if err := f.submissions.Delete(ctx, "p1", "intruder"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := f.submissions.Delete(ctx, "p1", "author"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.submissions.Get(ctx, "p1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected deleted item to be hidden, got %v", err)
	}
	if err := f.submissions.Delete(ctx, "p1", "author"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected second delete to be not found, got %v", err)
	}
}

func TestSubmissionUseCase_GetJob(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sub, err := f.submissions.SubmitPost(ctx, "author", "text", "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	id := sub.Jobs[0].ID

	if _, err := f.submissions.GetJob(ctx, model.JobKindTextModeration, id); err != nil {
		t.Errorf("expected job under its own kind, got %v", err)
	}
	if _, err := f.submissions.GetJob(ctx, model.JobKindMediaModeration, id); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound under another kind, got %v", err)
	}
}

func TestSubmissionUseCase_Summary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.submissions.RequestSummary(ctx, "place-1", []string{" ", ""}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty comments, got %v", err)
	}
	comments := make([]string, 250)
	for i := range comments {
		comments[i] = "nice"
	}
	job, err := f.submissions.RequestSummary(ctx, "place-1", comments)
	if err != nil {
		t.Fatalf("request summary: %v", err)
	}
	if len(job.Input.Comments) != 200 {
		t.Errorf("expected comments capped at 200, got %d", len(job.Input.Comments))
	}
	if _, err := f.submissions.LatestSummary(ctx, "place-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected no completed summary yet, got %v", err)
	}
}

func TestAdminUseCase_Override(t *testing.T) {
	ctx := context.Background()

	t.Run("should force REJECTED while the other component still waits", func(t *testing.T) {
		f := newFixture(t)
		f.seedMedia(t, "m1", "uploader")
		f.seedPost(t, "p1", "author", "m1")

		item, err := f.admin.Override(ctx, usecase.OverrideInput{
			ContentID: "p1", Component: model.ComponentText, Decision: model.StatusRejected, AdminID: "admin",
		})
		if err != nil {
			t.Fatalf("override: %v", err)
		}
		if item.Status != model.StatusRejected || item.RejectionReason != "Rejected by admin" {
			t.Errorf("expected admin rejection, got %s %q", item.Status, item.RejectionReason)
		}
	})

	t.Run("should carry a media decision to the media item and sibling posts", func(t *testing.T) {
		f := newFixture(t)
		f.seedMedia(t, "m1", "uploader")
		f.seedPost(t, "p1", "a", "m1")
		f.seedPost(t, "p2", "b", "m1")

		if _, err := f.admin.Override(ctx, usecase.OverrideInput{
			ContentID: "p1", Component: model.ComponentMedia, Decision: model.StatusApproved, AdminID: "admin",
		}); err != nil {
			t.Fatalf("override: %v", err)
		}
		for _, id := range []string{"m1", "p1", "p2"} {
			item := f.mustGet(t, id)
			if item.Media.Status != model.StatusApproved || item.Media.Source != model.SourceAdmin {
				t.Errorf("%s: expected admin-approved media, got %+v", id, item.Media)
			}
		}
		if got := f.mustGet(t, "m1").Status; got != model.StatusApproved {
			t.Errorf("expected media item APPROVED, got %s", got)
		}
	})

	t.Run("should overturn an earlier AI approval and keep it against later verdicts", func(t *testing.T) {
		f := newFixture(t)
		f.seedPost(t, "p1", "author", "")
		if _, err := f.verdicts.ApplyScore(ctx, "p1", model.ComponentText, ptr(0.1)); err != nil {
			t.Fatalf("ai verdict: %v", err)
		}

		item, err := f.admin.Override(ctx, usecase.OverrideInput{
			ContentID: "p1", Component: model.ComponentText, Decision: model.StatusRejected, Reason: "spam", AdminID: "admin",
		})
		if err != nil {
			t.Fatalf("override: %v", err)
		}
		if item.Status != model.StatusRejected {
			t.Fatalf("expected REJECTED, got %s", item.Status)
		}
		if _, err := f.verdicts.ApplyScore(ctx, "p1", model.ComponentText, ptr(0.0)); err != nil {
			t.Fatalf("late ai verdict: %v", err)
		}
		if got := f.mustGet(t, "p1"); got.Status != model.StatusRejected || got.Text.Source != model.SourceAdmin {
			t.Errorf("expected the admin rejection to stick, got %s from %s", got.Status, got.Text.Source)
		}
	})

	t.Run("should reject invalid decisions and components", func(t *testing.T) {
		f := newFixture(t)
		f.seedPost(t, "p1", "a", "")
		_, err := f.admin.Override(ctx, usecase.OverrideInput{ContentID: "p1", Component: model.ComponentText, Decision: model.StatusAwaitingVerdict})
		if !errors.Is(err, domain.ErrInvalidDecision) {
			t.Errorf("expected ErrInvalidDecision, got %v", err)
		}
		_, err = f.admin.Override(ctx, usecase.OverrideInput{ContentID: "p1", Component: "AUDIO", Decision: model.StatusApproved})
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestNotificationUseCase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedPost(t, "p1", "author", "")
	if _, err := f.verdicts.ApplyScore(ctx, "p1", model.ComponentText, ptr(0.95)); err != nil {
		t.Fatalf("apply: %v", err)
	}

	notes := f.notificationsFor(t, "author")
	if len(notes) != 1 || notes[0].IsRead || notes[0].Title != "Post rejected" {
		t.Fatalf("unexpected notifications %+v", notes)
	}
	if err := f.notifs.MarkRead(ctx, "someone-else", notes[0].ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for a foreign notification, got %v", err)
	}
	if err := f.notifs.MarkRead(ctx, "author", notes[0].ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if !f.notificationsFor(t, "author")[0].IsRead {
		t.Error("expected notification marked read")
	}
	if _, err := f.notifs.List(ctx, "", 10); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for empty user, got %v", err)
	}
}
