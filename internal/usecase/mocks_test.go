//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"moderation-service/internal/domain/model"
	"moderation-service/internal/domain/policy"
	"moderation-service/internal/domain/ports/adapter"
	"moderation-service/internal/infra/db/memory"
	"moderation-service/internal/infra/worker"
	"moderation-service/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// --- Mock Dispatcher ---

type recordingDispatcher struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, jobID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, jobID)
	return d.err
}

// --- Mock Alerter ---

type mockAlerter struct {
	mu    sync.Mutex
	items []string
}

func (a *mockAlerter) AlertReview(_ context.Context, item *model.ContentItem) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items = append(a.items, item.ID)
	return nil
}

// --- Scripted capabilities ---

type scriptedCaps struct {
	text    map[string]model.TextScores
	media   map[string]model.MediaScores
	textErr error
}

func (c *scriptedCaps) ModerateText(_ context.Context, text string) (model.TextScores, error) {
	if c.textErr != nil {
		return model.TextScores{}, c.textErr
	}
	s, ok := c.text[text]
	if !ok {
		return model.TextScores{}, errors.New("no script for text")
	}
	return s, nil
}

func (c *scriptedCaps) ModerateMedia(_ context.Context, f adapter.MediaFile) (model.MediaScores, error) {
	s, ok := c.media[f.ObjectKey]
	if !ok {
		return model.MediaScores{}, errors.New("no script for media")
	}
	return s, nil
}

func (c *scriptedCaps) TagMedia(context.Context, adapter.MediaFile) (model.TagResult, error) {
	return model.TagResult{Label: "landscape", Confidence: 0.9}, nil
}

type nopFetcher struct{}

func (nopFetcher) Fetch(_ context.Context, key string) (string, func(), error) {
	return "/dev/null", func() {}, nil
}

// directCallback feeds runner results straight into the verdict use case.
type directCallback struct {
	verdicts usecase.VerdictUseCase
}

func (d directCallback) DeliverVerdict(ctx context.Context, subjectID string, c model.Component, score float64) error {
	_, err := d.verdicts.ApplyScore(ctx, subjectID, c, &score)
	return err
}

func (d directCallback) DeliverTag(ctx context.Context, mediaID string, tag model.TagResult) error {
	label := tag.Label
	_, err := d.verdicts.RecordTag(ctx, mediaID, &label, &tag.Confidence)
	return err
}

func (d directCallback) DeliverSummary(ctx context.Context, placeID string, s model.SummaryResult) error {
	return d.verdicts.RecordSummary(ctx, placeID, s)
}

// --- Fixture ---

type fixture struct {
	store         *memory.Store
	content       *memory.ContentRepo
	jobs          *memory.JobRepo
	notifications *memory.NotificationRepo
	activity      *memory.ActivityRepo
	dispatcher    *recordingDispatcher
	alerter       *mockAlerter

	reconcile   usecase.ReconcileUseCase
	verdicts    usecase.VerdictUseCase
	submissions usecase.SubmissionUseCase
	admin       usecase.AdminUseCase
	notifs      usecase.NotificationUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := newTestLogger()
	s := memory.NewStore()
	f := &fixture{
		store:         s,
		content:       memory.NewContentRepo(s),
		jobs:          memory.NewJobRepo(s),
		notifications: memory.NewNotificationRepo(s),
		activity:      memory.NewActivityRepo(s),
		dispatcher:    &recordingDispatcher{},
		alerter:       &mockAlerter{},
	}
	tm := memory.NewTxManager(s)
	f.reconcile = usecase.NewReconcileUseCase(tm, f.content, f.notifications, f.activity, f.alerter, logger)
	f.verdicts = usecase.NewVerdictUseCase(policy.Default(), tm, f.content, f.activity, f.reconcile, logger)
	f.submissions = usecase.NewSubmissionUseCase(tm, f.content, f.jobs, f.activity, f.dispatcher, logger)
	f.admin = usecase.NewAdminUseCase(f.content, f.activity, f.reconcile, logger)
	f.notifs = usecase.NewNotificationUseCase(f.notifications, logger)
	return f
}

func (f *fixture) runner(caps *scriptedCaps) *worker.Runner {
	return worker.NewRunner(
		f.jobs,
		adapter.Capabilities{Text: caps, Media: caps, Tagger: caps},
		nopFetcher{},
		directCallback{verdicts: f.verdicts},
		newTestLogger(),
		worker.WithCapabilityTimeout(time.Second),
	)
}

func (f *fixture) mustGet(t *testing.T, id string) *model.ContentItem {
	t.Helper()
	item, err := f.content.FindByID(context.Background(), nil, id)
	if err != nil {
		t.Fatalf("load %s: %v", id, err)
	}
	return item
}

func (f *fixture) notificationsFor(t *testing.T, userID string) []*model.Notification {
	t.Helper()
	list, err := f.notifs.List(context.Background(), userID, 0)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	return list
}

// seedPost stores a post directly, with a media component when mediaID is set.
func (f *fixture) seedPost(t *testing.T, id, owner, mediaID string) *model.ContentItem {
	t.Helper()
	now := time.Now()
	p := &model.ContentItem{
		ID: id, Kind: model.ContentKindPost, OwnerID: owner, Body: "body of " + id,
		Status: model.StatusAwaitingVerdict, Text: model.AwaitingComponent(),
		CreatedAt: now, UpdatedAt: now,
	}
	if mediaID != "" {
		p.MediaID = mediaID
		p.Media = model.AwaitingComponent()
	}
	if err := f.content.Create(context.Background(), nil, p); err != nil {
		t.Fatalf("seed post: %v", err)
	}
	return p
}

func (f *fixture) seedMedia(t *testing.T, id, owner string) *model.ContentItem {
	t.Helper()
	now := time.Now()
	m := &model.ContentItem{
		ID: id, Kind: model.ContentKindMedia, OwnerID: owner, ObjectKey: id + ".jpg", MimeType: "image/jpeg",
		Status: model.StatusAwaitingVerdict, Media: model.AwaitingComponent(),
		CreatedAt: now, UpdatedAt: now,
	}
	if err := f.content.Create(context.Background(), nil, m); err != nil {
		t.Fatalf("seed media: %v", err)
	}
	return m
}

func ptr(f float64) *float64 { return &f }

func farFuture() time.Time { return time.Now().Add(24 * time.Hour) }
