//go:build !integration

package worker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"moderation-service/internal/domain/model"
	"moderation-service/internal/domain/ports/adapter"
	"moderation-service/internal/infra/db/memory"
)

// --- Mocks ---

type mockText struct {
	ModerateTextFunc func(ctx context.Context, text string) (model.TextScores, error)
}

func (m *mockText) ModerateText(ctx context.Context, text string) (model.TextScores, error) {
	return m.ModerateTextFunc(ctx, text)
}

type mockMedia struct {
	ModerateMediaFunc func(ctx context.Context, f adapter.MediaFile) (model.MediaScores, error)
}

func (m *mockMedia) ModerateMedia(ctx context.Context, f adapter.MediaFile) (model.MediaScores, error) {
	return m.ModerateMediaFunc(ctx, f)
}

type mockTagger struct {
	TagMediaFunc func(ctx context.Context, f adapter.MediaFile) (model.TagResult, error)
}

func (m *mockTagger) TagMedia(ctx context.Context, f adapter.MediaFile) (model.TagResult, error) {
	return m.TagMediaFunc(ctx, f)
}

type mockFetcher struct {
	mu       sync.Mutex
	released int
	err      error
}

func (m *mockFetcher) Fetch(_ context.Context, key string) (string, func(), error) {
	if m.err != nil {
		return "", nil, m.err
	}
	return "/tmp/" + key, func() {
		m.mu.Lock()
		m.released++
		m.mu.Unlock()
	}, nil
}

type verdictCall struct {
	subject   string
	component model.Component
	score     float64
}

type mockCallback struct {
	mu       sync.Mutex
	verdicts []verdictCall
	tags     []model.TagResult
	err      error
}

func (m *mockCallback) DeliverVerdict(_ context.Context, subject string, c model.Component, score float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verdicts = append(m.verdicts, verdictCall{subject, c, score})
	return m.err
}

func (m *mockCallback) DeliverTag(_ context.Context, _ string, tag model.TagResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tags = append(m.tags, tag)
	return m.err
}

func (m *mockCallback) DeliverSummary(context.Context, string, model.SummaryResult) error {
	return m.err
}

func (m *mockCallback) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.verdicts) + len(m.tags)
}

// --- Helpers ---

func newJobStore(t *testing.T, job *model.ModerationJob) *memory.JobRepo {
	t.Helper()
	repo := memory.NewJobRepo(memory.NewStore())
	if err := repo.Create(context.Background(), nil, job); err != nil {
		t.Fatalf("seed job: %v", err)
	}
	return repo
}

func loadJob(t *testing.T, repo *memory.JobRepo, id string) *model.ModerationJob {
	t.Helper()
	j, err := repo.FindByID(context.Background(), nil, id)
	if err != nil {
		t.Fatalf("load job: %v", err)
	}
	return j
}

func TestRunner_Execute(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	t.Run("should complete a text job and deliver the worst label as score", func(t *testing.T) {
		// --- Arrange ---
		job := model.NewJob("j1", model.JobKindTextModeration, "post-1", model.JobInput{Text: "hello"}, time.Now())
		repo := newJobStore(t, job)
		cb := &mockCallback{}
		caps := adapter.Capabilities{Text: &mockText{ModerateTextFunc: func(_ context.Context, text string) (model.TextScores, error) {
			return model.TextScores{Clean: 0.8, Spam: 0.05, Insult: 0.2}, nil
		}}}
		r := NewRunner(repo, caps, nil, cb, &logger)

		// --- Act ---
		r.Execute(ctx, "j1")

		// --- Assert ---
		got := loadJob(t, repo, "j1")
		if got.Status != model.JobStatusCompleted || got.Result == nil || got.Result.Text == nil {
			t.Fatalf("expected COMPLETED with text result, got %+v", got)
		}
		if len(cb.verdicts) != 1 {
			t.Fatalf("expected exactly one callback, got %d", len(cb.verdicts))
		}
		v := cb.verdicts[0]
		if v.subject != "post-1" || v.component != model.ComponentText || v.score != 0.2 {
			t.Errorf("unexpected callback: %+v", v)
		}
	})

	t.Run("should mark the job failed and skip the callback when the capability errors", func(t *testing.T) {
		job := model.NewJob("j2", model.JobKindTextModeration, "post-2", model.JobInput{Text: "x"}, time.Now())
		repo := newJobStore(t, job)
		cb := &mockCallback{}
		caps := adapter.Capabilities{Text: &mockText{ModerateTextFunc: func(context.Context, string) (model.TextScores, error) {
			return model.TextScores{}, errors.New("model exploded")
		}}}
		r := NewRunner(repo, caps, nil, cb, &logger)

		r.Execute(ctx, "j2")

		got := loadJob(t, repo, "j2")
		if got.Status != model.JobStatusFailed {
			t.Fatalf("expected FAILED, got %s", got.Status)
		}
		if got.Error != "capability: model exploded" {
			t.Errorf("unexpected error detail %q", got.Error)
		}
		if cb.calls() != 0 {
			t.Errorf("expected no callback, got %d", cb.calls())
		}
	})

	t.Run("should classify a capability deadline as a timeout", func(t *testing.T) {
		job := model.NewJob("j3", model.JobKindTextModeration, "post-3", model.JobInput{Text: "x"}, time.Now())
		repo := newJobStore(t, job)
		caps := adapter.Capabilities{Text: &mockText{ModerateTextFunc: func(ctx context.Context, _ string) (model.TextScores, error) {
			<-ctx.Done()
			return model.TextScores{}, ctx.Err()
		}}}
		r := NewRunner(repo, caps, nil, &mockCallback{}, &logger, WithCapabilityTimeout(10*time.Millisecond))

		r.Execute(ctx, "j3")

		got := loadJob(t, repo, "j3")
		if got.Status != model.JobStatusFailed || !strings.HasPrefix(got.Error, "timeout:") {
			t.Errorf("expected timeout failure, got %s / %q", got.Status, got.Error)
		}
	})

	t.Run("should release the media copy even when moderation fails", func(t *testing.T) {
		job := model.NewJob("j4", model.JobKindMediaModeration, "media-1", model.JobInput{ObjectKey: "a.jpg"}, time.Now())
		repo := newJobStore(t, job)
		fetcher := &mockFetcher{}
		caps := adapter.Capabilities{Media: &mockMedia{ModerateMediaFunc: func(_ context.Context, f adapter.MediaFile) (model.MediaScores, error) {
			if f.Path != "/tmp/a.jpg" {
				t.Errorf("unexpected path %q", f.Path)
			}
			return model.MediaScores{}, errors.New("decode failed")
		}}}
		r := NewRunner(repo, caps, fetcher, &mockCallback{}, &logger)

		r.Execute(ctx, "j4")

		if fetcher.released != 1 {
			t.Errorf("expected release to be called once, got %d", fetcher.released)
		}
		if got := loadJob(t, repo, "j4"); got.Status != model.JobStatusFailed {
			t.Errorf("expected FAILED, got %s", got.Status)
		}
	})

	t.Run("should record a storage failure when the media cannot be fetched", func(t *testing.T) {
		job := model.NewJob("j5", model.JobKindMediaModeration, "media-1", model.JobInput{ObjectKey: "gone.jpg"}, time.Now())
		repo := newJobStore(t, job)
		caps := adapter.Capabilities{Media: &mockMedia{ModerateMediaFunc: func(context.Context, adapter.MediaFile) (model.MediaScores, error) {
			t.Error("capability must not run without media")
			return model.MediaScores{}, nil
		}}}
		r := NewRunner(repo, caps, &mockFetcher{err: errors.New("no such key")}, &mockCallback{}, &logger)

		r.Execute(ctx, "j5")

		got := loadJob(t, repo, "j5")
		if got.Error != "storage: no such key" {
			t.Errorf("unexpected error detail %q", got.Error)
		}
	})

	t.Run("should reject out-of-range scores as an invalid result", func(t *testing.T) {
		job := model.NewJob("j6", model.JobKindMediaModeration, "media-1", model.JobInput{ObjectKey: "a.jpg"}, time.Now())
		repo := newJobStore(t, job)
		cb := &mockCallback{}
		caps := adapter.Capabilities{Media: &mockMedia{ModerateMediaFunc: func(context.Context, adapter.MediaFile) (model.MediaScores, error) {
			return model.MediaScores{NSFW: 1.7}, nil
		}}}
		r := NewRunner(repo, caps, &mockFetcher{}, cb, &logger)

		r.Execute(ctx, "j6")

		got := loadJob(t, repo, "j6")
		if got.Status != model.JobStatusFailed || !strings.HasPrefix(got.Error, "invalid_result:") {
			t.Errorf("expected invalid_result failure, got %s / %q", got.Status, got.Error)
		}
		if cb.calls() != 0 {
			t.Error("expected no callback for an invalid result")
		}
	})

	t.Run("should contain a panicking capability", func(t *testing.T) {
		job := model.NewJob("j7", model.JobKindTextModeration, "post-7", model.JobInput{Text: "x"}, time.Now())
		repo := newJobStore(t, job)
		caps := adapter.Capabilities{Text: &mockText{ModerateTextFunc: func(context.Context, string) (model.TextScores, error) {
			panic("nil map")
		}}}
		r := NewRunner(repo, caps, nil, &mockCallback{}, &logger)

		r.Execute(ctx, "j7")

		if got := loadJob(t, repo, "j7"); got.Status != model.JobStatusFailed {
			t.Errorf("expected FAILED after panic, got %s", got.Status)
		}
	})

	t.Run("should deliver tagging results through the tag callback", func(t *testing.T) {
		job := model.NewJob("j8", model.JobKindMediaTagging, "media-1", model.JobInput{ObjectKey: "a.jpg"}, time.Now())
		repo := newJobStore(t, job)
		cb := &mockCallback{}
		caps := adapter.Capabilities{Tagger: &mockTagger{TagMediaFunc: func(context.Context, adapter.MediaFile) (model.TagResult, error) {
			return model.TagResult{Label: "mountain", Confidence: 0.66}, nil
		}}}
		r := NewRunner(repo, caps, &mockFetcher{}, cb, &logger)

		r.Execute(ctx, "j8")

		if len(cb.tags) != 1 || cb.tags[0].Label != "mountain" {
			t.Errorf("expected one mountain tag, got %+v", cb.tags)
		}
		if len(cb.verdicts) != 0 {
			t.Error("tagging must not produce a verdict callback")
		}
	})

	t.Run("should run a job only once", func(t *testing.T) {
		job := model.NewJob("j9", model.JobKindTextModeration, "post-9", model.JobInput{Text: "x"}, time.Now())
		repo := newJobStore(t, job)
		cb := &mockCallback{}
		var mu sync.Mutex
		calls := 0
		caps := adapter.Capabilities{Text: &mockText{ModerateTextFunc: func(context.Context, string) (model.TextScores, error) {
			mu.Lock()
			calls++
			mu.Unlock()
			return model.TextScores{Clean: 1}, nil
		}}}
		r := NewRunner(repo, caps, nil, cb, &logger)

		var wg sync.WaitGroup
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() { defer wg.Done(); r.Execute(ctx, "j9") }()
		}
		wg.Wait()

		if calls != 1 || cb.calls() != 1 {
			t.Errorf("expected one capability call and one callback, got %d and %d", calls, cb.calls())
		}
	})

	t.Run("should still complete the job when the callback fails", func(t *testing.T) {
		job := model.NewJob("j10", model.JobKindTextModeration, "post-10", model.JobInput{Text: "x"}, time.Now())
		repo := newJobStore(t, job)
		cb := &mockCallback{err: errors.New("connection refused")}
		caps := adapter.Capabilities{Text: &mockText{ModerateTextFunc: func(context.Context, string) (model.TextScores, error) {
			return model.TextScores{Clean: 1}, nil
		}}}
		r := NewRunner(repo, caps, nil, cb, &logger)

		r.Execute(ctx, "j10")

		if got := loadJob(t, repo, "j10"); got.Status != model.JobStatusCompleted {
			t.Errorf("expected COMPLETED despite callback failure, got %s", got.Status)
		}
	})
}

func TestPoolDispatcher_DrainsInFlightJobOnShutdown(t *testing.T) {
	logger := zerolog.Nop()
	job := model.NewJob("j20", model.JobKindTextModeration, "post-20", model.JobInput{Text: "slow"}, time.Now())
	repo := newJobStore(t, job)
	cb := &mockCallback{}

	started := make(chan struct{})
	release := make(chan struct{})
	caps := adapter.Capabilities{Text: &mockText{ModerateTextFunc: func(ctx context.Context, _ string) (model.TextScores, error) {
		close(started)
		select {
		case <-release:
			return model.TextScores{Clean: 0.9, Spam: 0.1}, nil
		case <-ctx.Done():
			return model.TextScores{}, ctx.Err()
		}
	}}}
	r := NewRunner(repo, caps, nil, cb, &logger)

	// --- Arrange ---
	appCtx, shutdown := context.WithCancel(context.Background())
	pool := NewPool(1, 0, &logger)
	pool.Start(appCtx)
	if err := NewPoolDispatcher(pool, r).Dispatch(appCtx, "j20"); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("job did not start")
	}

	// --- Act ---
	shutdown()
	stopped := make(chan struct{})
	go func() { pool.Stop(); close(stopped) }()
	time.Sleep(20 * time.Millisecond)
	close(release)

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("pool did not drain")
	}

	// --- Assert ---
	got := loadJob(t, repo, "j20")
	if got.Status != model.JobStatusCompleted {
		t.Fatalf("expected COMPLETED after shutdown, got %s (%s)", got.Status, got.Error)
	}
	if cb.calls() != 1 {
		t.Errorf("expected the callback to be delivered once, got %d", cb.calls())
	}
}
