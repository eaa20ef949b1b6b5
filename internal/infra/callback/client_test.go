package callback

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"moderation-service/internal/domain/model"
)

type recorded struct {
	method, path, key string
	body              map[string]any
}

func newGateway(t *testing.T, status int) (*httptest.Server, *[]recorded) {
	t.Helper()
	var mu sync.Mutex
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		calls = append(calls, recorded{r.Method, r.URL.EscapedPath(), r.Header.Get(HeaderInternalKey), body})
		mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestClient(t *testing.T, base string) *Client {
	t.Helper()
	log := zerolog.Nop()
	c, err := NewClient(base, "s3cret", time.Second, &log)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestClient(t *testing.T) {
	ctx := context.Background()

	t.Run("should PATCH verdicts with the internal key", func(t *testing.T) {
		srv, calls := newGateway(t, http.StatusOK)
		c := newTestClient(t, srv.URL)
		if err := c.DeliverVerdict(ctx, "post-1", model.ComponentText, 0.42); err != nil {
			t.Fatalf("deliver: %v", err)
		}
		got := (*calls)[0]
		if got.method != http.MethodPatch || got.path != "/internal/components/post-1/verdict" || got.key != "s3cret" {
			t.Errorf("unexpected request %+v", got)
		}
		if got.body["score"] != 0.42 || got.body["component"] != "TEXT" {
			t.Errorf("unexpected body %v", got.body)
		}
	})

	t.Run("should send a null label when nothing was detected", func(t *testing.T) {
		srv, calls := newGateway(t, http.StatusOK)
		c := newTestClient(t, srv.URL)
		if err := c.DeliverTag(ctx, "m-1", model.TagResult{Confidence: 0.1}); err != nil {
			t.Fatalf("deliver: %v", err)
		}
		got := (*calls)[0]
		if v, ok := got.body["detected_label"]; !ok || v != nil {
			t.Errorf("expected explicit null label, got %v", got.body)
		}
		if got.path != "/internal/media/m-1/tag" {
			t.Errorf("unexpected path %s", got.path)
		}
	})

	t.Run("should escape ids and post summaries", func(t *testing.T) {
		srv, calls := newGateway(t, http.StatusOK)
		c := newTestClient(t, srv.URL)
		err := c.DeliverSummary(ctx, "place/7", model.SummaryResult{OverallSentiment: "neutral"})
		if err != nil {
			t.Fatalf("deliver: %v", err)
		}
		if got := (*calls)[0].path; got != "/internal/places/place%2F7/summary" {
			t.Errorf("unexpected path %s", got)
		}
	})

	t.Run("should fail on a non-2xx response", func(t *testing.T) {
		srv, _ := newGateway(t, http.StatusForbidden)
		c := newTestClient(t, srv.URL)
		if err := c.DeliverVerdict(ctx, "x", model.ComponentMedia, 0.9); err == nil {
			t.Error("expected an error")
		}
	})

	t.Run("should require a base url", func(t *testing.T) {
		log := zerolog.Nop()
		if _, err := NewClient(" ", "k", 0, &log); err == nil {
			t.Error("expected an error")
		}
	})
}
