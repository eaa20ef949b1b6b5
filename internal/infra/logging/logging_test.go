package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := WithTraceID(context.Background(), "tr-1")
	ctx = WithContentID(ctx, "c-9")
	With(ctx, &base).Info().Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["trace_id"] != "tr-1" || line["content_id"] != "c-9" {
		t.Errorf("expected ids in log line, got %v", line)
	}
	if _, ok := line["job_id"]; ok {
		t.Error("unset ids must not be logged")
	}
	if TraceID(ctx) != "tr-1" {
		t.Errorf("TraceID = %q", TraceID(ctx))
	}
}

func TestRedact(t *testing.T) {
	if got := Redact("short", false); got != "***" {
		t.Errorf("short secret: %q", got)
	}
	if got := Redact("supersecretkey", false); got != "supe...ey" {
		t.Errorf("long secret: %q", got)
	}
	if got := Redact("supersecretkey", true); got != "supersecretkey" {
		t.Errorf("dev mode should not redact: %q", got)
	}
}
