package config

import (
	"strings"
	"testing"
	"time"
)

const minimalYAML = `
server:
  internal_api_key: secret
database:
  url: postgres://localhost/moderation
capability:
  base_url: http://ai:8000
callback:
  base_url: http://gateway:8080
`

func env(m map[string]string) LookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestParse(t *testing.T) {
	t.Run("should apply defaults", func(t *testing.T) {
		cfg, err := Parse([]byte(minimalYAML), env(nil))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if cfg.Policy.RejectThreshold != 0.8 || cfg.Policy.ReviewThreshold != 0.4 {
			t.Errorf("unexpected thresholds %+v", cfg.Policy)
		}
		if cfg.Capability.RequestTimeout != 30*time.Second {
			t.Errorf("expected 30s capability timeout, got %v", cfg.Capability.RequestTimeout)
		}
		if cfg.Worker.Workers != 4 || cfg.Worker.QueueSize != 256 {
			t.Errorf("unexpected worker defaults %+v", cfg.Worker)
		}
		if cfg.Sweep.Interval != 0 {
			t.Errorf("sweep should be off by default, got %v", cfg.Sweep.Interval)
		}
	})

	t.Run("should let env override yaml", func(t *testing.T) {
		cfg, err := Parse([]byte(minimalYAML), env(map[string]string{
			"REJECT_THRESHOLD":        "0.9",
			"REVIEW_THRESHOLD":        "0.5",
			"REQUEST_TIMEOUT_SECONDS": "12",
			"INTERNAL_API_KEY":        "from-env",
			"CALLBACK_BASE_URL":       "http://other:9000",
		}))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if cfg.Policy.RejectThreshold != 0.9 || cfg.Policy.ReviewThreshold != 0.5 {
			t.Errorf("thresholds not overridden: %+v", cfg.Policy)
		}
		if cfg.Capability.RequestTimeout != 12*time.Second {
			t.Errorf("timeout not overridden: %v", cfg.Capability.RequestTimeout)
		}
		if cfg.Server.InternalAPIKey != "from-env" || cfg.Callback.BaseURL != "http://other:9000" {
			t.Errorf("string overrides not applied: %+v %+v", cfg.Server, cfg.Callback)
		}
	})

	t.Run("should reject malformed env values", func(t *testing.T) {
		_, err := Parse([]byte(minimalYAML), env(map[string]string{"REJECT_THRESHOLD": "high"}))
		if err == nil || !strings.Contains(err.Error(), "REJECT_THRESHOLD") {
			t.Errorf("expected REJECT_THRESHOLD error, got %v", err)
		}
		_, err = Parse([]byte(minimalYAML), env(map[string]string{"REQUEST_TIMEOUT_SECONDS": "-1"}))
		if err == nil {
			t.Error("expected an error for a negative timeout")
		}
	})

	t.Run("should reject inverted thresholds", func(t *testing.T) {
		_, err := Parse([]byte(minimalYAML), env(map[string]string{"REJECT_THRESHOLD": "0.3", "REVIEW_THRESHOLD": "0.6"}))
		if err == nil || !strings.Contains(err.Error(), "thresholds") {
			t.Errorf("expected threshold error, got %v", err)
		}
	})

	t.Run("should require the internal key", func(t *testing.T) {
		y := strings.Replace(minimalYAML, "internal_api_key: secret", "internal_api_key: \"\"", 1)
		if _, err := Parse([]byte(y), env(nil)); err == nil {
			t.Error("expected missing internal key to fail")
		}
	})

	t.Run("should allow the memory driver without a url", func(t *testing.T) {
		y := minimalYAML + "\n"
		y = strings.Replace(y, "url: postgres://localhost/moderation", "driver: memory", 1)
		cfg, err := Parse([]byte(y), env(nil))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if cfg.Database.Driver != "memory" {
			t.Errorf("expected memory driver, got %q", cfg.Database.Driver)
		}
	})

	t.Run("should require provider keys for alternative providers", func(t *testing.T) {
		y := strings.Replace(minimalYAML,"capability:\n  base_url: http://ai:8000\n", "capability:\n  base_url: http://ai:8000\n  text_provider: openai\n", 1)
		if _, err := Parse([]byte(y), env(nil)); err == nil || !strings.Contains(err.Error(), "openai_key") {
			t.Errorf("expected openai_key error, got %v", err)
		}
	})
}
