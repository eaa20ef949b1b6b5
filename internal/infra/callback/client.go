package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"moderation-service/internal/domain/model"
	"moderation-service/internal/domain/ports/adapter"
)

var _ adapter.VerdictCallback = (*Client)(nil)

// HeaderInternalKey authenticates runner callbacks to the gateway.
const HeaderInternalKey = "X-Internal-Key"

// Client delivers job results to the gateway's internal endpoints.
type Client struct {
	base   string
	key    string
	client *http.Client
	log    *zerolog.Logger
}

func NewClient(baseURL, internalKey string, timeout time.Duration, logger *zerolog.Logger) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("callback: empty base url")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	l := logger.With().Str("component", "callback").Logger()
	return &Client{base: baseURL, key: internalKey, client: &http.Client{Timeout: timeout}, log: &l}, nil
}

type verdictBody struct {
	Score     float64         `json:"score"`
	Component model.Component `json:"component,omitempty"`
}

type tagBody struct {
	DetectedLabel *string `json:"detected_label"`
	Confidence    float64 `json:"confidence"`
}

func (c *Client) DeliverVerdict(ctx context.Context, subjectID string, component model.Component, score float64) error {
	return c.patch(ctx, "/internal/components/"+url.PathEscape(subjectID)+"/verdict",
		verdictBody{Score: score, Component: component})
}

func (c *Client) DeliverTag(ctx context.Context, mediaID string, tag model.TagResult) error {
	body := tagBody{Confidence: tag.Confidence}
	if tag.Label != "" {
		label := tag.Label
		body.DetectedLabel = &label
	}
	return c.patch(ctx, "/internal/media/"+url.PathEscape(mediaID)+"/tag", body)
}

func (c *Client) DeliverSummary(ctx context.Context, placeID string, summary model.SummaryResult) error {
	return c.patch(ctx, "/internal/places/"+url.PathEscape(placeID)+"/summary", summary)
}

func (c *Client) patch(ctx context.Context, path string, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("callback %s: encode: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.base+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderInternalKey, c.key)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("callback %s: %w", path, err)
	}
	defer resp.Body.Close()
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("callback %s: http %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	c.log.Debug().Str("path", path).Int("status", resp.StatusCode).Msg("callback delivered")
	return nil
}
