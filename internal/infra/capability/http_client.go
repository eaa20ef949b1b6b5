package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"moderation-service/internal/domain/model"
	"moderation-service/internal/domain/ports/adapter"
)

// Compile-time checks
var (
	_ adapter.TextModerator  = (*HTTPClient)(nil)
	_ adapter.MediaModerator = (*HTTPClient)(nil)
	_ adapter.MediaTagger    = (*HTTPClient)(nil)
	_ adapter.Summarizer     = (*HTTPClient)(nil)
)

const maxResponseBytes = 1 << 20

// HTTPClient talks to the scoring service over its JSON/multipart API.
type HTTPClient struct {
	base   string
	client *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) (*HTTPClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("capability: empty base url")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{base: baseURL, client: &http.Client{Timeout: timeout}}, nil
}

func (c *HTTPClient) ModerateText(ctx context.Context, text string) (model.TextScores, error) {
	var payload struct {
		Scores model.TextScores `json:"scores"`
	}
	err := c.postJSON(ctx, "/v1/moderate/text", map[string]string{"text": text}, &payload)
	return payload.Scores, err
}

func (c *HTTPClient) ModerateMedia(ctx context.Context, media adapter.MediaFile) (model.MediaScores, error) {
	var out model.MediaScores
	err := c.postFile(ctx, "/v1/moderate/image", media, &out)
	return out, err
}

func (c *HTTPClient) TagMedia(ctx context.Context, media adapter.MediaFile) (model.TagResult, error) {
	var payload struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	}
	if err := c.postFile(ctx, "/v1/tag/image", media, &payload); err != nil {
		return model.TagResult{}, err
	}
	return model.TagResult{Label: payload.Label, Confidence: payload.Confidence}, nil
}

func (c *HTTPClient) Summarize(ctx context.Context, comments []string) (model.SummaryResult, error) {
	var out model.SummaryResult
	err := c.postJSON(ctx, "/v1/summarize", map[string][]string{"comments": comments}, &out)
	return out, err
}

func (c *HTTPClient) postJSON(ctx context.Context, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("capability %s: encode: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path, out)
}

func (c *HTTPClient) postFile(ctx context.Context, path string, media adapter.MediaFile, out any) error {
	f, err := os.Open(media.Path)
	if err != nil {
		return fmt.Errorf("capability %s: open media: %w", path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	name := filepath.Base(media.ObjectKey)
	if name == "." || name == "/" || name == "" {
		name = filepath.Base(media.Path)
	}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	mime := media.MimeType
	if mime == "" {
		mime = "application/octet-stream"
	}
	h.Set("Content-Type", mime)
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("capability %s: read media: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req, path, out)
}

func (c *HTTPClient) do(req *http.Request, path string, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("capability %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("capability %s: read body: %w", path, err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("capability %s: http %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("capability %s: decode: %w", path, err)
	}
	return nil
}
