// Package webhook is the outbound HTTP client for the remote endpoints the
// clinic delegates to: document generation, prompt retrieval, and patient
// search. Requests are signed with HMAC-SHA256 so the remote side can verify
// the caller; responses arrive as JSON, raw text, or text wrapped in HTML,
// and are normalized before use.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	maxAttempts    = 3
	attemptTimeout = 30 * time.Second
	maxResponse    = 1 << 20 // 1 MiB
)

// Delivery records one outbound call, including retries.
type Delivery struct {
	ID         string        `json:"id"`
	URL        string        `json:"url"`
	StatusCode int           `json:"status_code"`
	Attempts   int           `json:"attempts"`
	Duration   time.Duration `json:"duration_ns"`
	Error      string        `json:"error,omitempty"`
}

type Client struct {
	httpClient *http.Client
	secret     string
	logger     zerolog.Logger
}

func NewClient(secret string, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: attemptTimeout},
		secret:     secret,
		logger:     logger,
	}
}

// SignPayload computes the hex HMAC-SHA256 of the payload under the shared
// secret.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Post signs and delivers the payload, retrying transient failures. A 4xx
// answer is terminal: the request will not get better by repeating it.
func (c *Client) Post(ctx context.Context, url string, payload interface{}) ([]byte, *Delivery, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal payload: %w", err)
	}

	delivery := &Delivery{ID: uuid.New().String(), URL: url}
	start := time.Now()
	defer func() { delivery.Duration = time.Since(start) }()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		delivery.Attempts = attempt

		resp, err := c.send(ctx, url, body)
		if err != nil {
			lastErr = err
			delivery.Error = err.Error()
			c.logger.Warn().Err(err).Str("url", url).Int("attempt", attempt).Msg("webhook call failed")
			if ctx.Err() != nil {
				break
			}
			time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
			continue
		}

		delivery.StatusCode = resp.StatusCode
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponse))
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("read response: %w", readErr)
			delivery.Error = lastErr.Error()
			continue
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			delivery.Error = ""
			return respBody, delivery, nil
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			lastErr = fmt.Errorf("endpoint rejected request: %d", resp.StatusCode)
			delivery.Error = lastErr.Error()
			return nil, delivery, lastErr
		default:
			lastErr = fmt.Errorf("non-2xx response: %d", resp.StatusCode)
			delivery.Error = lastErr.Error()
			time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
		}
	}

	return nil, delivery, fmt.Errorf("webhook delivery to %s failed after %d attempt(s): %w", url, delivery.Attempts, lastErr)
}

func (c *Client) send(ctx context.Context, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", "sha256="+SignPayload(body, c.secret))
	req.Header.Set("X-Webhook-Timestamp", time.Now().UTC().Format(time.RFC3339))

	return c.httpClient.Do(req)
}

// GenerateDocument asks the generation endpoint to produce a clinical
// document from the given prompt and returns the normalized text.
func (c *Client) GenerateDocument(ctx context.Context, url, prompt string) (string, *Delivery, error) {
	body, delivery, err := c.Post(ctx, url, map[string]string{"prompt": prompt})
	if err != nil {
		return "", delivery, err
	}
	return ExtractText(body), delivery, nil
}

// FetchPrompt retrieves the remote prompt template for a document kind.
func (c *Client) FetchPrompt(ctx context.Context, url, kind string) (string, *Delivery, error) {
	body, delivery, err := c.Post(ctx, url, map[string]string{"kind": kind})
	if err != nil {
		return "", delivery, err
	}
	return ExtractText(body), delivery, nil
}

// SearchPatients queries the external patient directory. The response body
// is returned raw: the caller owns the decoding.
func (c *Client) SearchPatients(ctx context.Context, url, query string) ([]byte, *Delivery, error) {
	return c.Post(ctx, url, map[string]string{"query": query})
}

// ExtractText normalizes a webhook response body into plain text. Endpoints
// answer inconsistently: some return a JSON object with a text-bearing
// field, some raw text, and some wrap the text in an HTML page.
func ExtractText(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var obj map[string]interface{}
	if err := json.Unmarshal(body, &obj); err == nil {
		for _, key := range []string{"text", "result", "content", "output", "document"} {
			if v, ok := obj[key].(string); ok && v != "" {
				return strings.TrimSpace(stripHTML(v))
			}
		}
	}

	return strings.TrimSpace(stripHTML(trimmed))
}

// stripHTML removes markup when the payload looks like an HTML document,
// keeping the text content. Non-HTML input passes through unchanged.
func stripHTML(s string) string {
	lower := strings.ToLower(s)
	if !strings.Contains(lower, "<html") && !strings.Contains(lower, "<body") {
		return s
	}

	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}
