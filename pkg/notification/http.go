package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultHTTPTimeout = 30 * time.Second

// HTTPDispatcher posts notification requests to an email service endpoint.
type HTTPDispatcher struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// HTTPOption configures an HTTPDispatcher.
type HTTPOption func(*HTTPDispatcher)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(d *HTTPDispatcher) {
		d.client = client
	}
}

// NewHTTPDispatcher creates a dispatcher posting to url.
func NewHTTPDispatcher(logger *slog.Logger, url string, opts ...HTTPOption) *HTTPDispatcher {
	d := &HTTPDispatcher{
		url:    url,
		client: &http.Client{Timeout: defaultHTTPTimeout},
		logger: logger.With("module", "notification"),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

type httpResponse struct {
	Success *bool  `json:"success"`
	EmailID string `json:"emailId"`
	Error   string `json:"error"`
}

func (d *HTTPDispatcher) Dispatch(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal notification request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create notification request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send notification request: %w", err)
	}

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			d.logger.ErrorContext(ctx, "failed to close response body", "error", err)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read notification response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d: %s", ErrDispatchFailed, resp.StatusCode, bytes.TrimSpace(raw))
	}

	var parsed httpResponse

	if len(raw) > 0 {
		err = json.Unmarshal(raw, &parsed)
		if err != nil {
			return "", fmt.Errorf("failed to decode notification response: %w", err)
		}
	}

	if parsed.Success != nil && !*parsed.Success {
		return "", fmt.Errorf("%w: %s", ErrDispatchFailed, parsed.Error)
	}

	return parsed.EmailID, nil
}
