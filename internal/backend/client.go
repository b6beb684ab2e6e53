package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Endpoint paths, relative to the base URL.
const (
	PathInterpret    = "/api/interpret"
	PathExecute      = "/api/execute"
	PathObservations = "/api/observations"
	PathFeedback     = "/api/feedback"
	PathDownload     = "/api/download"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// Config holds configuration for a Client.
type Config struct {
	// BaseURL is the service root, optionally with a path prefix.
	BaseURL string
	// Timeout applies to each call. Zero means no timeout.
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client calls the budget query service.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	logger  *slog.Logger
}

// New creates a Client. The base URL must be absolute http or https.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", cfg.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", cfg.BaseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q: missing host", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		baseURL: base,
		timeout: cfg.Timeout,
		http:    httpClient,
		logger:  logger,
	}, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Interpret asks the service to turn a question into SQL.
func (c *Client) Interpret(ctx context.Context, req InterpretRequest) (*Interpretation, error) {
	var out Interpretation
	if err := c.postJSON(ctx, PathInterpret, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Execute runs SQL and returns the executed statement and CSV result.
func (c *Client) Execute(ctx context.Context, req ExecuteRequest) (*Execution, error) {
	var out Execution
	if err := c.postJSON(ctx, PathExecute, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Observe requests a natural-language summary of a result set.
func (c *Client) Observe(ctx context.Context, req ObservationsRequest) (*Observations, error) {
	var out Observations
	if err := c.postJSON(ctx, PathObservations, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendFeedback records user feedback for a question.
func (c *Client) SendFeedback(ctx context.Context, req FeedbackRequest) error {
	return c.postJSON(ctx, PathFeedback, req, nil)
}

// Download fetches the workbook for a statement.
func (c *Client) Download(ctx context.Context, req DownloadRequest) ([]byte, error) {
	resp, cancel, err := c.post(ctx, PathDownload, req)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.apiError(PathDownload, resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", PathDownload, err)
	}
	return data, nil
}

// postJSON posts body and decodes a 2xx JSON response into out (if non-nil).
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	resp, cancel, err := c.post(ctx, path, body)
	if err != nil {
		return err
	}
	defer cancel()
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.apiError(path, resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing %s response: %w", path, err)
	}
	return nil
}

// post sends a JSON POST. The returned cancel func must be called once the
// body has been consumed.
func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, context.CancelFunc, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, nil, fmt.Errorf("marshaling %s request: %w", path, err)
	}

	parent := ctx
	cancel := context.CancelFunc(func() {})
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("creating %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		c.logger.Debug("request failed", "path", path, "error", err)
		// Only name the client timeout when it fired, not the caller's deadline.
		if c.timeout > 0 && errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
			return nil, nil, fmt.Errorf("%s: request timed out after %s: %w", path, c.timeout, context.DeadlineExceeded)
		}
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	c.logger.Debug("request completed", "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	return resp, cancel, nil
}

// apiError builds an *APIError from a non-2xx response.
func (c *Client) apiError(path string, resp *http.Response) error {
	apiErr := &APIError{Endpoint: path, StatusCode: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err == nil && len(data) > 0 {
		var body errorBody
		if json.Unmarshal(data, &body) == nil {
			apiErr.Message = body.Error
		}
	}
	c.logger.Debug("service returned error", "path", path, "status", resp.StatusCode, "message", apiErr.Message)
	return apiErr
}
