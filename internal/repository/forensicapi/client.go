// Package forensicapi talks JSON over HTTP to the ForensicFlow backend.
package forensicapi

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

	"flowbot/internal/auth"
	"flowbot/internal/domain"
	svc "flowbot/internal/domain/services/assistant"
)

const (
	// DefaultTimeout bounds every backend request. AI-backed endpoints can
	// take tens of seconds.
	DefaultTimeout = 60 * time.Second

	maxResponseBytes = 10 << 20
)

// Options configures a Client
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	Tokens     auth.TokenSource
	Logger     *slog.Logger
	HTTPClient *http.Client
}

// Client implements every backend collaborator of the assistant.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     auth.TokenSource
	logger     *slog.Logger
}

var (
	_ svc.QueryService        = (*Client)(nil)
	_ svc.HypothesisService   = (*Client)(nil)
	_ svc.SessionStore        = (*Client)(nil)
	_ svc.AutocompleteService = (*Client)(nil)
	_ svc.PinService          = (*Client)(nil)
	_ svc.CaseAnalyzer        = (*Client)(nil)
)

// NewClient creates a backend client
func NewClient(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		tokens:     opts.Tokens,
		logger:     opts.Logger,
	}
}

// errorBody is the backend's error envelope
type errorBody struct {
	Error   string `json:"error"`
	Detail  string `json:"detail"`
	Details string `json:"details"`
}

func (b errorBody) message() string {
	parts := make([]string, 0, 2)
	for _, s := range []string{b.Error, b.Detail, b.Details} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ": ")
}

// do sends one request. in is JSON-encoded when non-nil; out is decoded
// from a 2xx body when non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %s %s: %v", domain.ErrUnavailable, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }() // Error ignored: response consumed

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", domain.ErrUnavailable, err)
	}

	c.logger.Debug("backend request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &domain.APIError{Status: resp.StatusCode, Path: path}
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil && eb.message() != "" {
			apiErr.Message = eb.message()
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
			if len(apiErr.Message) > 200 {
				apiErr.Message = apiErr.Message[:200]
			}
		}
		return apiErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse response from %s: %w", path, err)
	}
	return nil
}
