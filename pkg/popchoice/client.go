// Package popchoice is a Go client for the PopChoice HTTP API.
package popchoice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Errors returned for well-known API statuses. Use errors.Is; the *APIError carries the details.
var (
	ErrNotFound = errors.New("popchoice: session not found")
	ErrConflict = errors.New("popchoice: session is busy or already has a result")

	ErrSessionIDRequired = errors.New("popchoice: session id is required")
)

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Problem    Problem
}

func (e *APIError) Error() string {
	if e.Problem.Detail != "" {
		return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Problem.Detail)
	}

	return fmt.Sprintf("API request failed with status %d", e.StatusCode)
}

// Is maps 404 and 409 to ErrNotFound and ErrConflict.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrConflict:
		return e.StatusCode == http.StatusConflict
	default:
		return false
	}
}

// ClientOptions configures the client.
type ClientOptions struct {
	// BaseURL is the server root, e.g. "http://localhost:8080".
	BaseURL string
	// RetryMax is the number of retries for reads (default: 2). Submissions are never retried.
	RetryMax int
	// Timeout is the HTTP client timeout (default: 60 seconds; a submission waits for the whole pipeline).
	Timeout time.Duration
}

// Client talks to a PopChoice API server.
type Client struct {
	baseURL string
	// reads retries GETs; writes never retries, so a submission is dispatched at most once.
	reads  *retryablehttp.Client
	writes *retryablehttp.Client
}

// NewClient creates a client with default options.
func NewClient(baseURL string) *Client {
	return NewClientWithOptions(ClientOptions{BaseURL: baseURL})
}

// NewClientWithOptions creates a client with custom options.
func NewClientWithOptions(opts ClientOptions) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}

	if opts.RetryMax == 0 {
		opts.RetryMax = 2
	}

	return &Client{
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		reads:   newRetryClient(opts.RetryMax, opts.Timeout),
		writes:  newRetryClient(0, opts.Timeout),
	}
}

func newRetryClient(retryMax int, timeout time.Duration) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = retryMax
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = time.Second
	client.HTTPClient.Timeout = timeout
	client.Logger = nil
	// Hand the last response back instead of a generic "giving up" error.
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return client
}

// CreateSession starts a new idle session.
func (c *Client) CreateSession(ctx context.Context) (*Session, error) {
	var session Session
	if err := c.do(ctx, http.MethodPost, "/v1/sessions", nil, http.StatusCreated, &session); err != nil {
		return nil, err
	}

	return &session, nil
}

// GetSession returns the current view of a session.
func (c *Client) GetSession(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrSessionIDRequired
	}

	var session Session
	if err := c.do(ctx, http.MethodGet, "/v1/sessions/"+id, nil, http.StatusOK, &session); err != nil {
		return nil, err
	}

	return &session, nil
}

// Submit sends the answers and waits for the pipeline. A pipeline failure is a session in StateError,
// not an error.
func (c *Client) Submit(ctx context.Context, id string, prefs Preferences) (*Session, error) {
	if id == "" {
		return nil, ErrSessionIDRequired
	}

	var session Session
	if err := c.do(ctx, http.MethodPost, "/v1/sessions/"+id+"/submit", prefs, http.StatusOK, &session); err != nil {
		return nil, err
	}

	return &session, nil
}

// TryAgain resets a finished session to the questions view.
func (c *Client) TryAgain(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrSessionIDRequired
	}

	var session Session
	if err := c.do(ctx, http.MethodPost, "/v1/sessions/"+id+"/reset", nil, http.StatusOK, &session); err != nil {
		return nil, err
	}

	return &session, nil
}

// Recommend runs one submission without keeping a session.
func (c *Client) Recommend(ctx context.Context, prefs Preferences) (*Session, error) {
	var session Session
	if err := c.do(ctx, http.MethodPost, "/v1/recommendations", prefs, http.StatusOK, &session); err != nil {
		return nil, err
	}

	return &session, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, wantStatus int, out any) error {
	var payload io.Reader

	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}

		payload = bytes.NewReader(data)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	req.Header.Set("Accept", "application/json")

	client := c.writes
	if method == http.MethodGet {
		client = c.reads
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("Failed to close response body", "error", err)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != wantStatus {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(data, &apiErr.Problem); err != nil {
			apiErr.Problem.Detail = strings.TrimSpace(string(data))
		}

		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}
