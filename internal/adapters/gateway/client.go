package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"evacuation-dashboard/internal/platform/obs"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "http://localhost:5000/api"
	DefaultTimeout = 15 * time.Second
)

// APIError is the single error shape every gateway call fails with.
// Message is suitable for display; Status is 0 for transport failures.
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string { return e.Message }

func (e *APIError) Unwrap() error { return e.Err }

// Options configures a Client. Zero values fall back to the defaults.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	// Headers are sent on every request; Content-Type is always JSON.
	Headers map[string]string
	Logger  *zap.Logger
}

// Client issues JSON requests against the dashboard backend.
//
// Calls are single attempt: no retry, no backoff. Every failure is an
// *APIError and is returned to the caller.
//
// The client is safe for concurrent use.
type Client struct {
	session *http.Client
	baseURL string
	headers map[string]string
	log     *zap.Logger

	Plans *PlansAPI
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	session := opts.HTTPClient
	if session == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		session = &http.Client{Timeout: timeout}
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	headers := make(map[string]string, len(opts.Headers))
	for k, v := range opts.Headers {
		headers[k] = v
	}

	c := &Client{
		session: session,
		baseURL: baseURL,
		headers: headers,
		log:     logger,
	}
	c.Plans = &PlansAPI{c: c}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// Request sends body (if non-nil) as JSON to endpoint and decodes the
// response into out (if non-nil).
func (c *Client) Request(ctx context.Context, method, endpoint string, body, out any) (err error) {
	defer obs.Time(ctx, "gateway."+method+" "+endpoint)(&err)

	req, err := c.newRequest(ctx, method, endpoint, body)
	if err != nil {
		return &APIError{Message: err.Error(), Err: err}
	}

	c.log.Debug("gateway request", zap.String("method", method), zap.String("url", req.URL.String()))

	resp, err := c.session.Do(req)
	if err != nil {
		return &APIError{Message: transportMessage(err), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Status: resp.StatusCode, Message: "read response body: " + err.Error(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode, raw)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("decode %s %s response: %v", method, endpoint, err),
			Err:     err,
		}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body any) (*http.Request, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, rdr)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

// errorBody is the error envelope the backend uses on non-2xx responses.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func statusError(code int, raw []byte) *APIError {
	fallback := fmt.Sprintf("HTTP error, status %d", code)

	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err != nil {
		return &APIError{Status: code, Message: fallback}
	}

	msg := strings.TrimSpace(eb.Error)
	if msg == "" {
		msg = strings.TrimSpace(eb.Message)
	}
	if msg == "" {
		msg = fallback
	}
	return &APIError{Status: code, Message: msg}
}

func transportMessage(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "request canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	}
	return "network error: " + err.Error()
}
