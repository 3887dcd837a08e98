// Package gemini implements a minimal client for the Gemini generateContent
// REST endpoint plus the wire types shared with the live streaming session.
//
// Requests and responses are marshalled with hand-written structs mirroring
// the v1beta JSON schema. Only the surface the screening client needs is
// covered: multipart contents (text + inline binary), a system instruction,
// the googleSearch grounding tool, and grounding metadata extraction.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultModel is the generative model used for one-shot analysis.
	DefaultModel = "gemini-3-pro-preview"

	// DefaultBaseURL is the REST endpoint prefix.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	defaultTimeout = 120 * time.Second
)

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithModel sets the model used for GenerateContent calls.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithBaseURL overrides the REST endpoint prefix. Primarily used in tests
// to point at a local mock server.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client issues generateContent requests authenticated by API key.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

// New creates a Client with the given API key and options.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		model:   DefaultModel,
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Model returns the model name the client is configured for.
func (c *Client) Model() string { return c.model }

// GenerateContent issues one generateContent call and decodes the response.
// HTTP 429 and RESOURCE_EXHAUSTED replies are returned as a [*QuotaError];
// other non-2xx replies become a [*StatusError].
func (c *Client) GenerateContent(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("gemini: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gemini: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini: generateContent: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gemini: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, data)
	}

	var out GenerateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("gemini: decode response: %w", err)
	}
	return &out, nil
}

// statusError maps a non-2xx reply to the error taxonomy.
func statusError(code int, body []byte) error {
	var envelope struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &envelope) // best-effort; plain-text bodies fall through

	msg := envelope.Error.Message
	if msg == "" {
		msg = http.StatusText(code)
	}

	if code == http.StatusTooManyRequests || envelope.Error.Status == "RESOURCE_EXHAUSTED" {
		return &QuotaError{Message: msg}
	}
	return &StatusError{Code: code, Status: envelope.Error.Status, Message: msg}
}

// StatusError is a non-quota HTTP failure from the inference service.
type StatusError struct {
	Code    int
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gemini: http %d %s: %s", e.Code, e.Status, e.Message)
}

// QuotaError indicates the service rate-limited the request. Callers record
// a cooldown timestamp and suppress retries for a fixed window instead of
// logging noisily.
type QuotaError struct {
	Message string
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("gemini: quota exceeded: %s", e.Message)
}

// IsQuota reports whether err is (or wraps) a QuotaError.
func IsQuota(err error) bool {
	var qe *QuotaError
	return errors.As(err, &qe)
}
