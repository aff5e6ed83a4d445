package llm

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
	"time"
)

// DefaultEndpoint is the generateContent URL used when none is configured.
const DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-pro:generateContent"

// maxErrorBody caps how much of a failed response is read looking for a message.
const maxErrorBody = 64 << 10

// Config holds the client's connection settings.
type Config struct {
	// Endpoint is the full generateContent URL, without the key.
	Endpoint string
	// APIKey is sent as the "key" query parameter.
	APIKey string
	// Timeout bounds a single call. Zero means no timeout.
	Timeout time.Duration
}

// APIError is returned when the endpoint answers with a non-2xx status.
//
// Message holds the API's own error.message when the body carried one, and
// is empty otherwise. Callers use that to decide whether the message is
// fit to show to a user verbatim.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("llm: endpoint returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("llm: endpoint returned status %d: %s", e.StatusCode, e.Message)
}

// Client sends generateContent requests.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	logger   *slog.Logger
}

// NewClient creates a Client for cfg.
// The endpoint is parsed up front so a typo fails at startup, not on first use.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("llm: parsing endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("llm: endpoint must be http or https, got %q", endpoint)
	}

	return &Client{
		endpoint: endpoint,
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
	}, nil
}

// HasKey reports whether an API key was configured.
func (c *Client) HasKey() bool {
	return c.apiKey != ""
}

// GenerateContent sends req and returns the decoded reply.
//
// ERROR CASES:
//   - transport failure (DNS, refused, reset) → wrapped net error
//   - non-2xx status → *APIError, Message set if the body had one
//   - 2xx with a body that doesn't decode → empty response, no error
//
// The last case is deliberate: an unreadable success body is treated the
// same as a reply with no text.
func (c *Client) GenerateContent(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("llm: encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.requestURL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llm: building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		// url.Error includes the full URL — and with it the key. Strip it.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, fmt.Errorf("llm: sending request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("generateContent returned",
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeAPIError(resp)
	}

	var out GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.logger.Warn("undecodable generateContent body", slog.String("error", err.Error()))
		return &GenerateResponse{}, nil
	}
	return &out, nil
}

func (c *Client) requestURL() string {
	u, _ := url.Parse(c.endpoint) // validated in NewClient
	q := u.Query()
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()
	return u.String()
}

func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return apiErr
	}
	var body errorBody
	if json.Unmarshal(raw, &body) == nil {
		apiErr.Message = body.Error.Message
	}
	return apiErr
}
