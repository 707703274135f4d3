// Package apiclient talks to the mailsync REST API: it attaches the bearer
// token, decodes the response envelope and keeps the access token fresh.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/simp-lee/mailsync/internal/domain"
)

const (
	// DefaultTimeout bounds every request when no timeout is configured.
	DefaultTimeout = 30 * time.Second

	requestIDHeader = "X-Request-ID"
	maxResponseBody = 64 << 20
)

// Client is safe for concurrent use.
type Client struct {
	base      *url.URL
	http      *http.Client
	tokens    TokenStore
	logger    *slog.Logger
	userAgent string

	// gate is held for writing while the access token is refreshed. Requests
	// take it for reading only while they read the token, so a request that
	// is already on the wire is never retried with the new one.
	gate sync.RWMutex
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The client is copied,
// so hc itself is never modified; its Timeout is kept unless WithTimeout is
// also given.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			cp := *hc
			c.http = &cp
		}
	}
}

// WithTimeout sets the per-request timeout. Zero or negative keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithTokenStore sets where the session is read from and written to.
func WithTokenStore(s TokenStore) Option {
	return func(c *Client) {
		if s != nil {
			c.tokens = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New creates a client for the API rooted at baseURL, e.g.
// "http://localhost:8080/api/v1".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be an absolute http(s) URL", baseURL)
	}

	c := &Client{
		base:      u,
		http:      &http.Client{Timeout: DefaultTimeout},
		tokens:    &MemoryStore{},
		logger:    slog.Default(),
		userAgent: "mailsync-sdk",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Tokens returns the session store.
func (c *Client) Tokens() TokenStore {
	return c.tokens
}

// Request describes one API call.
type Request struct {
	Method string
	// Path segments below the base URL; each is escaped.
	Path  []string
	Query url.Values
	// Body is encoded as JSON unless Raw is set.
	Body any
	// Raw is sent verbatim with ContentType.
	Raw         io.Reader
	ContentType string
	// Anonymous requests carry no bearer token and do not wait for a refresh.
	Anonymous bool
}

// Do sends r and decodes the envelope payload into out, which may be nil. It
// returns the envelope message. An envelope with status=false becomes an
// *APIError regardless of the HTTP status code.
func (c *Client) Do(ctx context.Context, r Request, out any) (string, error) {
	resp, requestID, err := c.send(ctx, r)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	return decodeEnvelope(resp, requestID, out)
}

func (c *Client) send(ctx context.Context, r Request) (*http.Response, string, error) {
	if r.Method == "" {
		r.Method = http.MethodGet
	}

	var body io.Reader
	contentType := r.ContentType
	switch {
	case r.Raw != nil:
		body = r.Raw
	case r.Body != nil:
		data, err := json.Marshal(r.Body)
		if err != nil {
			return nil, "", fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	segments := make([]string, len(r.Path))
	for i, seg := range r.Path {
		segments[i] = url.PathEscape(seg)
	}
	endpoint := c.base.JoinPath(segments...)
	if len(r.Query) > 0 {
		endpoint.RawQuery = r.Query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, endpoint.String(), body)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	requestID := uuid.NewString()
	req.Header.Set(requestIDHeader, requestID)

	if !r.Anonymous {
		token, err := c.token()
		if err != nil {
			return nil, "", err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.DebugContext(ctx, "api request failed",
			slog.String("method", r.Method),
			slog.String("path", endpoint.Path),
			slog.String("request_id", requestID),
			slog.Duration("elapsed", elapsed),
			slog.String("error", err.Error()),
		)
		return nil, requestID, fmt.Errorf("%s %s: %w", r.Method, endpoint.Path, err)
	}
	c.logger.DebugContext(ctx, "api request",
		slog.String("method", r.Method),
		slog.String("path", endpoint.Path),
		slog.Int("status", resp.StatusCode),
		slog.String("request_id", requestID),
		slog.Duration("elapsed", elapsed),
	)
	return resp, requestID, nil
}

// token reads the access token, waiting for a refresh in progress.
func (c *Client) token() (string, error) {
	c.gate.RLock()
	defer c.gate.RUnlock()
	sess, err := c.tokens.Load()
	if errors.Is(err, ErrNoSession) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	return sess.Token, nil
}

func decodeEnvelope(resp *http.Response, requestID string, out any) (string, error) {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var env domain.APIResponse[json.RawMessage]
	if err := json.Unmarshal(data, &env); err != nil {
		return "", &UnexpectedResponseError{
			StatusCode:  resp.StatusCode,
			ContentType: resp.Header.Get("Content-Type"),
			Err:         err,
		}
	}
	if !env.Status {
		return env.Message, &APIError{
			StatusCode: resp.StatusCode,
			Message:    env.Message,
			Payload:    payloadText(env.Payload),
			RequestID:  requestID,
		}
	}
	if out != nil && len(env.Payload) > 0 && string(env.Payload) != "null" {
		if err := json.Unmarshal(env.Payload, out); err != nil {
			return env.Message, fmt.Errorf("decode payload: %w", err)
		}
	}
	return env.Message, nil
}

// payloadText renders an error payload. Servers send a string, but anything
// else is shown as raw JSON rather than dropped.
func payloadText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// Attachment is a downloaded file.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Download fetches a file endpoint. Failures still arrive as envelopes.
func (c *Client) Download(ctx context.Context, path ...string) (*Attachment, error) {
	resp, requestID, err := c.send(ctx, Request{Method: http.MethodGet, Path: path})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "application/json" || resp.StatusCode >= http.StatusBadRequest {
		_, err := decodeEnvelope(resp, requestID, nil)
		if err == nil {
			err = &UnexpectedResponseError{StatusCode: resp.StatusCode, ContentType: mediaType, Err: errors.New("expected a file")}
		}
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read download: %w", err)
	}
	att := &Attachment{ContentType: resp.Header.Get("Content-Type"), Data: data}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		att.Filename = params["filename"]
	}
	return att, nil
}
