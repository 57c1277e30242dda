// Package api is the client for the catalog backend's REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"catalog-admin/internal/admin"
	"catalog-admin/internal/submit"
)

const (
	// DefaultBaseURL is where a locally running backend listens.
	DefaultBaseURL = "http://localhost:5000/api"

	// DefaultTimeout bounds plain (non-upload) requests.
	DefaultTimeout = 30 * time.Second

	maxResponseBytes = 16 << 20
)

// Client calls the backing API on behalf of one operator session. It also
// serves as the transport for multipart submissions.
type Client struct {
	baseURL       string
	http          *http.Client
	timeout       time.Duration
	uploadTimeout time.Duration
	session       *admin.Session
	clock         admin.Clock
	logger        admin.Logger
	submitter     *submit.Submitter
}

var _ submit.Transport = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithSession authenticates requests with the session's bearer token.
func WithSession(s *admin.Session) Option {
	return func(c *Client) { c.session = s }
}

// WithTimeout bounds plain requests.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithUploadTimeout bounds multipart submissions.
func WithUploadTimeout(d time.Duration) Option {
	return func(c *Client) { c.uploadTimeout = d }
}

// WithLogger sets the client's logger.
func WithLogger(logger admin.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithClock sets the clock used to stamp new sessions.
func WithClock(clock admin.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		http:          &http.Client{},
		timeout:       DefaultTimeout,
		uploadTimeout: submit.DefaultTimeout,
		clock:         admin.RealClock{},
		logger:        admin.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.submitter = submit.NewSubmitter(c, c.uploadTimeout, c.logger)
	return c
}

// WithSession returns a copy of the client that authenticates with s.
func (c *Client) WithSession(s *admin.Session) *Client {
	cp := *c
	cp.session = s
	cp.submitter = submit.NewSubmitter(&cp, cp.uploadTimeout, cp.logger)
	return &cp
}

// Submitter returns the submitter that sends multipart payloads through this client.
func (c *Client) Submitter() *submit.Submitter { return c.submitter }

// Session returns the session the client authenticates with, if any.
func (c *Client) Session() *admin.Session { return c.session }

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Do sends one request and decodes the response envelope. A 4xx response is
// a *admin.RemoteRejection; a 5xx response or a network failure is a
// *admin.TransportError. A 2xx envelope is returned as-is, success or not.
func (c *Client) Do(ctx context.Context, r *submit.Request) (*admin.Envelope, error) {
	req, err := http.NewRequestWithContext(ctx, r.Method, c.endpoint(r.Path, r.Query), r.Body)
	if err != nil {
		return nil, fmt.Errorf("building request %s %s: %w", r.Method, r.Path, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.ContentType != "" {
		req.Header.Set("Content-Type", r.ContentType)
	}
	if c.session != nil && c.session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", r.Method, "path", r.Path, "error", err)
		return nil, &admin.TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &admin.TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}
	c.logger.Debug("request done", "method", r.Method, "path", r.Path, "status", resp.StatusCode, "elapsed", time.Since(start))

	env := &admin.Envelope{Raw: body}
	decodeErr := json.Unmarshal(body, env)

	switch {
	case resp.StatusCode >= 500:
		msg := env.Message
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &admin.TransportError{StatusCode: resp.StatusCode, Err: errors.New(msg)}
	case resp.StatusCode >= 400:
		msg := env.Message
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &admin.RemoteRejection{StatusCode: resp.StatusCode, Message: msg}
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("decoding %s %s response: %w", r.Method, r.Path, decodeErr)
	}
	return env, nil
}

// call sends a JSON request bounded by the plain timeout and turns a
// success:false envelope into a rejection.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, in any) (*admin.Envelope, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	r := &submit.Request{Method: method, Path: path, Query: query}
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encoding %s request: %w", path, err)
		}
		r.Body = bytes.NewReader(data)
		r.ContentType = "application/json"
	}

	env, err := c.Do(ctx, r)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return env, &admin.RemoteRejection{Message: env.Message}
	}
	return env, nil
}

// get decodes the data field of a GET response into out. A 404 reports
// found=false with no error.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) (found bool, err error) {
	env, err := c.call(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		var rejection *admin.RemoteRejection
		if errors.As(err, &rejection) && rejection.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}
	if out != nil {
		if err := decodeData(env, out); err != nil {
			return false, err
		}
	}
	return true, nil
}

func decodeData(env *admin.Envelope, out any) error {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decoding response data: %w", err)
	}
	return nil
}

func pageQuery(page, limit int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", fmt.Sprint(page))
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	return q
}

func seg(s string) string { return url.PathEscape(s) }
