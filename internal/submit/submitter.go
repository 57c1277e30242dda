package submit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"time"

	"catalog-admin/internal/admin"
)

// DefaultTimeout bounds a single submission.
const DefaultTimeout = 120 * time.Second

// Request is one call to the backing API.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	ContentType string
	Body        io.Reader
}

// Transport performs requests against the backing API and decodes the
// response envelope. Non-2xx responses are returned as errors.
type Transport interface {
	Do(ctx context.Context, req *Request) (*admin.Envelope, error)
}

// Submitter sends reconciled payloads. Every submission is a single request
// bounded by the timeout; it is never retried.
type Submitter struct {
	transport Transport
	timeout   time.Duration
	logger    admin.Logger
}

// NewSubmitter creates a Submitter. A non-positive timeout uses DefaultTimeout.
func NewSubmitter(transport Transport, timeout time.Duration, logger admin.Logger) *Submitter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = admin.NewNopLogger()
	}
	return &Submitter{transport: transport, timeout: timeout, logger: logger}
}

// Timeout returns the submission bound.
func (s *Submitter) Timeout() time.Duration { return s.timeout }

var errSubmitDeadline = errors.New("submission deadline exceeded")

// Submit sends p to path. A submission that outlives the timeout fails with
// admin.ErrUploadTimedOut; a success:false envelope fails with
// *admin.RemoteRejection. Cancelling ctx returns ctx's error.
func (s *Submitter) Submit(ctx context.Context, method, path string, query url.Values, p *Payload) (*admin.Envelope, error) {
	tctx, cancel := context.WithTimeoutCause(ctx, s.timeout, errSubmitDeadline)
	defer cancel()

	body := p.Reader()
	defer body.Close()

	start := time.Now()
	s.logger.Info("submitting", "method", method, "path", path, "files", p.Files)

	env, err := s.transport.Do(tctx, &Request{
		Method:      method,
		Path:        path,
		Query:       query,
		ContentType: p.ContentType,
		Body:        body,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if isTimeout(tctx, err) {
			s.logger.Warn("submission timed out", "path", path, "after", time.Since(start))
			return nil, fmt.Errorf("%s %s: %w", method, path, admin.ErrUploadTimedOut)
		}
		s.logger.Warn("submission failed", "path", path, "error", err)
		return nil, err
	}

	if !env.Success {
		s.logger.Warn("submission rejected", "path", path, "message", env.Message)
		return env, &admin.RemoteRejection{Message: env.Message}
	}

	s.logger.Info("submitted", "path", path, "elapsed", time.Since(start))
	return env, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(context.Cause(ctx), errSubmitDeadline) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
