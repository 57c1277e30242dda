package asset

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"sync"
)

// PreviewGenerator turns an accepted file into a locally renderable URI.
type PreviewGenerator interface {
	Generate(ctx context.Context, c Candidate) (string, error)
}

// DataURIGenerator encodes the whole file as a base64 data URI.
type DataURIGenerator struct{}

var _ PreviewGenerator = DataURIGenerator{}

// Generate reads c and returns "data:<mime>;base64,<content>".
func (DataURIGenerator) Generate(ctx context.Context, c Candidate) (string, error) {
	if c.Open == nil {
		return "", fmt.Errorf("%s: no content", c.Name)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r, err := c.Open()
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", c.Name, err)
	}
	defer r.Close()

	var buf bytes.Buffer
	buf.WriteString("data:")
	buf.WriteString(c.MIMEType)
	buf.WriteString(";base64,")

	enc := base64.NewEncoder(base64.StdEncoding, &buf)
	if _, err := io.Copy(enc, &ctxReader{ctx: ctx, r: r}); err != nil {
		return "", fmt.Errorf("reading %s: %w", c.Name, err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encoding %s: %w", c.Name, err)
	}
	return buf.String(), nil
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// PreviewTask is a lazy, one-shot preview result. Work starts on the first
// Await; every Await shares that result. Retry returns a fresh task.
type PreviewTask struct {
	gen       PreviewGenerator
	candidate Candidate

	once sync.Once
	done chan struct{}
	uri  string
	err  error
}

// NewPreviewTask creates a task that has not started yet.
func NewPreviewTask(gen PreviewGenerator, c Candidate) *PreviewTask {
	return &PreviewTask{gen: gen, candidate: c, done: make(chan struct{})}
}

// Candidate returns the file the task previews.
func (t *PreviewTask) Candidate() Candidate { return t.candidate }

// Start begins generation in the background if it has not started yet.
func (t *PreviewTask) Start(ctx context.Context) {
	t.once.Do(func() {
		go func() {
			t.uri, t.err = t.gen.Generate(ctx, t.candidate)
			close(t.done)
		}()
	})
}

// Await starts the task if needed and waits for its result or for ctx.
func (t *PreviewTask) Await(ctx context.Context) (string, error) {
	t.Start(ctx)
	select {
	case <-t.done:
		return t.uri, t.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Retry returns a new, unstarted task for the same file.
func (t *PreviewTask) Retry() *PreviewTask {
	return NewPreviewTask(t.gen, t.candidate)
}
