package testutil

import (
	"bytes"
	"context"
	"io"
	"mime"
	"mime/multipart"
	"sync"

	"catalog-admin/internal/admin"
	"catalog-admin/internal/submit"
)

// FakeCatalog is an in-memory banner and product source.
type FakeCatalog struct {
	mu            sync.Mutex
	Banners       map[string]*admin.Banner
	Products      map[string]*admin.Product
	Err           error
	DeletedImages []string

	// Gate, when set, blocks fetches until it is closed.
	Gate chan struct{}
}

// NewFakeCatalog creates an empty catalog.
func NewFakeCatalog() *FakeCatalog {
	return &FakeCatalog{
		Banners:  make(map[string]*admin.Banner),
		Products: make(map[string]*admin.Product),
	}
}

func (f *FakeCatalog) wait(ctx context.Context) error {
	if f.Gate == nil {
		return nil
	}
	select {
	case <-f.Gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *FakeCatalog) Banner(ctx context.Context, id string) (*admin.Banner, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	b, ok := f.Banners[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	cp.Images = append([]admin.PersistedAsset(nil), b.Images...)
	return &cp, nil
}

func (f *FakeCatalog) DeleteBannerImage(_ context.Context, bannerID, imageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.DeletedImages = append(f.DeletedImages, bannerID+"/"+imageID)
	if b, ok := f.Banners[bannerID]; ok {
		for i, img := range b.Images {
			if img.ID == imageID {
				b.Images = append(b.Images[:i:i], b.Images[i+1:]...)
				break
			}
		}
	}
	return nil
}

func (f *FakeCatalog) Product(ctx context.Context, id string) (*admin.Product, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	p, ok := f.Products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// FormPart is one decoded multipart part.
type FormPart struct {
	Name     string
	FileName string
	MIMEType string
	Value    string
}

// RecordedRequest is a request captured by RecordingTransport.
type RecordedRequest struct {
	submit.Request
	Parts []FormPart
}

// Field returns the values sent for a form field, file names for file parts.
func (r RecordedRequest) Field(name string) []string {
	var out []string
	for _, p := range r.Parts {
		if p.Name != name {
			continue
		}
		if p.FileName != "" {
			out = append(out, p.FileName)
		} else {
			out = append(out, p.Value)
		}
	}
	return out
}

// RecordingTransport captures submissions and answers with a fixed response.
type RecordingTransport struct {
	mu       sync.Mutex
	Response *admin.Envelope
	Err      error
	Requests []RecordedRequest

	// Gate, when set, blocks each request until it is closed or ctx ends.
	Gate chan struct{}
	// Entered receives a value when a request starts. Optional.
	Entered chan struct{}
}

func (t *RecordingTransport) Do(ctx context.Context, req *submit.Request) (*admin.Envelope, error) {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
	}
	rec := RecordedRequest{Request: *req}
	rec.Body = nil
	rec.Parts = decodeParts(req.ContentType, body)

	t.mu.Lock()
	t.Requests = append(t.Requests, rec)
	gate, entered := t.Gate, t.Entered
	t.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, &admin.TransportError{Err: ctx.Err()}
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return nil, t.Err
	}
	if t.Response != nil {
		return t.Response, nil
	}
	return &admin.Envelope{Success: true}, nil
}

// Last returns the most recent request.
func (t *RecordingTransport) Last() (RecordedRequest, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.Requests) == 0 {
		return RecordedRequest{}, false
	}
	return t.Requests[len(t.Requests)-1], true
}

// Count returns the number of requests seen.
func (t *RecordingTransport) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Requests)
}

func decodeParts(contentType string, body []byte) []FormPart {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "multipart/form-data" {
		return nil
	}
	var parts []FormPart
	r := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	for {
		p, err := r.NextPart()
		if err != nil {
			return parts
		}
		data, _ := io.ReadAll(p)
		parts = append(parts, FormPart{
			Name:     p.FormName(),
			FileName: p.FileName(),
			MIMEType: p.Header.Get("Content-Type"),
			Value:    string(data),
		})
	}
}
