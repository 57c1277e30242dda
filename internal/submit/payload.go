package submit

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strconv"
	"strings"

	"catalog-admin/internal/asset"
	"catalog-admin/internal/ledger"
)

// DefaultFileField is the repeated multipart field staged images are sent under.
const DefaultFileField = "images"

// Control fields understood by the backing API.
const (
	FieldPrimaryIndex = "primaryImageIndex"
	FieldPrimaryID    = "primaryImageId"
	FieldKeepExisting = "keepExistingImages"
)

// Options controls how a draft and snapshot become one request body.
type Options struct {
	// Update marks a submission for an entity that already exists.
	Update bool
	// KeepExisting asks the backing API to keep persisted assets on update.
	KeepExisting bool
	// KeepField sends KeepExisting as keepExistingImages on update.
	KeepField bool
	// FileField names the repeated file field. Empty means DefaultFileField.
	FileField string
}

type formPart struct {
	name  string
	value string
	file  *asset.Candidate
}

// Payload is a multipart request body ready to send. Files are read when the
// payload is written, so a payload can be written more than once.
type Payload struct {
	ContentType string
	Files       int

	boundary string
	parts    []formPart
}

// Build reconciles the draft and the ledger snapshot into a single multipart
// payload: every set draft field, every staged file in order, and the flags
// that tell the backing API which asset is primary and whether persisted
// assets are kept.
func Build(draft *Draft, snap ledger.Snapshot, opts Options) (*Payload, error) {
	field := opts.FileField
	if field == "" {
		field = DefaultFileField
	}

	boundary := multipart.NewWriter(io.Discard).Boundary()
	p := &Payload{
		ContentType: "multipart/form-data; boundary=" + boundary,
		boundary:    boundary,
	}

	if draft != nil {
		for _, f := range draft.Fields() {
			p.parts = append(p.parts, formPart{name: f.Name, value: FormatValue(f.Value)})
		}
	}

	if i, ok := snap.PrimaryStagedIndex(); ok {
		if i < 0 || i >= len(snap.Staged) {
			return nil, fmt.Errorf("primary staged index %d out of range [0,%d)", i, len(snap.Staged))
		}
		p.parts = append(p.parts, formPart{name: FieldPrimaryIndex, value: strconv.Itoa(i)})
	}
	if id, ok := snap.PrimaryPersistedID(); ok {
		p.parts = append(p.parts, formPart{name: FieldPrimaryID, value: id})
	}
	if opts.Update && opts.KeepField {
		p.parts = append(p.parts, formPart{name: FieldKeepExisting, value: strconv.FormatBool(opts.KeepExisting)})
	}

	for i := range snap.Staged {
		c := snap.Staged[i].File
		if c.Open == nil {
			return nil, fmt.Errorf("staged file %s has no content", snap.Staged[i].Name)
		}
		if c.Name == "" {
			c.Name = snap.Staged[i].Name
		}
		p.parts = append(p.parts, formPart{name: field, file: &c})
		p.Files++
	}

	return p, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// WriteTo writes the encoded body to w.
func (p *Payload) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	mw := multipart.NewWriter(cw)
	if err := mw.SetBoundary(p.boundary); err != nil {
		return cw.n, fmt.Errorf("setting boundary: %w", err)
	}

	for _, part := range p.parts {
		if part.file == nil {
			if err := mw.WriteField(part.name, part.value); err != nil {
				return cw.n, fmt.Errorf("writing field %s: %w", part.name, err)
			}
			continue
		}
		if err := writeFile(mw, part.name, *part.file); err != nil {
			return cw.n, err
		}
	}

	if err := mw.Close(); err != nil {
		return cw.n, fmt.Errorf("closing multipart body: %w", err)
	}
	return cw.n, nil
}

// Reader streams the encoded body. The caller must close it.
func (p *Payload) Reader() io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		_, err := p.WriteTo(pw)
		pw.CloseWithError(err)
	}()
	return pr
}

func writeFile(mw *multipart.Writer, field string, c asset.Candidate) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(c.Name)))
	contentType := c.MIMEType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	dst, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("creating part for %s: %w", c.Name, err)
	}

	src, err := c.Open()
	if err != nil {
		return fmt.Errorf("opening %s: %w", c.Name, err)
	}
	defer src.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copying %s: %w", c.Name, err)
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
