package asset

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Candidate describes a file the operator selected. Name, MIMEType and Size are
// declared up front so validation never has to read the content.
type Candidate struct {
	Name     string
	MIMEType string
	Size     int64

	// Open returns a fresh reader over the content. It may be called more than once.
	Open func() (io.ReadCloser, error)
}

// FromPath builds a Candidate for a file on disk. The MIME type comes from the
// extension, falling back to content sniffing.
func FromPath(path string) (Candidate, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Candidate{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Candidate{}, fmt.Errorf("%s is a directory", path)
	}

	mimeType, err := detectMIME(path)
	if err != nil {
		return Candidate{}, err
	}

	return Candidate{
		Name:     filepath.Base(path),
		MIMEType: mimeType,
		Size:     info.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// FromBytes builds an in-memory Candidate.
func FromBytes(name, mimeType string, content []byte) Candidate {
	return Candidate{
		Name:     name,
		MIMEType: mimeType,
		Size:     int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(content)), nil
		},
	}
}

// packageExt is not in most system MIME tables.
const packageExt = ".apk"

func detectMIME(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == packageExt {
		return PackageMIMEType, nil
	}
	if t := mime.TypeByExtension(ext); t != "" {
		// Drop parameters such as "; charset=utf-8".
		if mt, _, err := mime.ParseMediaType(t); err == nil {
			return mt, nil
		}
		return t, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(head[:n]))
	return mt, nil
}
