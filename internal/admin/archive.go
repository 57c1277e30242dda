package admin

import (
	"io"
	"time"
)

// ArchivedPackage describes one app package build kept in the archive.
type ArchivedPackage struct {
	Checksum   string
	Version    string
	Name       string
	Size       int64
	ArchivedAt time.Time
}

// Archive keeps copies of uploaded app packages, addressed by SHA-256.
type Archive interface {
	// Put stores the package content. Storing the same checksum twice is safe.
	Put(pkg ArchivedPackage, r io.Reader) error

	// Get writes the package content with the given checksum to w.
	Get(checksum string, w io.Writer) error

	// List returns archived packages, newest first.
	List() ([]ArchivedPackage, error)

	// ValidateSetup verifies the archive backend is reachable.
	ValidateSetup() error
}
