package archive

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"catalog-admin/internal/admin"
)

// MemoryArchive is an in-memory implementation of the Archive interface,
// useful for testing. It is safe for concurrent use.
type MemoryArchive struct {
	mu      sync.RWMutex
	content map[string][]byte
	index   map[string]admin.ArchivedPackage
}

var _ admin.Archive = (*MemoryArchive)(nil)

func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{
		content: make(map[string][]byte),
		index:   make(map[string]admin.ArchivedPackage),
	}
}

// Put stores the package. Storing the same checksum twice replaces the index entry.
func (m *MemoryArchive) Put(pkg admin.ArchivedPackage, r io.Reader) error {
	if !validChecksum(pkg.Checksum) {
		return fmt.Errorf("invalid checksum %q", pkg.Checksum)
	}
	vr := newVerifyingReader(r)
	data, err := io.ReadAll(vr)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}
	if err := vr.check(pkg); err != nil {
		return err
	}
	pkg.Size = int64(len(data))

	m.mu.Lock()
	defer m.mu.Unlock()
	m.content[pkg.Checksum] = data
	m.index[pkg.Checksum] = pkg
	return nil
}

func (m *MemoryArchive) Get(checksum string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.content[checksum]
	if !ok {
		return fmt.Errorf("package not found: %s", checksum)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write content: %w", err)
	}
	return nil
}

func (m *MemoryArchive) List() ([]admin.ArchivedPackage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]admin.ArchivedPackage, 0, len(m.index))
	for _, pkg := range m.index {
		out = append(out, pkg)
	}
	newestFirst(out)
	return out, nil
}

// ValidateSetup always succeeds for the in-memory archive.
func (m *MemoryArchive) ValidateSetup() error {
	return nil
}
