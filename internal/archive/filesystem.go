package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"catalog-admin/internal/admin"
)

// FileSystemArchive stores packages and their index entries under a root
// directory:
//
//	<root>/
//	  content/
//	    <checksum>       (package bytes, named by SHA-256)
//	  index/
//	    <checksum>.json  (version, name, size, archive time)
type FileSystemArchive struct {
	root       string
	contentDir string
	indexDir   string
}

var _ admin.Archive = (*FileSystemArchive)(nil)

// NewFileSystemArchive creates the directory layout under root.
func NewFileSystemArchive(root string) (*FileSystemArchive, error) {
	contentDir := filepath.Join(root, "content")
	indexDir := filepath.Join(root, "index")

	for _, dir := range []string{contentDir, indexDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
	}

	return &FileSystemArchive{root: root, contentDir: contentDir, indexDir: indexDir}, nil
}

// Put stores the package. Content already present is not rewritten, but the
// reader is still drained and verified.
func (a *FileSystemArchive) Put(pkg admin.ArchivedPackage, r io.Reader) error {
	if !validChecksum(pkg.Checksum) {
		return fmt.Errorf("invalid checksum %q", pkg.Checksum)
	}
	destPath := filepath.Join(a.contentDir, pkg.Checksum)

	vr := newVerifyingReader(r)
	if _, err := os.Stat(destPath); err == nil {
		if _, err := io.Copy(io.Discard, vr); err != nil {
			return fmt.Errorf("failed to read content: %w", err)
		}
		if err := vr.check(pkg); err != nil {
			return err
		}
	} else if err := writeAtomic(destPath, vr, vr.check, pkg); err != nil {
		return err
	}

	pkg.Size = vr.n
	data, err := encodeIndex(pkg)
	if err != nil {
		return err
	}
	indexPath := filepath.Join(a.indexDir, pkg.Checksum+".json")
	return writeAtomic(indexPath, bytes.NewReader(data), nil, pkg)
}

func (a *FileSystemArchive) Get(checksum string, w io.Writer) error {
	if !validChecksum(checksum) {
		return fmt.Errorf("invalid checksum %q", checksum)
	}
	f, err := os.Open(filepath.Join(a.contentDir, checksum))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("package not found: %s", checksum)
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	return nil
}

func (a *FileSystemArchive) List() ([]admin.ArchivedPackage, error) {
	entries, err := os.ReadDir(a.indexDir)
	if err != nil {
		return nil, fmt.Errorf("reading archive index: %w", err)
	}

	var out []admin.ArchivedPackage
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(a.indexDir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading index entry %s: %w", e.Name(), err)
		}
		pkg, err := decodeIndex(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		out = append(out, pkg)
	}
	newestFirst(out)
	return out, nil
}

// ValidateSetup verifies that the archive directories are accessible.
func (a *FileSystemArchive) ValidateSetup() error {
	for _, dir := range []string{a.root, a.contentDir, a.indexDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("archive directory not accessible: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("archive path is not a directory: %s", dir)
		}
	}
	return nil
}

// writeAtomic writes r to destPath through a temp file and rename. verify, if
// set, runs after the copy and before the rename.
func writeAtomic(destPath string, r io.Reader, verify func(admin.ArchivedPackage) error, pkg admin.ArchivedPackage) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmpFile, r); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if verify != nil {
		if err := verify(pkg); err != nil {
			return err
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}
