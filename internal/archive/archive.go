// Package archive keeps copies of uploaded app packages, addressed by their
// SHA-256 checksum, so earlier builds can be recovered after the backing API
// replaces the published one.
package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
	"io"
	"sort"

	"catalog-admin/internal/admin"
)

// Checksum returns the hex SHA-256 of r and the number of bytes read.
func Checksum(r io.Reader) (string, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, fmt.Errorf("hashing content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// verifyingReader hashes and counts what passes through it.
type verifyingReader struct {
	r    io.Reader
	hash hash.Hash
	n    int64
}

func newVerifyingReader(r io.Reader) *verifyingReader {
	return &verifyingReader{r: r, hash: sha256.New()}
}

func (v *verifyingReader) Read(p []byte) (int, error) {
	n, err := v.r.Read(p)
	if n > 0 {
		v.hash.Write(p[:n])
		v.n += int64(n)
	}
	return n, err
}

// check compares what was read with the declared package.
func (v *verifyingReader) check(pkg admin.ArchivedPackage) error {
	if pkg.Size > 0 && v.n != pkg.Size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", pkg.Size, v.n)
	}
	if got := hex.EncodeToString(v.hash.Sum(nil)); got != pkg.Checksum {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", pkg.Checksum, got)
	}
	return nil
}

func validChecksum(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

func encodeIndex(pkg admin.ArchivedPackage) ([]byte, error) {
	data, err := json.Marshal(pkg)
	if err != nil {
		return nil, fmt.Errorf("encoding index entry: %w", err)
	}
	return data, nil
}

func decodeIndex(data []byte) (admin.ArchivedPackage, error) {
	var pkg admin.ArchivedPackage
	if err := json.Unmarshal(data, &pkg); err != nil {
		return pkg, fmt.Errorf("decoding index entry: %w", err)
	}
	return pkg, nil
}

func newestFirst(pkgs []admin.ArchivedPackage) {
	sort.SliceStable(pkgs, func(i, j int) bool {
		return pkgs[i].ArchivedAt.After(pkgs[j].ArchivedAt)
	})
}
