package archive

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"catalog-admin/internal/admin"
)

func pkgFor(t *testing.T, data, version string, at time.Time) admin.ArchivedPackage {
	t.Helper()
	sum, n, err := Checksum(strings.NewReader(data))
	if err != nil {
		t.Fatalf("Checksum() error = %v", err)
	}
	return admin.ArchivedPackage{
		Checksum:   sum,
		Version:    version,
		Name:       "app-" + version + ".apk",
		Size:       n,
		ArchivedAt: at,
	}
}

// exerciseArchive runs the behaviour every Archive implementation shares.
func exerciseArchive(t *testing.T, a admin.Archive) {
	t.Helper()
	base := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	if err := a.ValidateSetup(); err != nil {
		t.Fatalf("ValidateSetup() error = %v", err)
	}

	older := pkgFor(t, "build one", "1.0.0", base)
	newer := pkgFor(t, "build two", "1.1.0", base.Add(time.Hour))

	if err := a.Put(older, strings.NewReader("build one")); err != nil {
		t.Fatalf("Put(older) error = %v", err)
	}
	if err := a.Put(newer, strings.NewReader("build two")); err != nil {
		t.Fatalf("Put(newer) error = %v", err)
	}

	t.Run("get returns stored bytes", func(t *testing.T) {
		var buf bytes.Buffer
		if err := a.Get(older.Checksum, &buf); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if buf.String() != "build one" {
			t.Errorf("Get() = %q, want %q", buf.String(), "build one")
		}
	})

	t.Run("list is newest first", func(t *testing.T) {
		got, err := a.List()
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("List() returned %d entries, want 2", len(got))
		}
		if got[0].Version != "1.1.0" || got[1].Version != "1.0.0" {
			t.Errorf("List() order = %s, %s", got[0].Version, got[1].Version)
		}
		if got[1].Size != int64(len("build one")) || !got[1].ArchivedAt.Equal(base) {
			t.Errorf("List()[1] = %+v", got[1])
		}
	})

	t.Run("put is idempotent", func(t *testing.T) {
		again := older
		again.Version = "1.0.0-rebuilt"
		if err := a.Put(again, strings.NewReader("build one")); err != nil {
			t.Fatalf("Put() again error = %v", err)
		}
		got, err := a.List()
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(got) != 2 {
			t.Errorf("List() returned %d entries after re-put, want 2", len(got))
		}
	})

	t.Run("checksum mismatch rejected", func(t *testing.T) {
		bad := pkgFor(t, "expected", "2.0.0", base)
		bad.Size = 0
		if err := a.Put(bad, strings.NewReader("something else")); err == nil {
			t.Fatal("Put() expected error for checksum mismatch")
		}
		var buf bytes.Buffer
		if err := a.Get(bad.Checksum, &buf); err == nil {
			t.Error("Get() found content that failed verification")
		}
	})

	t.Run("size mismatch rejected", func(t *testing.T) {
		bad := pkgFor(t, "sized", "2.1.0", base)
		bad.Size = 99
		if err := a.Put(bad, strings.NewReader("sized")); err == nil {
			t.Fatal("Put() expected error for size mismatch")
		}
	})

	t.Run("invalid checksum rejected", func(t *testing.T) {
		bad := admin.ArchivedPackage{Checksum: "not-hex"}
		if err := a.Put(bad, strings.NewReader("x")); err == nil {
			t.Error("Put() expected error for invalid checksum")
		}
	})

	t.Run("get unknown package", func(t *testing.T) {
		missing := pkgFor(t, "never stored", "0.0.1", base)
		var buf bytes.Buffer
		if err := a.Get(missing.Checksum, &buf); err == nil {
			t.Error("Get() expected error for unknown package")
		}
	})
}

func TestChecksum(t *testing.T) {
	sum, n, err := Checksum(strings.NewReader("hello world"))
	if err != nil {
		t.Fatalf("Checksum() error = %v", err)
	}
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if sum != want {
		t.Errorf("Checksum() = %s, want %s", sum, want)
	}
	if n != 11 {
		t.Errorf("n = %d, want 11", n)
	}
	if !validChecksum(sum) {
		t.Error("validChecksum() = false for a real checksum")
	}
	if validChecksum("abc123") {
		t.Error("validChecksum() = true for a short string")
	}
}

func TestMemoryArchive(t *testing.T) {
	exerciseArchive(t, NewMemoryArchive())
}

var fixedTime = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
