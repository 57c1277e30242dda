package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"

	"catalog-admin/internal/admin"
	"catalog-admin/internal/config"
)

// FileStore keeps the session on disk, encrypted to a local age X25519
// identity so the bearer token never sits in plaintext. The identity is
// generated on first save.
type FileStore struct {
	path         string
	identityPath string
}

var _ admin.SessionStore = (*FileStore)(nil)

// NewFileStore creates a FileStore from configuration.
func NewFileStore(cfg config.SessionConfig) *FileStore {
	return &FileStore{path: cfg.Path, identityPath: cfg.IdentityPath}
}

func (s *FileStore) Save(sess *admin.Session) error {
	identity, err := s.loadOrCreateIdentity()
	if err != nil {
		return err
	}

	plain, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, identity.Recipient())
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := w.Write(plain); err != nil {
		return fmt.Errorf("encrypting session: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing encryption: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing session: %w", err)
	}
	return nil
}

func (s *FileStore) Load() (*admin.Session, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}

	identity, err := s.loadIdentity()
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, fmt.Errorf("session file %s exists but identity %s is missing", s.path, s.identityPath)
	}

	r, err := age.Decrypt(bytes.NewReader(data), identity)
	if err != nil {
		return nil, fmt.Errorf("decrypting session: %w", err)
	}
	plain, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted session: %w", err)
	}

	var sess admin.Session
	if err := json.Unmarshal(plain, &sess); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return &sess, nil
}

func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing session: %w", err)
	}
	return nil
}

func (s *FileStore) loadIdentity() (*age.X25519Identity, error) {
	data, err := os.ReadFile(s.identityPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading identity: %w", err)
	}
	identity, err := age.ParseX25519Identity(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("parsing identity: %w", err)
	}
	return identity, nil
}

func (s *FileStore) loadOrCreateIdentity() (*age.X25519Identity, error) {
	identity, err := s.loadIdentity()
	if err != nil || identity != nil {
		return identity, err
	}

	identity, err = age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating identity: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.identityPath), 0700); err != nil {
		return nil, fmt.Errorf("creating identity directory: %w", err)
	}
	if err := os.WriteFile(s.identityPath, []byte(identity.String()+"\n"), 0600); err != nil {
		return nil, fmt.Errorf("writing identity: %w", err)
	}
	return identity, nil
}
