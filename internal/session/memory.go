package session

import (
	"sync"

	"catalog-admin/internal/admin"
)

// MemoryStore keeps the session in process memory. Use in tests.
type MemoryStore struct {
	mu      sync.Mutex
	session *admin.Session
}

var _ admin.SessionStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(sess *admin.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.session = &cp
	return nil
}

func (s *MemoryStore) Load() (*admin.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, nil
	}
	cp := *s.session
	return &cp, nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	return nil
}
