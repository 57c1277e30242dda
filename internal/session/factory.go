package session

import (
	"fmt"
	"time"

	"catalog-admin/internal/admin"
	"catalog-admin/internal/config"
)

// DefaultTTL is how long a login stays valid locally.
const DefaultTTL = 24 * time.Hour

// NewStoreFromConfig creates a SessionStore based on the configuration type.
func NewStoreFromConfig(cfg config.SessionConfig) (admin.SessionStore, error) {
	switch cfg.Type {
	case "file", "":
		if cfg.Path == "" || cfg.IdentityPath == "" {
			return nil, fmt.Errorf("session type file requires path and identity_path")
		}
		return NewFileStore(cfg), nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown session type: %q", cfg.Type)
	}
}

// TTLFromConfig returns the configured session lifetime.
func TTLFromConfig(cfg config.SessionConfig) time.Duration {
	if cfg.TTLHours <= 0 {
		return DefaultTTL
	}
	return time.Duration(cfg.TTLHours) * time.Hour
}

// Current returns the stored session, or admin.ErrNotAuthenticated when there
// is none. An expired session is removed and treated as absent.
func Current(store admin.SessionStore, clock admin.Clock, ttl time.Duration) (*admin.Session, error) {
	sess, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if sess == nil || sess.Token == "" {
		return nil, admin.ErrNotAuthenticated
	}
	if sess.Expired(clock.Now(), ttl) {
		if err := store.Clear(); err != nil {
			return nil, fmt.Errorf("clearing expired session: %w", err)
		}
		return nil, fmt.Errorf("session expired: %w", admin.ErrNotAuthenticated)
	}
	return sess, nil
}
