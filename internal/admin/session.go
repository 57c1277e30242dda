package admin

import (
	"context"
	"time"
)

// Session is the authenticated operator's identity. It is created by a
// successful login and threaded explicitly into the API client.
type Session struct {
	Token     string    `json:"token"`
	Operator  Operator  `json:"operator"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the session is older than ttl at now.
// A non-positive ttl never expires.
func (s *Session) Expired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(s.CreatedAt) > ttl
}

// SessionStore persists the session between console invocations.
type SessionStore interface {
	// Save stores the session, replacing any previous one.
	Save(s *Session) error

	// Load returns the stored session, or nil if none is stored.
	Load() (*Session, error)

	// Clear removes the stored session. Clearing an empty store is not an error.
	Clear() error
}

// Confirmer is the yes/no gate shown to the operator before an irreversible action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to the Confirmer interface.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}
