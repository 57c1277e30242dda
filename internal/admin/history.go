package admin

import (
	"database/sql"
	"time"
)

// Operation is one recorded console command that mutated the backing store.
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string
	Message    string
	StartedAt  time.Time
	FinishedAt sql.NullTime
}

// History records mutating console operations.
type History interface {
	// StartOperation records the start of an operation and returns its ID.
	StartOperation(operation, parameters string) (int64, error)

	// FinishOperation records the outcome of an operation.
	FinishOperation(id int64, status, message string) error

	// RecentOperations returns up to limit operations, newest first.
	RecentOperations(limit int) ([]*Operation, error)

	// FindOperation returns the operation with id, or nil if none exists.
	FindOperation(id int64) (*Operation, error)

	// Close closes the underlying store.
	Close() error
}
