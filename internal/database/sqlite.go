package database

import (
	"database/sql"
	"errors"
	"fmt"

	"catalog-admin/internal/admin"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Operation statuses recorded by the console.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// SQLiteHistory implements admin.History using SQLite.
type SQLiteHistory struct {
	db    *sql.DB
	clock admin.Clock
	path  string
}

var _ admin.History = (*SQLiteHistory)(nil)

// NewSQLiteHistory wraps an open, migrated connection. A nil clock uses the
// real clock.
func NewSQLiteHistory(db *sql.DB, path string, clock admin.Clock) *SQLiteHistory {
	if clock == nil {
		clock = admin.RealClock{}
	}
	return &SQLiteHistory{db: db, clock: clock, path: path}
}

// OpenConnection opens and configures a SQLite database connection.
// path can be a file path or ":memory:" for an in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every pooled connection to ":memory:" is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

func (s *SQLiteHistory) StartOperation(operation, parameters string) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO operations (operation, parameters, status, started_at) VALUES (?, ?, ?, ?)`,
		operation, parameters, StatusRunning, s.clock.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("starting operation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("starting operation: %w", err)
	}
	return id, nil
}

func (s *SQLiteHistory) FinishOperation(id int64, status, message string) error {
	res, err := s.db.Exec(
		`UPDATE operations SET status = ?, message = ?, finished_at = ? WHERE id = ?`,
		status, message, s.clock.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finishing operation: no operation with id %d", id)
	}
	return nil
}

const operationColumns = `id, operation, parameters, status, message, started_at, finished_at`

func scanOperation(row interface{ Scan(...any) error }) (*admin.Operation, error) {
	var op admin.Operation
	if err := row.Scan(&op.ID, &op.Operation, &op.Parameters, &op.Status, &op.Message, &op.StartedAt, &op.FinishedAt); err != nil {
		return nil, err
	}
	return &op, nil
}

func (s *SQLiteHistory) RecentOperations(limit int) ([]*admin.Operation, error) {
	rows, err := s.db.Query(
		`SELECT `+operationColumns+` FROM operations ORDER BY started_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var ops []*admin.Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}

func (s *SQLiteHistory) FindOperation(id int64) (*admin.Operation, error) {
	op, err := scanOperation(s.db.QueryRow(`SELECT `+operationColumns+` FROM operations WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding operation: %w", err)
	}
	return op, nil
}

// Path returns the database file path, or ":memory:".
func (s *SQLiteHistory) Path() string {
	return s.path
}

func (s *SQLiteHistory) Close() error {
	return s.db.Close()
}
