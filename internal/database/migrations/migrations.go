package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed files/*.sql
var migrationFiles embed.FS

var (
	// ErrUnversioned means the history database has never been migrated.
	ErrUnversioned = errors.New("history database has no schema version")

	// ErrNewerSchema means the history database was written by a newer cadmin.
	ErrNewerSchema = errors.New("history database schema is newer than this cadmin")
)

// SchemaStatus describes where a history database stands against the
// embedded operations schema.
type SchemaStatus struct {
	Version uint // 0 when unversioned
	Latest  uint
	Dirty   bool
}

// Current reports whether the database is exactly at the latest schema.
func (s SchemaStatus) Current() bool {
	return !s.Dirty && s.Version == s.Latest
}

// Status reads the schema version recorded in db and the latest embedded one.
func Status(db *sql.DB) (SchemaStatus, error) {
	latest, err := latestVersion()
	if err != nil {
		return SchemaStatus{}, err
	}

	m, err := newMigrate(db)
	if err != nil {
		return SchemaStatus{}, err
	}
	// m is not closed: that would close db, which the caller owns.

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return SchemaStatus{Latest: latest}, nil
	}
	if err != nil {
		return SchemaStatus{}, fmt.Errorf("reading schema version: %w", err)
	}
	return SchemaStatus{Version: version, Latest: latest, Dirty: dirty}, nil
}

// Check returns nil when db is at the latest schema and an error naming the
// mismatch otherwise.
func Check(db *sql.DB) error {
	st, err := Status(db)
	if err != nil {
		return err
	}
	switch {
	case st.Dirty:
		return fmt.Errorf("history schema is dirty at version %d; a migration failed part way", st.Version)
	case st.Version == 0:
		return ErrUnversioned
	case st.Version > st.Latest:
		return fmt.Errorf("%w: version %d, latest known %d", ErrNewerSchema, st.Version, st.Latest)
	case st.Version < st.Latest:
		return fmt.Errorf("history schema at version %d, %d migration(s) behind", st.Version, st.Latest-st.Version)
	}
	return nil
}

// MigrateUp brings db to the latest operations schema. A database written by
// a newer cadmin is left untouched and reported as ErrNewerSchema.
func MigrateUp(db *sql.DB) error {
	st, err := Status(db)
	if err != nil {
		return err
	}
	if st.Version > st.Latest {
		return fmt.Errorf("%w: version %d, latest known %d", ErrNewerSchema, st.Version, st.Latest)
	}
	if st.Current() {
		return nil
	}

	m, err := newMigrate(db)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrating history schema: %w", err)
	}
	return nil
}

func newMigrate(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return nil, fmt.Errorf("opening embedded migrations: %w", err)
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("creating sqlite migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("creating migrator: %w", err)
	}
	return m, nil
}

// latestVersion walks the embedded migrations to the last one.
func latestVersion() (uint, error) {
	src, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return 0, fmt.Errorf("opening embedded migrations: %w", err)
	}
	defer src.Close()
	return lastVersion(src)
}

func lastVersion(src source.Driver) (uint, error) {
	v, err := src.First()
	if err != nil {
		return 0, fmt.Errorf("reading first migration: %w", err)
	}
	for {
		next, err := src.Next(v)
		if err != nil {
			return v, nil
		}
		v = next
	}
}
