package database

import (
	"fmt"
	"os"
	"path/filepath"

	"catalog-admin/internal/admin"
	"catalog-admin/internal/config"
	"catalog-admin/internal/database/migrations"
)

// NewHistoryFromConfig creates a History implementation based on the database
// config type. The schema is migrated to the latest version before returning.
func NewHistoryFromConfig(cfg config.DatabaseConfig, operatorID string, clock admin.Clock) (admin.History, error) {
	var path string
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		path = filepath.Join(cfg.DataDir, operatorID+".db")
	case "memory":
		path = ":memory:"
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}

	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %s: %w", path, err)
	}
	if err := migrations.Check(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("checking %s: %w", path, err)
	}
	return NewSQLiteHistory(db, path, clock), nil
}
