// Package testutil provides shared test helpers.
package testutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"bloghub.com/internal/config"
	"bloghub.com/internal/infra"
)

// TestLogger creates a quiet logger that only outputs warnings and errors.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// TestDB opens a migrated sqlite database in a per-test temp directory.
func TestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := infra.NewDatabase(config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "bloghub-test.db"),
	})
	if err != nil {
		t.Fatalf("NewDatabase: %v", err)
	}
	if err := infra.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
