package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
)

// SQLiteAdapter copies and verifies SQLite files by path. It
// satisfies the snapshot engine's database adapter so backups get a
// transactionally consistent copy instead of a raw file copy.
type SQLiteAdapter struct{}

// SnapshotTo copies src to dst with VACUUM INTO
func (SQLiteAdapter) SnapshotTo(ctx context.Context, src, dst string) error {
	db, err := sql.Open("sqlite", src)
	if err != nil {
		return fmt.Errorf("failed to open database %s: %w", src, err)
	}
	defer db.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}
	// VACUUM INTO refuses to overwrite, clear a stale partial copy
	if _, err := os.Stat(dst); err == nil {
		if err := os.Remove(dst); err != nil {
			return fmt.Errorf("failed to remove stale copy %s: %w", dst, err)
		}
	}

	if _, err := db.ExecContext(ctx, `VACUUM INTO ?`, dst); err != nil {
		return fmt.Errorf("failed to vacuum %s into %s: %w", src, dst, err)
	}
	return nil
}

// IntegrityCheck runs PRAGMA integrity_check against a database file
func (SQLiteAdapter) IntegrityCheck(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open database %s: %w", path, err)
	}
	defer db.Close()

	return integrityCheck(ctx, db)
}

func integrityCheck(ctx context.Context, db *sql.DB) error {
	var result string
	if err := db.QueryRowContext(ctx, `PRAGMA integrity_check`).Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed to run: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check reported: %s", result)
	}
	return nil
}
