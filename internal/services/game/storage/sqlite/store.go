// Package sqlite implements game persistence over SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/louisbranch/storydeck/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/storydeck/internal/services/game/storage"
	"github.com/louisbranch/storydeck/internal/services/game/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis restores millisecond precision and keeps UTC normalization.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

// Store implements game persistence over SQLite.
type Store struct {
	sqlDB *sql.DB
}

var (
	_ storage.Store       = (*Store)(nil)
	_ storage.OutboxStore = (*Store)(nil)
)

// Open opens a game SQLite store, creating the parent directory, and
// applies bundled migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", dataSourceName(cleanPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := sqlitemigrate.ApplyMigrations(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// dataSourceName applies the connection pragmas on every pooled connection.
// Transactions begin IMMEDIATE so a writer takes the lock up front and waits
// out busy_timeout instead of failing when a read lock cannot be upgraded.
func dataSourceName(path string) string {
	params := url.Values{}
	for _, pragma := range []string{
		"busy_timeout(5000)",
		"journal_mode(WAL)",
		"foreign_keys(1)",
		"synchronous(NORMAL)",
	} {
		params.Add("_pragma", pragma)
	}
	params.Set("_txlock", "immediate")
	return path + "?" + params.Encode()
}

// Close releases the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

func encodeStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeStrings(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}
	return values, nil
}

// isBusy reports whether err is SQLite lock contention that outlasted
// busy_timeout.
func isBusy(err error) bool {
	var coded interface{ Code() int }
	if !errors.As(err, &coded) {
		return false
	}
	switch coded.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}

// contention turns lock contention into a revision conflict so the gateway
// reloads and retries.
func contention(err error) error {
	if isBusy(err) {
		return fmt.Errorf("%w: %v", storage.ErrRevisionConflict, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
