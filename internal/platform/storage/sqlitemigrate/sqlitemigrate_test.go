package sqlitemigrate

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func countRows(t *testing.T, db *sql.DB, query string) int {
	t.Helper()
	var n int
	if err := db.QueryRow(query).Scan(&n); err != nil {
		t.Fatalf("query %q: %v", query, err)
	}
	return n
}

func TestApplyMigrationsRecordsOnce(t *testing.T) {
	db := openDB(t)
	migrations := fstest.MapFS{
		"migrations/001_items.sql": &fstest.MapFile{Data: []byte("-- +migrate Up\nCREATE TABLE items(id TEXT PRIMARY KEY);\n-- +migrate Down\nDROP TABLE items;")},
		"migrations/002_more.sql":  &fstest.MapFile{Data: []byte("CREATE TABLE more(id TEXT PRIMARY KEY);")},
		"migrations/README.md":     &fstest.MapFile{Data: []byte("ignored")},
	}

	for i := 0; i < 2; i++ {
		if err := ApplyMigrations(context.Background(), db, migrations, "migrations"); err != nil {
			t.Fatalf("apply migrations pass %d: %v", i, err)
		}
	}
	if got := countRows(t, db, "SELECT COUNT(*) FROM schema_migrations"); got != 2 {
		t.Fatalf("expected 2 recorded migrations, got %d", got)
	}
	if got := countRows(t, db, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('items', 'more')"); got != 2 {
		t.Fatalf("expected both tables, got %d", got)
	}
}

func TestApplyMigrationsDoesNotRecordFailure(t *testing.T) {
	db := openDB(t)
	bad := fstest.MapFS{"001_bad.sql": &fstest.MapFile{Data: []byte("CREAT TABLE nope(id INT);")}}
	if err := ApplyMigrations(context.Background(), db, bad, ""); err == nil {
		t.Fatal("expected bad migration to fail")
	}
	if got := countRows(t, db, "SELECT COUNT(*) FROM schema_migrations"); got != 0 {
		t.Fatalf("expected failed migration to stay unrecorded, got %d", got)
	}
}

func TestExtractUpMigration(t *testing.T) {
	got := ExtractUpMigration("-- header\n-- +migrate Up\nSELECT 1;\n-- +migrate Down\nSELECT 2;")
	if got != "\nSELECT 1;\n" {
		t.Fatalf("unexpected up section %q", got)
	}
	if got := ExtractUpMigration("SELECT 3;"); got != "SELECT 3;" {
		t.Fatalf("expected whole content, got %q", got)
	}
}

func TestIsAlreadyExistsError(t *testing.T) {
	if !IsAlreadyExistsError(errors.New("table items already exists")) {
		t.Fatal("expected already exists match")
	}
	if IsAlreadyExistsError(nil) || IsAlreadyExistsError(errors.New("syntax error")) {
		t.Fatal("expected no match")
	}
}
