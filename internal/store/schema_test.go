package store

import (
	"errors"
	"testing"

	"affect/internal/config"
	"path/filepath"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.ModelDir = filepath.Join(base, "models")
	return &cfg
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	cfg := testConfig(t)

	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := db.db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump schema version: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := Open(cfg); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("reopen = %v, expected ErrSchemaMismatch", err)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	cfg := testConfig(t)

	first, err := Open(cfg)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := Open(cfg)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer second.Close()

	if second.Path() != first.Path() {
		t.Fatal("reopen should resolve the same database file")
	}
}
