package testsupport

import (
	"context"
	"testing"

	"affect/internal/config"
	"affect/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	db, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

// NewSession registers a session for tests using the provided store.
func NewSession(t testing.TB, db *store.Store, sessionID, userID string, videoID, originTs int64) *store.SessionRecord {
	t.Helper()

	record, err := db.CreateSession(context.Background(), sessionID, userID, videoID, originTs)
	if err != nil {
		t.Fatalf("store.CreateSession: %v", err)
	}
	return record
}
