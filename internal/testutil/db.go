// internal/testutil/db.go

// Package testutil provides database fixtures for package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/codr1/Pawfield/internal/db"
)

// NewTestDB opens a migrated SQLite file under t.TempDir and closes it on
// cleanup.
func NewTestDB(t testing.TB) *db.DB {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "pawfield_test.db"))
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}

// SeedWindows stores cancellation windows keyed by field ID. Field 0 is the
// platform default.
func SeedWindows(t testing.TB, database *db.DB, source string, windows map[int64]float64) {
	t.Helper()

	now := time.Now().UTC()
	for fieldID, hours := range windows {
		_, err := database.Queries.UpsertCancellationWindow(context.Background(), db.UpsertCancellationWindowParams{
			FieldID:     fieldID,
			WindowHours: hours,
			Source:      source,
			UpdatedAt:   now,
		})
		if err != nil {
			t.Fatalf("seed window for field %d: %v", fieldID, err)
		}
	}
}
