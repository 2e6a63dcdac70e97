// internal/settings/store.go

// Package settings owns the cancellation window that refund eligibility is
// evaluated against. There is no built-in default: an unset window is an error.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/codr1/Pawfield/internal/db"
)

// PlatformFieldID addresses the platform-wide window.
const PlatformFieldID int64 = 0

const (
	SourceAdmin   = "admin"
	SourceBackend = "backend"
	SourceConfig  = "config"
)

var (
	ErrWindowUnavailable = errors.New("cancellation window is not configured")
	ErrInvalidWindow     = errors.New("cancellation window must be a non-negative number of hours")
	ErrInvalidFieldID    = errors.New("field id must not be negative")
)

// Store reads and writes cancellation windows.
type Store struct {
	db  *db.DB
	now func() time.Time
}

func NewStore(database *db.DB) *Store {
	return &Store{db: database, now: time.Now}
}

// WindowHours returns the window for a field, falling back to the platform
// window. It returns ErrWindowUnavailable when neither is set.
func (s *Store) WindowHours(ctx context.Context, fieldID int64) (float64, error) {
	w, err := s.Window(ctx, fieldID)
	if err != nil {
		return 0, err
	}
	return w.WindowHours, nil
}

// Window is WindowHours with the row's provenance.
func (s *Store) Window(ctx context.Context, fieldID int64) (db.CancellationWindow, error) {
	if fieldID < 0 {
		return db.CancellationWindow{}, ErrInvalidFieldID
	}
	w, err := s.db.Queries.GetApplicableCancellationWindow(ctx, fieldID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return db.CancellationWindow{}, ErrWindowUnavailable
		}
		return db.CancellationWindow{}, fmt.Errorf("load cancellation window: %w", err)
	}
	return w, nil
}

// SetWindow stores the window for a field, or the platform when fieldID is 0.
func (s *Store) SetWindow(ctx context.Context, fieldID int64, hours float64, source string) (db.CancellationWindow, error) {
	if fieldID < 0 {
		return db.CancellationWindow{}, ErrInvalidFieldID
	}
	if err := ValidateHours(hours); err != nil {
		return db.CancellationWindow{}, err
	}
	source = strings.TrimSpace(source)
	if source == "" {
		source = SourceAdmin
	}
	w, err := s.db.Queries.UpsertCancellationWindow(ctx, db.UpsertCancellationWindowParams{
		FieldID:     fieldID,
		WindowHours: hours,
		Source:      source,
		UpdatedAt:   s.now().UTC(),
	})
	if err != nil {
		return db.CancellationWindow{}, fmt.Errorf("store cancellation window: %w", err)
	}
	return w, nil
}

// ClearWindow removes a field override. The platform window cannot be cleared.
func (s *Store) ClearWindow(ctx context.Context, fieldID int64) error {
	if fieldID <= 0 {
		return ErrInvalidFieldID
	}
	if _, err := s.db.Queries.DeleteCancellationWindow(ctx, fieldID); err != nil {
		return fmt.Errorf("delete cancellation window: %w", err)
	}
	return nil
}

// List returns every stored window, platform first.
func (s *Store) List(ctx context.Context) ([]db.CancellationWindow, error) {
	windows, err := s.db.Queries.ListCancellationWindows(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cancellation windows: %w", err)
	}
	return windows, nil
}

// SeedPlatformWindow stores hours as the platform window only if none exists.
// The check and the insert share one transaction.
func (s *Store) SeedPlatformWindow(ctx context.Context, hours float64) (bool, error) {
	var seeded bool
	err := s.db.RunInTx(ctx, func(tx *db.DB) error {
		_, err := tx.Queries.GetCancellationWindow(ctx, PlatformFieldID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("load platform window: %w", err)
		}
		txStore := &Store{db: tx, now: s.now}
		if _, err := txStore.SetWindow(ctx, PlatformFieldID, hours, SourceConfig); err != nil {
			return err
		}
		seeded = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return seeded, nil
}

func ValidateHours(hours float64) error {
	if math.IsNaN(hours) || math.IsInf(hours, 0) || hours < 0 {
		return ErrInvalidWindow
	}
	return nil
}
