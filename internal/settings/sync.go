// internal/settings/sync.go
package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Pawfield/internal/backend"
)

// SettingsSource is the public settings API.
type SettingsSource interface {
	PublicSettings(ctx context.Context) (backend.PublicSettings, error)
}

// Syncer copies the backend's platform cancellation window into the Store.
type Syncer struct {
	store  *Store
	source SettingsSource
}

func NewSyncer(store *Store, source SettingsSource) *Syncer {
	return &Syncer{store: store, source: source}
}

// Sync fetches public settings and stores the platform window. On any error
// the stored window is left unchanged.
func (s *Syncer) Sync(ctx context.Context) error {
	logger := log.Ctx(ctx)

	public, err := s.source.PublicSettings(ctx)
	if err != nil {
		if errors.Is(err, backend.ErrNotConfigured) {
			logger.Debug().Msg("Settings sync skipped: backend not configured")
			return nil
		}
		return fmt.Errorf("fetch public settings: %w", err)
	}
	if public.CancellationWindowHours == nil {
		logger.Warn().Msg("Public settings carry no cancellation window")
		return nil
	}

	hours := *public.CancellationWindowHours
	if err := ValidateHours(hours); err != nil {
		return fmt.Errorf("backend cancellation window %v: %w", hours, err)
	}

	current, err := s.store.Window(ctx, PlatformFieldID)
	if err == nil && current.FieldID == PlatformFieldID && current.WindowHours == hours && current.Source == SourceBackend {
		return nil
	}
	if err != nil && !errors.Is(err, ErrWindowUnavailable) {
		return err
	}

	if _, err := s.store.SetWindow(ctx, PlatformFieldID, hours, SourceBackend); err != nil {
		return err
	}
	logger.Info().Float64("window_hours", hours).Msg("Platform cancellation window synced")
	return nil
}
