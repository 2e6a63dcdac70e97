// internal/scheduler/settings_sync.go
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

const (
	SettingsSyncJobName = "settings_sync"
	settingsSyncTimeout = 30 * time.Second
)

var ErrNilSyncer = errors.New("settings sync job requires a syncer")

// SettingsSyncer pulls platform settings from the backend.
type SettingsSyncer interface {
	Sync(ctx context.Context) error
}

// RegisterSettingsSyncJob keeps the stored platform cancellation window in
// step with the backend. The first run happens as soon as the scheduler
// starts.
func RegisterSettingsSyncJob(svc *Service, syncer SettingsSyncer, cronExpr string) (gocron.Job, error) {
	if syncer == nil {
		return nil, ErrNilSyncer
	}

	jobLogger := log.With().
		Str("component", "settings_sync_job").
		Str("job_name", SettingsSyncJobName).
		Logger()

	return svc.AddJob(SettingsSyncJobName, cronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), settingsSyncTimeout)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		if err := syncer.Sync(ctx); err != nil {
			jobLogger.Warn().Err(err).Msg("Settings sync failed, keeping stored window")
		}
	}, JobOptions{RunImmediately: true})
}
