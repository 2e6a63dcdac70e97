package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
)

type countingSyncer struct {
	calls chan struct{}
	err   error
}

func (s *countingSyncer) Sync(context.Context) error {
	s.calls <- struct{}{}
	return s.err
}

func TestAddJob_Validation(t *testing.T) {
	var nilService *Service
	if _, err := nilService.AddJob("job", "* * * * *", func() {}, JobOptions{}); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}

	svc, err := New()
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	defer svc.Stop()

	if _, err := svc.AddJob(" ", "* * * * *", func() {}, JobOptions{}); !errors.Is(err, ErrEmptyJobName) {
		t.Fatalf("expected ErrEmptyJobName, got %v", err)
	}
	if _, err := svc.AddJob("job", "", func() {}, JobOptions{}); !errors.Is(err, ErrEmptyCronExpr) {
		t.Fatalf("expected ErrEmptyCronExpr, got %v", err)
	}
	if _, err := svc.AddJob("job", "not a cron", func() {}, JobOptions{}); err == nil {
		t.Fatal("expected invalid cron expression to be rejected")
	}
}

func TestRegisterSettingsSyncJob_RunsOnStart(t *testing.T) {
	svc, err := New()
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	syncer := &countingSyncer{calls: make(chan struct{}, 1), err: errors.New("backend down")}
	job, err := RegisterSettingsSyncJob(svc, syncer, "0 0 1 1 *")
	if err != nil {
		t.Fatalf("register job: %v", err)
	}
	if job.Name() != SettingsSyncJobName {
		t.Fatalf("unexpected job name %q", job.Name())
	}

	svc.Start()
	select {
	case <-syncer.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("expected settings sync to run on start")
	}

	if err := svc.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := svc.Stop(); err != nil {
		t.Fatalf("second stop should be a no-op, got %v", err)
	}
}

func TestRegisterSettingsSyncJob_RequiresSyncer(t *testing.T) {
	svc, err := New()
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	defer svc.Stop()

	if _, err := RegisterSettingsSyncJob(svc, nil, "* * * * *"); !errors.Is(err, ErrNilSyncer) {
		t.Fatalf("expected ErrNilSyncer, got %v", err)
	}
}
