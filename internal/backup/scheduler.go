package backup

// scheduler.go runs automatic backups.
//
// The scheduler wakes every check interval, re-reads the settings (so edits
// from the back office apply without a restart) and takes an "auto" backup
// once the next slot after the previous automatic backup has passed. A
// failed backup is logged and retried on the next tick.

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultCheckInterval is how often the scheduler checks for a due backup.
const DefaultCheckInterval = time.Minute

// Scheduler takes automatic backups for a Manager.
type Scheduler struct {
	m *Manager

	mu      sync.Mutex
	lastRun time.Time
	lastErr error
}

// SchedulerStatus is a point-in-time view of the scheduler.
type SchedulerStatus struct {
	Enabled   bool      `json:"enabled"`
	Frequency string    `json:"frequency"`
	LastRun   time.Time `json:"last_run"`
	NextRun   time.Time `json:"next_run,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

// NewScheduler seeds the last run from the newest automatic backup on disk,
// or from now when there is none.
func NewScheduler(m *Manager) *Scheduler {
	s := &Scheduler{m: m, lastRun: m.now()}
	if backups, err := m.List(); err == nil {
		for _, b := range backups {
			if b.Metadata != nil && b.Metadata.BackupType == KindAutomatic {
				s.lastRun = b.Created
				break
			}
		}
	}
	return s
}

// Run checks immediately, then every checkInterval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, checkInterval time.Duration) {
	if checkInterval <= 0 {
		checkInterval = DefaultCheckInterval
	}
	settings := s.m.Settings()
	slog.Info("backup scheduler started",
		"enabled", settings.AutoBackupEnabled,
		"frequency", settings.Frequency,
		"time", settings.Time,
	)

	s.tick(ctx)

	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("backup scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick takes a backup if one is due and reports whether it tried.
func (s *Scheduler) tick(ctx context.Context) bool {
	settings := s.m.Settings()
	if !settings.AutoBackupEnabled {
		return false
	}

	s.mu.Lock()
	due := settings.NextRun(s.lastRun)
	s.mu.Unlock()

	now := s.m.now()
	if now.Before(due) {
		return false
	}

	start := time.Now()
	info, err := s.m.Create(ctx, KindAutomatic)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
	if err != nil {
		slog.Error("automatic backup failed", "error", err)
		return true
	}
	s.lastRun = now
	slog.Info("automatic backup completed",
		"file", info.FileName,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return true
}

// Status reports the last and next run.
func (s *Scheduler) Status() SchedulerStatus {
	settings := s.m.Settings()

	s.mu.Lock()
	defer s.mu.Unlock()

	st := SchedulerStatus{
		Enabled:   settings.AutoBackupEnabled,
		Frequency: settings.Frequency,
		LastRun:   s.lastRun,
	}
	if settings.AutoBackupEnabled {
		st.NextRun = settings.NextRun(s.lastRun)
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}
