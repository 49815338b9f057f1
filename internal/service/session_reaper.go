package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/cargolinq/freight-auth-service/internal/observability"
	"github.com/cargolinq/freight-auth-service/internal/repository"
)

const (
	defaultSessionRetention = 7 * 24 * time.Hour
	defaultReaperInterval   = time.Hour
)

// SessionReaper periodically deletes session rows whose last login is older
// than the retention window. It is fire-and-forget maintenance: sweep errors
// are logged, never propagated.
type SessionReaper struct {
	sessions  repository.SessionRepository
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
}

func NewSessionReaper(sessions repository.SessionRepository, retention, interval time.Duration, logger *slog.Logger) *SessionReaper {
	if retention <= 0 {
		retention = defaultSessionRetention
	}
	if interval <= 0 {
		interval = defaultReaperInterval
	}
	return &SessionReaper{sessions: sessions, retention: retention, interval: interval, logger: logger}
}

// RunOnce executes a single sweep. A sweep with no matches deletes zero rows
// and succeeds, so repeated runs are safe.
func (r *SessionReaper) RunOnce(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-r.retention)
	deleted, err := r.sessions.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		observability.RecordReaperSweep(ctx, deleted, "error")
		return deleted, err
	}
	observability.RecordReaperSweep(ctx, deleted, "success")
	return deleted, nil
}

// Run sweeps on the configured cadence until the context is cancelled.
func (r *SessionReaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := r.RunOnce(ctx)
			if err != nil {
				r.logger.Error("session sweep failed", "error", err)
				continue
			}
			if deleted > 0 {
				r.logger.Info("session sweep completed", "deleted", deleted)
			}
		}
	}
}
