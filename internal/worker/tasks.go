package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SessionStore deletes sessions past their expiry.
type SessionStore interface {
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// SessionSweep removes expired sign-in sessions.
type SessionSweep struct {
	Sessions SessionStore
	Logger   *slog.Logger
}

func (t SessionSweep) Name() string { return "session-sweep" }

func (t SessionSweep) Run(ctx context.Context) error {
	n, err := t.Sessions.DeleteExpiredSessions(ctx)
	if err != nil {
		return fmt.Errorf("delete expired sessions: %w", err)
	}
	if n > 0 {
		t.Logger.Info("Expired sessions deleted", "count", n)
	}
	return nil
}

// VideoStore fails videos whose processing never finished.
type VideoStore interface {
	FailStaleProcessingVideos(ctx context.Context, before time.Time) (int64, error)
}

// StaleProcessingRecovery marks videos failed when they have been in
// processing for longer than Threshold, which only happens when the server
// stopped mid-request. The user can process them again.
type StaleProcessingRecovery struct {
	Videos    VideoStore
	Threshold time.Duration
	Now       func() time.Time
	Logger    *slog.Logger
}

func (t StaleProcessingRecovery) Name() string { return "stale-processing-recovery" }

func (t StaleProcessingRecovery) Run(ctx context.Context) error {
	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	n, err := t.Videos.FailStaleProcessingVideos(ctx, now().Add(-t.Threshold))
	if err != nil {
		return fmt.Errorf("fail stale processing videos: %w", err)
	}
	if n > 0 {
		t.Logger.Warn("Recovered videos stuck in processing", "count", n, "threshold", t.Threshold)
	}
	return nil
}
