package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// SessionPurger removes sessions whose refresh tokens can no longer be valid.
type SessionPurger interface {
	DeleteRefreshedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// JanitorConfig controls when and what the janitor purges.
type JanitorConfig struct {
	Schedule string
	MaxAge   time.Duration
	Timeout  time.Duration
}

// SessionJanitor periodically deletes sessions idle for longer than the refresh token lifetime.
type SessionJanitor struct {
	sessions SessionPurger
	monitor  ConnectionHealth
	logger   *zap.Logger
	cron     *cron.Cron
	cfg      JanitorConfig
	now      func() time.Time
}

// JanitorOption configures a SessionJanitor.
type JanitorOption func(*SessionJanitor)

// WithJanitorClock replaces time.Now.
func WithJanitorClock(now func() time.Time) JanitorOption {
	return func(j *SessionJanitor) { j.now = now }
}

func NewSessionJanitor(
	sessions SessionPurger,
	monitor ConnectionHealth,
	logger *zap.Logger,
	cfg JanitorConfig,
	opts ...JanitorOption,
) (*SessionJanitor, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = "@daily"
	}
	if cfg.MaxAge <= 0 {
		return nil, fmt.Errorf("janitor max age must be positive")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	j := &SessionJanitor{
		sessions: sessions,
		monitor:  monitor,
		logger:   logger,
		cfg:      cfg,
		cron:     cron.New(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}

	if _, err := j.cron.AddFunc(cfg.Schedule, j.run); err != nil {
		return nil, fmt.Errorf("parse janitor schedule %q: %w", cfg.Schedule, err)
	}
	return j, nil
}

// Start launches the cron scheduler.
func (j *SessionJanitor) Start() {
	if j == nil || j.cron == nil {
		return
	}
	j.cron.Start()
	j.logger.Info("session janitor started", zap.String("schedule", j.cfg.Schedule))
}

// Stop waits for a running purge to finish or ctx to expire.
func (j *SessionJanitor) Stop(ctx context.Context) error {
	if j == nil || j.cron == nil {
		return nil
	}
	stopCtx := j.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	j.logger.Info("session janitor stopped")
	return nil
}

// Purge deletes every session last refreshed before now minus MaxAge. It is a no-op while the
// database is offline.
func (j *SessionJanitor) Purge(ctx context.Context) (int64, error) {
	if j.monitor != nil && !j.monitor.IsOnline() {
		j.logger.Debug("skipping session purge (offline)")
		return 0, nil
	}

	cutoff := j.now().Add(-j.cfg.MaxAge)
	purged, err := j.sessions.DeleteRefreshedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	if purged > 0 {
		j.logger.Info("stale sessions purged", zap.Int64("count", purged), zap.Time("cutoff", cutoff))
	}
	return purged, nil
}

func (j *SessionJanitor) run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.cfg.Timeout)
	defer cancel()
	if _, err := j.Purge(ctx); err != nil {
		j.logger.Error("session purge failed", zap.Error(err))
	}
}
