package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/workspace-service/internal/repository"
)

// CleanupWorker periodically deletes expired sessions and reset tokens so the
// tables stay bounded. Revocation correctness never depends on it running:
// expired rows are already invisible to reads.
type CleanupWorker struct {
	sessions repository.SessionRepository
	resets   repository.PasswordResetRepository
	interval time.Duration
	logger   *zap.Logger
}

// NewCleanupWorker constructs the worker.
func NewCleanupWorker(sessions repository.SessionRepository, resets repository.PasswordResetRepository, interval time.Duration, logger *zap.Logger) *CleanupWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &CleanupWorker{sessions: sessions, resets: resets, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled, sweeping on every tick.
func (w *CleanupWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *CleanupWorker) sweep(ctx context.Context) {
	now := time.Now().UTC()

	if w.sessions != nil {
		removed, err := w.sessions.DeleteExpired(ctx, now)
		if err != nil {
			w.logger.Warn("session cleanup failed", zap.Error(err))
		} else if removed > 0 {
			w.logger.Info("expired sessions removed", zap.Int64("count", removed))
		}
	}

	if w.resets != nil {
		removed, err := w.resets.DeleteExpired(ctx, now)
		if err != nil {
			w.logger.Warn("reset token cleanup failed", zap.Error(err))
		} else if removed > 0 {
			w.logger.Info("expired reset tokens removed", zap.Int64("count", removed))
		}
	}
}
