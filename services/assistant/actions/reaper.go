package actions

import (
	"context"
	"errors"
	"time"

	"github.com/kaytu-io/news-assistant/services/assistant/coordinator"
	"github.com/kaytu-io/news-assistant/services/assistant/repository"
	"go.uber.org/zap"
)

type RunCanceller interface {
	RetrieveRun(ctx context.Context, threadID, runID string) (coordinator.Run, error)
	CancelRun(ctx context.Context, threadID, runID string) (coordinator.Run, error)
}

// Reaper cancels runs left active by callers that stopped waiting for them.
// staleAfter must exceed the coordinator's maximum wait, otherwise runs still
// being awaited are cancelled.
type Reaper struct {
	logger     *zap.Logger
	remote     RunCanceller
	runs       repository.Run
	interval   time.Duration
	staleAfter time.Duration
}

func NewReaper(logger *zap.Logger, remote RunCanceller, runs repository.Run, interval, staleAfter time.Duration) *Reaper {
	return &Reaper{
		logger:     logger.Named("reaper"),
		remote:     remote,
		runs:       runs,
		interval:   interval,
		staleAfter: staleAfter,
	}
}

// Run reaps every interval until ctx is done.
func (r *Reaper) Run(ctx context.Context) {
	if r.interval <= 0 {
		r.logger.Info("reaper disabled")
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if _, err := r.Reap(ctx); err != nil && ctx.Err() == nil {
			r.logger.Warn("failed to reap runs", zap.Error(err))
		}
	}
}

// Reap makes one pass over the stale runs and returns how many were cancelled.
func (r *Reaper) Reap(ctx context.Context) (int, error) {
	runs, err := r.runs.ListStale(ctx, time.Now().Add(-r.staleAfter))
	if err != nil {
		r.logger.Error("failed to list stale runs", zap.Error(err))
		return 0, err
	}

	cancelled := 0
	for _, stale := range runs {
		if ctx.Err() != nil {
			return cancelled, ctx.Err()
		}

		logger := r.logger.With(zap.String("run_id", stale.ID), zap.String("thread_id", stale.ThreadID))

		run, err := r.remote.RetrieveRun(ctx, stale.ThreadID, stale.ID)
		if errors.Is(err, coordinator.ErrNotFound) {
			logger.Info("stale run is gone on the remote side")
			r.update(ctx, logger, stale.ID, stale.ThreadID, coordinator.StatusExpired, "run not found")
			continue
		}
		if err != nil {
			logger.Warn("failed to refresh stale run", zap.Error(err))
			continue
		}

		if run.Status.Active() && run.Status != coordinator.StatusCancelling {
			logger.Info("cancelling stale run", zap.String("status", run.Status.String()), zap.Time("updated_at", stale.UpdatedAt))
			run, err = r.remote.CancelRun(ctx, stale.ThreadID, stale.ID)
			if err != nil {
				logger.Warn("failed to cancel stale run", zap.Error(err))
				continue
			}
			cancelled++
		}
		r.update(ctx, logger, stale.ID, stale.ThreadID, run.Status, run.LastError)
	}

	return cancelled, nil
}

func (r *Reaper) update(ctx context.Context, logger *zap.Logger, id, threadID string, status coordinator.Status, lastError string) {
	if err := r.runs.UpdateStatus(ctx, id, threadID, status, lastError); err != nil {
		logger.Warn("failed to update run status", zap.Error(err), zap.String("status", status.String()))
	}
}
