package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/reservespace/backend/internal/domain"
	"github.com/reservespace/backend/internal/observability/metrics"
	"github.com/reservespace/backend/internal/reliability/retry"
)

// CompletionWorker periodically promotes CONFIRMED reservations whose end
// time has passed to COMPLETED, so read-time bucketing never has to guess.
type CompletionWorker struct {
	resRepo  domain.ReservationRepository
	logger   *slog.Logger
	interval time.Duration
	retryCfg *retry.Config
}

// NewCompletionWorker creates a new completion worker
func NewCompletionWorker(
	resRepo domain.ReservationRepository,
	logger *slog.Logger,
	interval time.Duration,
) *CompletionWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &CompletionWorker{
		resRepo:  resRepo,
		logger:   logger,
		interval: interval,
		retryCfg: retry.DefaultConfig(),
	}
}

// Start begins the sweep loop. It runs one sweep immediately so a restart
// catches up, then ticks until the context is cancelled.
func (w *CompletionWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("completion worker started", slog.Duration("interval", w.interval))
	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("completion worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *CompletionWorker) sweep(ctx context.Context) {
	promoted, err := retry.Do(ctx, w.retryCfg, w.logger, "completion sweep", func(context.Context) (int64, error) {
		return w.resRepo.MarkCompleted(time.Now())
	})
	if err != nil {
		metrics.ObserveSweep("error")
		w.logger.Error("completion sweep failed", slog.String("error", err.Error()))
		return
	}

	metrics.ObserveSweep("success")
	if promoted > 0 {
		metrics.AddCompleted(promoted)
		w.logger.Info("reservations completed", slog.Int64("count", promoted))
	}

	w.updateActiveGauge()
}

// updateActiveGauge refreshes the active reservation gauge from storage.
func (w *CompletionWorker) updateActiveGauge() {
	active, err := w.resRepo.List(domain.ReservationFilter{Status: domain.StatusConfirmed})
	if err != nil {
		w.logger.Warn("failed to count active reservations", slog.String("error", err.Error()))
		return
	}
	metrics.SetActiveReservations(len(active))
}
