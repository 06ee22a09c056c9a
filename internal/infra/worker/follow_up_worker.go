package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/xavierca1/lead-followup/internal/usecase"
)

type FollowUpRunner interface {
	Execute(ctx context.Context) (*usecase.FollowUpOutput, error)
}

// FollowUpWorker runs the follow-up scheduler on a fixed interval. Runs never
// overlap within one process; across processes the per-contact lock and the
// attempt index keep sends unique.
type FollowUpWorker struct {
	runner       FollowUpRunner
	tickInterval time.Duration
	logger       *slog.Logger
}

func NewFollowUpWorker(runner FollowUpRunner, interval time.Duration, logger *slog.Logger) *FollowUpWorker {
	return &FollowUpWorker{
		runner:       runner,
		tickInterval: interval,
		logger:       logger.With(slog.String("component", "follow_up_worker")),
	}
}

// Start blocks until ctx is cancelled. The first run happens immediately.
func (w *FollowUpWorker) Start(ctx context.Context) {
	w.logger.InfoContext(ctx, "follow-up worker started", slog.Duration("interval", w.tickInterval))

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.run(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("follow-up worker stopped")
			return
		case <-ticker.C:
			w.run(ctx)
		}
	}
}

func (w *FollowUpWorker) run(ctx context.Context) {
	out, err := w.runner.Execute(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "follow-up run failed", slog.String("error", err.Error()))
		return
	}

	counts := out.Counts()
	if len(out.Results) > 0 {
		w.logger.InfoContext(ctx, "follow-up run done",
			slog.String("cutoff", out.Cutoff),
			slog.Int("success", counts[usecase.ResultSuccess]),
			slog.Int("error", counts[usecase.ResultError]),
			slog.Int("skipped", counts[usecase.ResultSkipped]),
		)
	}
}
