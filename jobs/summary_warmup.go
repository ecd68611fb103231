package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/tillpoint/tillpoint/internal/reports"
)

// SummaryWarmupJob refreshes the report caches so the morning dashboard
// reads never hit cold queries.
type SummaryWarmupJob struct {
	Reports *reports.Service
	Logger  *slog.Logger
	clock   func() time.Time
}

func NewSummaryWarmupJob(reportsSvc *reports.Service, logger *slog.Logger) *SummaryWarmupJob {
	return &SummaryWarmupJob{
		Reports: reportsSvc,
		Logger:  logger,
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

// Handle processes warmup tasks.
func (j *SummaryWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil {
		return errors.New("summary warmup: handler not configured")
	}
	var payload SummaryWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Days <= 0 {
		payload.Days = 30
	}

	logger := j.logger()
	now := j.now()
	from := now.AddDate(0, 0, -payload.Days)

	warmCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	// Fresh figures for the new day; yesterday's entries are stale.
	if err := j.Reports.Invalidate(warmCtx); err != nil {
		logger.Error("invalidate report cache", slog.Any("error", err))
		return err
	}
	if _, err := j.Reports.SalesSummary(warmCtx, from, now); err != nil {
		logger.Error("warm sales summary", slog.Any("error", err))
		return err
	}
	if _, err := j.Reports.TopProducts(warmCtx, from, now, 10); err != nil {
		logger.Error("warm top products", slog.Any("error", err))
		return err
	}

	logger.Info("completed summary warmup", slog.Int("days", payload.Days), slog.Duration("duration", time.Since(now)))
	return nil
}

func (j *SummaryWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskSummaryWarmup))
	}
	return slog.Default().With(slog.String("job", TaskSummaryWarmup))
}

func (j *SummaryWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
