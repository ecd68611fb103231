package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/tillpoint/tillpoint/internal/inventory"
	"github.com/tillpoint/tillpoint/internal/observability"
)

// LowStockScanJob counts products at or under their minimum stock level and
// publishes the figure as a gauge.
type LowStockScanJob struct {
	Inventory *inventory.Service
	Metrics   *observability.Metrics
	Logger    *slog.Logger
}

func NewLowStockScanJob(inventorySvc *inventory.Service, metrics *observability.Metrics, logger *slog.Logger) *LowStockScanJob {
	return &LowStockScanJob{Inventory: inventorySvc, Metrics: metrics, Logger: logger}
}

// Handle processes low stock scan tasks.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Inventory == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	logger := j.logger()
	started := time.Now()

	scanCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	levels, err := j.Inventory.Levels(scanCtx, inventory.LevelFilter{})
	if err != nil {
		logger.Error("scan stock levels", slog.Any("error", err))
		return err
	}

	flagged := 0
	for _, level := range levels {
		if level.Status == inventory.StatusLowStock || level.Status == inventory.StatusOutOfStock {
			flagged++
			logger.Warn("stock below minimum",
				slog.Int64("product_id", level.ProductID),
				slog.String("product", level.Name),
				slog.Int("on_hand", level.Qty),
				slog.Int("min_level", level.MinStockLevel),
			)
		}
	}
	if j.Metrics != nil {
		j.Metrics.SetLowStockCount(flagged)
	}

	logger.Info("completed low stock scan",
		slog.Int("checked", len(levels)),
		slog.Int("flagged", flagged),
		slog.Duration("duration", time.Since(started)),
	)
	return nil
}

func (j *LowStockScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLowStockScan))
	}
	return slog.Default().With(slog.String("job", TaskLowStockScan))
}
