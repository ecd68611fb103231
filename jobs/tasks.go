package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLowStockScan counts products at or under their minimum level.
	TaskLowStockScan = "inventory:low_stock_scan"
	// TaskSummaryWarmup pre-populates the report caches.
	TaskSummaryWarmup = "reports:summary_warmup"
)

// LowStockScanPayload configures a stock scan run.
type LowStockScanPayload struct {
	// Notify reserved for a future alerting hook.
	Notify bool `json:"notify"`
}

// SummaryWarmupPayload configures a warmup run.
type SummaryWarmupPayload struct {
	// Days is the trailing window to warm; zero means 30.
	Days int `json:"days"`
}

// NewLowStockScanTask constructs the scan task.
func NewLowStockScanTask(payload LowStockScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, data), nil
}

// NewSummaryWarmupTask constructs the warmup task.
func NewSummaryWarmupTask(payload SummaryWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSummaryWarmup, data), nil
}
