package jobs

import (
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskGaugeStatusRefresh recomputes calibration statuses from due dates.
	TaskGaugeStatusRefresh = "gauges:refresh-status"
	// TaskPMStatusRefresh recomputes preventive maintenance due statuses.
	TaskPMStatusRefresh = "maintenance:refresh-pm"
	// TaskReorderScan rebuilds the reorder alert summary in Redis.
	TaskReorderScan = "stock:reorder-scan"
)

// ReorderSummaryKey is the cache key the dashboard endpoint reads.
const ReorderSummaryKey = "reorder:summary"

// NewGaugeStatusRefreshTask constructs the gauge refresh task.
func NewGaugeStatusRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskGaugeStatusRefresh, nil)
}

// NewPMStatusRefreshTask constructs the PM refresh task.
func NewPMStatusRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskPMStatusRefresh, nil)
}

// NewReorderScanTask constructs the reorder scan task.
func NewReorderScanTask() *asynq.Task {
	return asynq.NewTask(TaskReorderScan, nil)
}
