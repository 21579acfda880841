// Package scheduler drives the periodic refresh of every active hub: fetching
// forecasts and advisories, recording hourly actuals, upserting snapshots and
// emitting a single change notification per tick. It also exports the daily
// archive.
package scheduler

import "time"

// TaskType identifies the job a scheduled invocation should run. The refresher
// Lambda receives it from an EventBridge rule; the long-running Runner maps
// each cadence to one task.
type TaskType string

const (
	TaskRefreshTick     TaskType = "refresh_tick"
	TaskRefreshAdvisory TaskType = "refresh_advisory"
	TaskExportArchive   TaskType = "export_archive"
)

// TaskPayload is the JSON payload of a scheduled invocation:
//
//	{
//	  "task": "export_archive",
//	  "reference_time": "2026-06-11T04:15:00Z"  // optional
//	}
type TaskPayload struct {
	Task TaskType `json:"task"`
	// ReferenceTime overrides "now" for manual runs and archive backfills.
	ReferenceTime *time.Time `json:"reference_time,omitempty"`
}
