package types

import "time"

// Job status constants
const (
	StatusQueued     = "QUEUED"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Run trigger constants
const (
	TriggerManual   = "manual"
	TriggerSchedule = "schedule"
)

// FileResult represents the outcome of processing one Drive recording
type FileResult struct {
	JobID        string
	FileID       string
	FileName     string
	Transcript   string
	SegmentCount int
	Placeholders int
	Balance      string
	EmailSent    bool
	LocalPath    string
	ProcessedAt  time.Time
}
