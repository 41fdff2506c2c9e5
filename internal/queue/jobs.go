package queue

import (
	"time"

	"github.com/yoyole123/gdrive-transcriber/internal/types"
)

// Job represents one Drive recording queued for processing
type Job struct {
	ID          string
	FileID      string
	FileName    string
	FileCreated time.Time
	Trigger     string
	Status      string
	Error       error
	CreatedAt   time.Time
}

// NewJob creates a new job with default values
func NewJob(id, fileID, fileName, trigger string, fileCreated time.Time) *Job {
	return &Job{
		ID:          id,
		FileID:      fileID,
		FileName:    fileName,
		FileCreated: fileCreated,
		Trigger:     trigger,
		Status:      types.StatusQueued,
		CreatedAt:   time.Now(),
	}
}
