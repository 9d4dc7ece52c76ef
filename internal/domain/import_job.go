package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus tracks the lifecycle of an import run. Transitions only move
// forward: pending -> processing -> completed or failed.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransition reports whether moving from s to next is a legal forward
// transition. A job may fail straight from pending when a precondition
// (an unreadable upload, for example) breaks before the batch loop starts.
func (s JobStatus) CanTransition(next JobStatus) bool {
	switch s {
	case JobStatusPending:
		return next == JobStatusProcessing || next == JobStatusFailed
	case JobStatusProcessing:
		return next == JobStatusCompleted || next == JobStatusFailed
	default:
		return false
	}
}

// ImportJob is the persisted record describing one ingestion run. It is the
// single source of truth polled by clients; progress lives here rather than
// in any in-process counter.
type ImportJob struct {
	ID            uuid.UUID `json:"id"`
	Status        JobStatus `json:"status"`
	TotalRows     int       `json:"total_rows"`
	ProcessedRows int       `json:"processed_rows"`
	SkippedRows   int       `json:"skipped_rows"`
	ErrorMessage  *string   `json:"error_message,omitempty"`
	SourceName    string    `json:"source_name"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewImportJob returns a pending job for the named upload.
func NewImportJob(sourceName string) ImportJob {
	return ImportJob{
		ID:         uuid.New(),
		Status:     JobStatusPending,
		SourceName: sourceName,
	}
}

// Progress returns the completion percentage for display. The raw row counts
// remain the authoritative fields.
func (j ImportJob) Progress() int {
	if j.TotalRows <= 0 {
		return 0
	}
	return int(float64(j.ProcessedRows) / float64(j.TotalRows) * 100)
}
