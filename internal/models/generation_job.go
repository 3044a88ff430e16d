package models

import "time"

// GenerationJobStatus captures background generation lifecycle states.
type GenerationJobStatus string

const (
	GenerationJobQueued    GenerationJobStatus = "QUEUED"
	GenerationJobRunning   GenerationJobStatus = "RUNNING"
	GenerationJobFinished  GenerationJobStatus = "FINISHED"
	GenerationJobFailed    GenerationJobStatus = "FAILED"
	GenerationJobCancelled GenerationJobStatus = "CANCELLED"
)

// Terminal reports whether the job can no longer change.
func (s GenerationJobStatus) Terminal() bool {
	return s == GenerationJobFinished || s == GenerationJobFailed || s == GenerationJobCancelled
}

// GenerationJob is the metadata of an asynchronous generation run.
type GenerationJob struct {
	ID            string              `json:"id"`
	Status        GenerationJobStatus `json:"status"`
	TimetableID   *string             `json:"timetableId,omitempty"`
	UnplacedCount int                 `json:"unplacedCount"`
	CreatedBy     string              `json:"createdBy,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	StartedAt     *time.Time          `json:"startedAt,omitempty"`
	FinishedAt    *time.Time          `json:"finishedAt,omitempty"`
	ErrorMessage  *string             `json:"errorMessage,omitempty"`
}
