package models

import "time"

// PreWarmJobStatus tracks the lifecycle of a pre-warm job.
type PreWarmJobStatus string

const (
	JobStatusRunning   PreWarmJobStatus = "RUNNING"
	JobStatusCompleted PreWarmJobStatus = "COMPLETED"
	JobStatusFailed    PreWarmJobStatus = "FAILED"
)

// PreWarmJob records one batch-orchestrated generation run over many instances.
// A job is created once as RUNNING and mutated exactly once when it reaches a
// terminal status; it is retained indefinitely.
type PreWarmJob struct {
	BaseModel

	Status       PreWarmJobStatus `gorm:"type:varchar(16);index" json:"status"`
	StartDate    time.Time        `gorm:"index" json:"startDate"`
	EndDate      *time.Time       `json:"endDate,omitempty"`
	ErrorMessage string           `gorm:"type:text" json:"errorMessage,omitempty"`
}

// TableName isolates job bookkeeping from the read-model table.
func (PreWarmJob) TableName() string {
	return "prewarm_jobs"
}
