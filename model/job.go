// model/job.go
package model

import "time"

// Job is the durable record of one model invocation (a service call).
type Job struct {
	ID             string     `json:"id" gorm:"primaryKey;size:64"`
	ModelID        string     `json:"model_id" gorm:"size:64;not null;index:idx_job_owner"`
	UserID         string     `json:"user_id" gorm:"size:64;not null;index:idx_job_owner"`
	RequestedAt    time.Time  `json:"requested_at" gorm:"not null;index:idx_job_owner"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	ExternalTaskID string     `json:"external_task_id" gorm:"size:64;uniqueIndex"`
}

func (Job) TableName() string {
	return "service_call"
}

// JobState is a dispatcher state.
type JobState string

const (
	JobSubmitted      JobState = "SUBMITTED"
	JobRunning        JobState = "RUNNING"
	JobRetryScheduled JobState = "RETRY_SCHEDULED"
	JobSuccess        JobState = "SUCCESS"
	JobFailed         JobState = "FAILED"
)

// Terminal reports whether no further transition can happen.
func (s JobState) Terminal() bool {
	return s == JobSuccess || s == JobFailed
}

// JobError is the last error surfaced by a failed job.
type JobError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// JobStatus is a read-only snapshot of a job's dispatch state.
type JobStatus struct {
	JobID       string                 `json:"job_id"`
	ModelID     string                 `json:"model_id"`
	UserID      string                 `json:"user_id"`
	State       JobState               `json:"state"`
	Result      map[string]interface{} `json:"result,omitempty"`
	Error       *JobError              `json:"error,omitempty"`
	Attempts    int                    `json:"attempts"`
	RetryDelays []time.Duration        `json:"retry_delays_ns,omitempty"`
	CacheHit    bool                   `json:"cache_hit"`
	RequestedAt time.Time              `json:"requested_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
}

// CompletionEvent reports that the task with TaskID finished successfully.
type CompletionEvent struct {
	TaskID      string    `json:"task_id"`
	CompletedAt time.Time `json:"completed_at"`
}
