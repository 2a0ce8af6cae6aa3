package core

import (
	"errors"
	"fmt"
	"time"
)

// ImportRecord is one region submitted for import.
type ImportRecord struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	RowNumber   *int    `json:"rowNumber,omitempty"`
}

// ImportErrorDetail describes one record that was not imported.
type ImportErrorDetail struct {
	RowNumber *int    `json:"rowNumber"`
	Code      *string `json:"code"`
	Message   string  `json:"message"`
}

// JobStatus is the lifecycle state of an import job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether the job can no longer change.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// EventLevel is the severity of a job event.
type EventLevel string

const (
	LevelInfo    EventLevel = "INFO"
	LevelWarning EventLevel = "WARNING"
	LevelError   EventLevel = "ERROR"
)

// ImportJobEvent is one append-only entry in a job's log.
type ImportJobEvent struct {
	Level     EventLevel `json:"level"`
	Message   string     `json:"message"`
	CreatedAt time.Time  `json:"createdAt"`
}

// ImportJob is the audit record of one import run.
type ImportJob struct {
	ID           int64               `json:"id"`
	Source       *string             `json:"sourceFilename,omitempty"`
	TotalRows    int                 `json:"totalRows"`
	SuccessCount int                 `json:"successCount"`
	FailureCount int                 `json:"failureCount"`
	Status       JobStatus           `json:"status"`
	CreatedAt    time.Time           `json:"createdAt"`
	CompletedAt  *time.Time          `json:"completedAt,omitempty"`
	Errors       []ImportErrorDetail `json:"errors"`
	Events       []ImportJobEvent    `json:"events"`
}

// JobResult carries the values written when a job is finalized.
type JobResult struct {
	Status       JobStatus
	SuccessCount int
	FailureCount int
	Errors       []ImportErrorDetail
}

// ImportSummary is returned to the caller of an import.
type ImportSummary struct {
	JobID        int64               `json:"jobId"`
	SuccessCount int                 `json:"successCount"`
	FailureCount int                 `json:"failureCount"`
	Errors       []ImportErrorDetail `json:"errors"`
}

// ImportHistory is one page of past jobs, newest first.
type ImportHistory struct {
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
	Total    int         `json:"total"`
	Items    []ImportJob `json:"items"`
}

// RunOutcome is the tagged result of one orchestration run. The job is
// always finalized before a RunOutcome is returned; Err is set only when
// Status is JobFailed.
type RunOutcome struct {
	Status  JobStatus
	Summary ImportSummary
	Err     error
}

// Failed reports whether the run ended in the failed state.
func (o RunOutcome) Failed() bool {
	return o.Status == JobFailed
}

var (
	// ErrEmptyBatch is returned when an import has no records to process.
	ErrEmptyBatch = errors.New("empty file: no records to import")

	// ErrInvalidPage is returned for out-of-range pagination parameters.
	ErrInvalidPage = errors.New("invalid page parameters")
)

// ImportFailedError reports a run that hit a store failure after its job was
// created. The job has already been finalized as failed.
type ImportFailedError struct {
	JobID int64
	Err   error
}

func (e *ImportFailedError) Error() string {
	return fmt.Sprintf("import job %d failed: %v", e.JobID, e.Err)
}

func (e *ImportFailedError) Unwrap() error {
	return e.Err
}

func ptr[T any](v T) *T {
	return &v
}
