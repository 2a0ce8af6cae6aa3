package core

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrJobNotFound is returned when a job id does not exist.
	ErrJobNotFound = errors.New("import job not found")

	// ErrJobFinalized is returned when finalizing a job that already reached
	// a terminal state.
	ErrJobFinalized = errors.New("import job already finalized")
)

// Region is a persisted coverage region.
type Region struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Queries is the set of store operations used by the import pipeline. Every
// call runs in its own transaction unless it is made through Store.WithTx.
type Queries interface {
	// ExistingCodes returns the subset of codes already stored. An empty
	// input returns an empty set without querying.
	ExistingCodes(ctx context.Context, codes []string) (map[string]struct{}, error)

	// BulkInsertRegions inserts records, silently skipping codes that
	// already exist, and returns how many rows were committed.
	BulkInsertRegions(ctx context.Context, records []ImportRecord) (int, error)

	// ListRegions returns stored regions ordered by code.
	ListRegions(ctx context.Context, limit, offset int) ([]Region, error)

	// CreateJob starts a job in the running state.
	CreateJob(ctx context.Context, source *string, totalRows int) (int64, error)

	// AppendEvent adds an entry to a job's log.
	AppendEvent(ctx context.Context, jobID int64, level EventLevel, message string) error

	// FinalizeJob records the final counts and status. It fails with
	// ErrJobFinalized if the job is no longer running.
	FinalizeJob(ctx context.Context, jobID int64, result JobResult) error

	// FetchJobs returns jobs newest first with their events oldest first,
	// plus the total job count.
	FetchJobs(ctx context.Context, limit, offset int) ([]ImportJob, int, error)
}

// Store is a Queries implementation that can also run a group of calls in
// one transaction. fn's Queries must not be used after fn returns.
type Store interface {
	Queries
	WithTx(ctx context.Context, fn func(q Queries) error) error
	Ping(ctx context.Context) error
}
