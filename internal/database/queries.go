package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/JonMunkholm/sheetimport/internal/core"
	"github.com/jackc/pgx/v5/pgtype"
)

const existingCodes = `
SELECT code FROM coverage_regions
WHERE code = ANY($1::text[])
`

func (q *Queries) ExistingCodes(ctx context.Context, codes []string) (map[string]struct{}, error) {
	found := make(map[string]struct{})
	if len(codes) == 0 {
		return found, nil
	}

	rows, err := q.db.Query(ctx, existingCodes, codes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		found[code] = struct{}{}
	}
	return found, rows.Err()
}

// The unique index on code is the arbiter for concurrent imports. Rows that
// lose the race are dropped by ON CONFLICT and excluded from the count.
const bulkInsertRegions = `
INSERT INTO coverage_regions (code, name, description)
SELECT * FROM unnest($1::text[], $2::text[], $3::text[])
ON CONFLICT (code) DO NOTHING
`

func (q *Queries) BulkInsertRegions(ctx context.Context, records []core.ImportRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	codes := make([]string, len(records))
	names := make([]string, len(records))
	descriptions := make([]pgtype.Text, len(records))
	for i, rec := range records {
		codes[i] = rec.Code
		names[i] = rec.Name
		descriptions[i] = toPgText(rec.Description)
	}

	tag, err := q.db.Exec(ctx, bulkInsertRegions, codes, names, descriptions)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

const listRegions = `
SELECT id, code, name, description, created_at, updated_at
FROM coverage_regions
ORDER BY code
LIMIT $1 OFFSET $2
`

func (q *Queries) ListRegions(ctx context.Context, limit, offset int) ([]core.Region, error) {
	rows, err := q.db.Query(ctx, listRegions, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	regions := []core.Region{}
	for rows.Next() {
		var (
			r    core.Region
			desc pgtype.Text
		)
		if err := rows.Scan(&r.ID, &r.Code, &r.Name, &desc, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		r.Description = fromPgText(desc)
		regions = append(regions, r)
	}
	return regions, rows.Err()
}

const createJob = `
INSERT INTO import_jobs (source_filename, total_rows, status)
VALUES ($1, $2, 'running')
RETURNING id
`

func (q *Queries) CreateJob(ctx context.Context, source *string, totalRows int) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, createJob, toPgText(source), totalRows).Scan(&id)
	return id, err
}

// clock_timestamp keeps events ordered within one transaction, where now()
// would return the same value for every row.
const appendEvent = `
INSERT INTO import_job_events (job_id, level, message, created_at)
SELECT id, $2, $3, clock_timestamp()
FROM import_jobs
WHERE id = $1
`

func (q *Queries) AppendEvent(ctx context.Context, jobID int64, level core.EventLevel, message string) error {
	tag, err := q.db.Exec(ctx, appendEvent, jobID, string(level), message)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %d: %w", jobID, core.ErrJobNotFound)
	}
	return nil
}

const finalizeJob = `
UPDATE import_jobs
SET status = $2,
    success_count = $3,
    failure_count = $4,
    errors = $5::jsonb,
    completed_at = clock_timestamp()
WHERE id = $1 AND status IN ('pending', 'running')
`

const jobExists = `SELECT EXISTS (SELECT 1 FROM import_jobs WHERE id = $1)`

func (q *Queries) FinalizeJob(ctx context.Context, jobID int64, result core.JobResult) error {
	details := result.Errors
	if details == nil {
		details = []core.ImportErrorDetail{}
	}
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("encode job errors: %w", err)
	}

	tag, err := q.db.Exec(ctx, finalizeJob, jobID, string(result.Status),
		result.SuccessCount, result.FailureCount, string(payload))
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := q.db.QueryRow(ctx, jobExists, jobID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("job %d: %w", jobID, core.ErrJobNotFound)
	}
	return fmt.Errorf("job %d: %w", jobID, core.ErrJobFinalized)
}

const countJobs = `SELECT count(*) FROM import_jobs`

const fetchJobs = `
SELECT id, source_filename, total_rows, success_count, failure_count,
       status, errors, created_at, completed_at
FROM import_jobs
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2
`

const fetchEvents = `
SELECT job_id, level, message, created_at
FROM import_job_events
WHERE job_id = ANY($1::bigint[])
ORDER BY job_id, created_at, id
`

func (q *Queries) FetchJobs(ctx context.Context, limit, offset int) ([]core.ImportJob, int, error) {
	var total int
	if err := q.db.QueryRow(ctx, countJobs).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	rows, err := q.db.Query(ctx, fetchJobs, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	jobs := []core.ImportJob{}
	index := make(map[int64]int)
	for rows.Next() {
		var (
			j         core.ImportJob
			source    pgtype.Text
			status    string
			payload   []byte
			completed pgtype.Timestamptz
		)
		if err := rows.Scan(&j.ID, &source, &j.TotalRows, &j.SuccessCount, &j.FailureCount,
			&status, &payload, &j.CreatedAt, &completed); err != nil {
			return nil, 0, err
		}

		j.Source = fromPgText(source)
		j.Status = core.JobStatus(status)
		j.CompletedAt = fromPgTimestamptz(completed)
		j.Errors = []core.ImportErrorDetail{}
		j.Events = []core.ImportJobEvent{}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &j.Errors); err != nil {
				return nil, 0, fmt.Errorf("decode errors for job %d: %w", j.ID, err)
			}
		}

		index[j.ID] = len(jobs)
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	rows.Close()

	if len(jobs) == 0 {
		return jobs, total, nil
	}

	ids := make([]int64, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ID
	}

	events, err := q.db.Query(ctx, fetchEvents, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch job events: %w", err)
	}
	defer events.Close()

	for events.Next() {
		var (
			jobID     int64
			level     string
			message   string
			createdAt time.Time
		)
		if err := events.Scan(&jobID, &level, &message, &createdAt); err != nil {
			return nil, 0, err
		}
		i := index[jobID]
		jobs[i].Events = append(jobs[i].Events, core.ImportJobEvent{
			Level:     core.EventLevel(level),
			Message:   message,
			CreatedAt: createdAt,
		})
	}
	return jobs, total, events.Err()
}
