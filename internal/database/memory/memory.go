// Package memory is an in-process implementation of core.Store.
//
// All state lives behind one mutex. A transaction works on a copy of the
// state and swaps it in on success, so a failed transaction leaves nothing
// behind. Writers are serialized, which gives the same single-winner
// behavior on region codes as the unique index in PostgreSQL.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/JonMunkholm/sheetimport/internal/core"
)

// Store keeps regions and import jobs in memory.
type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{state: newState(), now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
	return s
}

func (s *Store) view() *queries {
	return &queries{state: s.state, now: s.now}
}

// WithTx runs fn against a private copy of the state and commits it if fn
// returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(q core.Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	draft := s.state.clone()
	if err := fn(&queries{state: draft, now: s.now}); err != nil {
		return err
	}
	s.state = draft
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) ExistingCodes(ctx context.Context, codes []string) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().ExistingCodes(ctx, codes)
}

func (s *Store) BulkInsertRegions(ctx context.Context, records []core.ImportRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().BulkInsertRegions(ctx, records)
}

func (s *Store) ListRegions(ctx context.Context, limit, offset int) ([]core.Region, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().ListRegions(ctx, limit, offset)
}

func (s *Store) CreateJob(ctx context.Context, source *string, totalRows int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().CreateJob(ctx, source, totalRows)
}

func (s *Store) AppendEvent(ctx context.Context, jobID int64, level core.EventLevel, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().AppendEvent(ctx, jobID, level, message)
}

func (s *Store) FinalizeJob(ctx context.Context, jobID int64, result core.JobResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().FinalizeJob(ctx, jobID, result)
}

func (s *Store) FetchJobs(ctx context.Context, limit, offset int) ([]core.ImportJob, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().FetchJobs(ctx, limit, offset)
}

type state struct {
	regions   map[string]core.Region
	regionSeq int64
	jobs      []core.ImportJob
}

func newState() *state {
	return &state{regions: make(map[string]core.Region)}
}

func (st *state) clone() *state {
	c := &state{
		regions:   make(map[string]core.Region, len(st.regions)),
		regionSeq: st.regionSeq,
		jobs:      make([]core.ImportJob, len(st.jobs)),
	}
	for code, r := range st.regions {
		c.regions[code] = r
	}
	for i, j := range st.jobs {
		c.jobs[i] = copyJob(j)
	}
	return c
}

func copyJob(j core.ImportJob) core.ImportJob {
	j.Errors = slices.Clone(j.Errors)
	j.Events = slices.Clone(j.Events)
	return j
}

// queries implements core.Queries over one state snapshot. The caller holds
// the store mutex.
type queries struct {
	state *state
	now   func() time.Time
}

func (q *queries) job(id int64) (*core.ImportJob, error) {
	// Job ids start at 1 and are never reused, so the id is the slice index + 1.
	if id < 1 || int(id) > len(q.state.jobs) {
		return nil, fmt.Errorf("job %d: %w", id, core.ErrJobNotFound)
	}
	return &q.state.jobs[id-1], nil
}

func (q *queries) ExistingCodes(ctx context.Context, codes []string) (map[string]struct{}, error) {
	found := make(map[string]struct{})
	if len(codes) == 0 {
		return found, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, code := range codes {
		if _, ok := q.state.regions[code]; ok {
			found[code] = struct{}{}
		}
	}
	return found, nil
}

func (q *queries) BulkInsertRegions(ctx context.Context, records []core.ImportRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	now := q.now()
	inserted := 0
	for _, rec := range records {
		if _, ok := q.state.regions[rec.Code]; ok {
			continue
		}
		q.state.regionSeq++
		q.state.regions[rec.Code] = core.Region{
			ID:          q.state.regionSeq,
			Code:        rec.Code,
			Name:        rec.Name,
			Description: rec.Description,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		inserted++
	}
	return inserted, nil
}

func (q *queries) ListRegions(ctx context.Context, limit, offset int) ([]core.Region, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	regions := make([]core.Region, 0, len(q.state.regions))
	for _, r := range q.state.regions {
		regions = append(regions, r)
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i].Code < regions[j].Code })
	return page(regions, limit, offset), nil
}

func (q *queries) CreateJob(ctx context.Context, source *string, totalRows int) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	id := int64(len(q.state.jobs) + 1)
	q.state.jobs = append(q.state.jobs, core.ImportJob{
		ID:        id,
		Source:    source,
		TotalRows: totalRows,
		Status:    core.JobRunning,
		CreatedAt: q.now(),
		Errors:    []core.ImportErrorDetail{},
		Events:    []core.ImportJobEvent{},
	})
	return id, nil
}

func (q *queries) AppendEvent(ctx context.Context, jobID int64, level core.EventLevel, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j, err := q.job(jobID)
	if err != nil {
		return err
	}
	j.Events = append(j.Events, core.ImportJobEvent{Level: level, Message: message, CreatedAt: q.now()})
	return nil
}

func (q *queries) FinalizeJob(ctx context.Context, jobID int64, result core.JobResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j, err := q.job(jobID)
	if err != nil {
		return err
	}
	if j.Status.Terminal() {
		return fmt.Errorf("job %d: %w", jobID, core.ErrJobFinalized)
	}

	completed := q.now()
	j.Status = result.Status
	j.SuccessCount = result.SuccessCount
	j.FailureCount = result.FailureCount
	j.Errors = slices.Clone(result.Errors)
	if j.Errors == nil {
		j.Errors = []core.ImportErrorDetail{}
	}
	j.CompletedAt = &completed
	return nil
}

func (q *queries) FetchJobs(ctx context.Context, limit, offset int) ([]core.ImportJob, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	total := len(q.state.jobs)
	newest := make([]core.ImportJob, 0, total)
	for i := total - 1; i >= 0; i-- {
		newest = append(newest, copyJob(q.state.jobs[i]))
	}
	return page(newest, limit, offset), total, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit >= 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
