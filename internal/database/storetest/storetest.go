// Package storetest holds behavior tests shared by every core.Store
// implementation.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/JonMunkholm/sheetimport/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store for one subtest.
type Factory func(t *testing.T) core.Store

// Run executes the shared store suite.
func Run(t *testing.T, newStore Factory) {
	t.Run("ExistingCodesEmptyInput", func(t *testing.T) { testExistingCodesEmpty(t, newStore(t)) })
	t.Run("BulkInsertSkipsExisting", func(t *testing.T) { testBulkInsertSkipsExisting(t, newStore(t)) })
	t.Run("JobLifecycle", func(t *testing.T) { testJobLifecycle(t, newStore(t)) })
	t.Run("FinalizeOnce", func(t *testing.T) { testFinalizeOnce(t, newStore(t)) })
	t.Run("FetchJobsOrderAndPaging", func(t *testing.T) { testFetchJobs(t, newStore(t)) })
	t.Run("TxRollback", func(t *testing.T) { testTxRollback(t, newStore(t)) })
	t.Run("ConcurrentInsertSingleWinner", func(t *testing.T) { testConcurrentInsert(t, newStore(t)) })
}

func record(code, name string) core.ImportRecord {
	return core.ImportRecord{Code: code, Name: name}
}

func testExistingCodesEmpty(t *testing.T, store core.Store) {
	ctx := context.Background()

	found, err := store.ExistingCodes(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, found)

	n, err := store.BulkInsertRegions(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testBulkInsertSkipsExisting(t *testing.T, store core.Store) {
	ctx := context.Background()
	desc := "capital"

	n, err := store.BulkInsertRegions(ctx, []core.ImportRecord{
		{Code: "CN-110000", Name: "Beijing", Description: &desc},
		record("CN-440300", "Shenzhen"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = store.BulkInsertRegions(ctx, []core.ImportRecord{
		record("CN-110000", "Beijing again"),
		record("CN-510100", "Chengdu"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n, "existing code must be skipped without error")

	found, err := store.ExistingCodes(ctx, []string{"CN-110000", "CN-510100", "XX-000000"})
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"CN-110000": {}, "CN-510100": {}}, found)

	regions, err := store.ListRegions(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, regions, 3)
	assert.Equal(t, "CN-110000", regions[0].Code)
	assert.Equal(t, "Beijing", regions[0].Name, "first insert wins")
	require.NotNil(t, regions[0].Description)
	assert.Equal(t, "capital", *regions[0].Description)
	assert.Nil(t, regions[1].Description)
}

func testJobLifecycle(t *testing.T, store core.Store) {
	ctx := context.Background()
	source := "regions.csv"

	id, err := store.CreateJob(ctx, &source, 3)
	require.NoError(t, err)
	assert.Positive(t, id)

	require.NoError(t, store.AppendEvent(ctx, id, core.LevelInfo, "first"))
	require.NoError(t, store.AppendEvent(ctx, id, core.LevelWarning, "second"))
	require.NoError(t, store.AppendEvent(ctx, id, core.LevelInfo, "third"))

	jobs, total, err := store.FetchJobs(ctx, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, core.JobRunning, jobs[0].Status)
	assert.Nil(t, jobs[0].CompletedAt)

	row := 4
	code := "CN-110000"
	require.NoError(t, store.FinalizeJob(ctx, id, core.JobResult{
		Status:       core.JobCompleted,
		SuccessCount: 2,
		FailureCount: 1,
		Errors:       []core.ImportErrorDetail{{RowNumber: &row, Code: &code, Message: "dup"}},
	}))

	jobs, total, err = store.FetchJobs(ctx, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	job := jobs[0]

	assert.Equal(t, id, job.ID)
	require.NotNil(t, job.Source)
	assert.Equal(t, source, *job.Source)
	assert.Equal(t, 3, job.TotalRows)
	assert.Equal(t, 2, job.SuccessCount)
	assert.Equal(t, 1, job.FailureCount)
	assert.Equal(t, core.JobCompleted, job.Status)
	require.NotNil(t, job.CompletedAt)

	require.Len(t, job.Errors, 1)
	assert.Equal(t, "dup", job.Errors[0].Message)
	require.NotNil(t, job.Errors[0].RowNumber)
	assert.Equal(t, 4, *job.Errors[0].RowNumber)

	require.Len(t, job.Events, 3)
	assert.Equal(t, []string{"first", "second", "third"},
		[]string{job.Events[0].Message, job.Events[1].Message, job.Events[2].Message})
	assert.Equal(t, core.LevelWarning, job.Events[1].Level)
	for i := 1; i < len(job.Events); i++ {
		assert.False(t, job.Events[i].CreatedAt.Before(job.Events[i-1].CreatedAt), "events must be ordered by creation")
	}
}

func testFinalizeOnce(t *testing.T, store core.Store) {
	ctx := context.Background()

	id, err := store.CreateJob(ctx, nil, 1)
	require.NoError(t, err)

	require.NoError(t, store.FinalizeJob(ctx, id, core.JobResult{Status: core.JobFailed}))
	err = store.FinalizeJob(ctx, id, core.JobResult{Status: core.JobCompleted})
	assert.ErrorIs(t, err, core.ErrJobFinalized)

	err = store.AppendEvent(ctx, id+1000, core.LevelInfo, "nobody")
	assert.ErrorIs(t, err, core.ErrJobNotFound)
}

func testFetchJobs(t *testing.T, store core.Store) {
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 5; i++ {
		id, err := store.CreateJob(ctx, nil, i)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		assert.Greater(t, ids[i], ids[i-1], "job ids must increase")
	}

	jobs, total, err := store.FetchJobs(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, jobs, 2)
	assert.Equal(t, ids[4], jobs[0].ID, "newest first")
	assert.Equal(t, ids[3], jobs[1].ID)

	jobs, _, err = store.FetchJobs(ctx, 2, 4)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, ids[0], jobs[0].ID)

	jobs, total, err = store.FetchJobs(ctx, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Empty(t, jobs)
}

func testTxRollback(t *testing.T, store core.Store) {
	ctx := context.Background()

	id, err := store.CreateJob(ctx, nil, 1)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = store.WithTx(ctx, func(q core.Queries) error {
		if _, err := q.BulkInsertRegions(ctx, []core.ImportRecord{record("CN-1", "one")}); err != nil {
			return err
		}
		if err := q.AppendEvent(ctx, id, core.LevelInfo, "inside"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	found, err := store.ExistingCodes(ctx, []string{"CN-1"})
	require.NoError(t, err)
	assert.Empty(t, found, "rolled back insert must not be visible")

	jobs, _, err := store.FetchJobs(ctx, 1, 0)
	require.NoError(t, err)
	assert.Empty(t, jobs[0].Events, "rolled back event must not be visible")

	err = store.WithTx(ctx, func(q core.Queries) error {
		_, err := q.BulkInsertRegions(ctx, []core.ImportRecord{record("CN-1", "one")})
		return err
	})
	require.NoError(t, err)

	found, err = store.ExistingCodes(ctx, []string{"CN-1"})
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func testConcurrentInsert(t *testing.T, store core.Store) {
	ctx := context.Background()
	const writers = 8

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n, err := store.BulkInsertRegions(ctx, []core.ImportRecord{
				record("CN-SHARED", fmt.Sprintf("writer %d", i)),
			})
			if err != nil {
				t.Errorf("writer %d: %v", i, err)
				return
			}
			mu.Lock()
			total += n
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, total, "exactly one writer may insert a shared code")

	regions, err := store.ListRegions(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, regions, 1)
}
