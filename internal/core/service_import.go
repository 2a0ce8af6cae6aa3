package core

// service_import.go drives one region import from start to finish.
//
// A run moves its job from running to exactly one terminal state:
//
//  1. create the job and log the start
//  2. normalize the batch (blank and duplicate codes become errors)
//  3. with nothing left, complete immediately
//  4. in one transaction: report codes that already exist, insert the rest,
//     and log what happened
//  5. complete with the committed insert count
//
// Any store failure after the job exists is recorded as an error and an
// ERROR event, the job is finalized as failed, and only then is the failure
// returned to the caller. A failed job's success count is the number of
// regions committed before the failure.

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/JonMunkholm/sheetimport/internal/logging"
	"github.com/google/uuid"
)

// ImportRegions imports records and returns the job summary. When the run
// fails after its job was created the summary is still returned, together
// with an *ImportFailedError.
func (s *Service) ImportRegions(ctx context.Context, source *string, records []ImportRecord) (ImportSummary, error) {
	out, err := s.Run(ctx, source, records)
	if err != nil {
		return ImportSummary{}, err
	}
	if out.Failed() {
		return out.Summary, &ImportFailedError{JobID: out.Summary.JobID, Err: out.Err}
	}
	return out.Summary, nil
}

// Run executes one import. The returned error covers failures before a job
// exists (empty batch, no free slot, job creation); everything after that is
// reported through the RunOutcome.
func (s *Service) Run(ctx context.Context, source *string, records []ImportRecord) (RunOutcome, error) {
	if len(records) == 0 {
		return RunOutcome{}, ErrEmptyBatch
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return RunOutcome{}, err
	}
	defer s.limiter.Release()

	start := time.Now()

	jobID, err := s.store.CreateJob(ctx, source, len(records))
	if err != nil {
		return RunOutcome{}, fmt.Errorf("create import job: %w", err)
	}

	run := &importRun{
		store: s.store,
		jobID: jobID,
		logger: logging.WithFields(ctx,
			"job_id", jobID,
			"run_id", uuid.NewString(),
			"source", sourceLabel(source),
			"client_ip", ClientIPFromContext(ctx),
		),
	}
	run.logger.Info("import started", "rows", len(records))

	out := run.execute(ctx, records)
	elapsed := time.Since(start)
	s.metrics.observe(out, elapsed)

	if out.Failed() {
		run.logger.Error("import failed",
			"error", out.Err,
			"failure_count", out.Summary.FailureCount,
			"duration_ms", elapsed.Milliseconds(),
		)
	} else {
		run.logger.Info("import completed",
			"success_count", out.Summary.SuccessCount,
			"failure_count", out.Summary.FailureCount,
			"duration_ms", elapsed.Milliseconds(),
		)
	}

	return out, nil
}

// importRun holds the state of a single run.
type importRun struct {
	store  Store
	jobID  int64
	errors []ImportErrorDetail
	logger *slog.Logger
}

func (r *importRun) execute(ctx context.Context, records []ImportRecord) RunOutcome {
	inserted, err := r.process(ctx, records)
	if err != nil {
		return r.fail(ctx, err, 0)
	}

	result := JobResult{
		Status:       JobCompleted,
		SuccessCount: inserted,
		FailureCount: len(r.errors),
		Errors:       r.errors,
	}
	if err := r.store.FinalizeJob(ctx, r.jobID, result); err != nil {
		// The insert transaction has committed; the failed job still reports it.
		return r.fail(ctx, fmt.Errorf("finalize job: %w", err), inserted)
	}

	return RunOutcome{Status: JobCompleted, Summary: r.summary(inserted)}
}

func (r *importRun) process(ctx context.Context, records []ImportRecord) (int, error) {
	if err := r.store.AppendEvent(ctx, r.jobID, LevelInfo,
		fmt.Sprintf("Import started with %d rows", len(records))); err != nil {
		return 0, err
	}

	unique, normErrs := NormalizeRecords(records)
	r.errors = append(r.errors, normErrs...)

	if err := r.store.AppendEvent(ctx, r.jobID, LevelInfo,
		fmt.Sprintf("Normalized payload produced %d unique rows with %d validation errors", len(unique), len(normErrs))); err != nil {
		return 0, err
	}
	r.logger.Debug("payload normalized", "unique", len(unique), "rejected", len(normErrs))

	if len(unique) == 0 {
		return 0, nil
	}

	var inserted int
	err := r.store.WithTx(ctx, func(q Queries) error {
		n, err := r.persist(ctx, q, unique)
		inserted = n
		return err
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// persist reports pre-existing codes and inserts the remainder. The
// existence check only shapes the error report; the store's unique
// constraint decides what is actually inserted.
func (r *importRun) persist(ctx context.Context, q Queries, unique []ImportRecord) (int, error) {
	byCode := make(map[string]ImportRecord, len(unique))
	codes := make([]string, 0, len(unique))
	for _, rec := range unique {
		byCode[rec.Code] = rec
		codes = append(codes, rec.Code)
	}

	existing, err := q.ExistingCodes(ctx, codes)
	if err != nil {
		return 0, fmt.Errorf("check existing codes: %w", err)
	}

	if len(existing) > 0 {
		skipped := make([]string, 0, len(existing))
		for code := range existing {
			skipped = append(skipped, code)
		}
		sort.Strings(skipped)

		for _, code := range skipped {
			var rowNumber *int
			if rec, ok := byCode[code]; ok {
				rowNumber = rec.RowNumber
			}
			r.errors = append(r.errors, ImportErrorDetail{
				RowNumber: rowNumber,
				Code:      ptr(code),
				Message:   msgAlreadyExists,
			})
		}

		if err := q.AppendEvent(ctx, r.jobID, LevelInfo,
			fmt.Sprintf("Skipped %d rows that already exist", len(existing))); err != nil {
			return 0, err
		}
	}

	pending := make([]ImportRecord, 0, len(unique)-len(existing))
	for _, rec := range unique {
		if _, ok := existing[rec.Code]; !ok {
			pending = append(pending, rec)
		}
	}

	inserted, err := q.BulkInsertRegions(ctx, pending)
	if err != nil {
		return 0, fmt.Errorf("insert regions: %w", err)
	}

	if inserted < len(pending) {
		r.errors = append(r.errors, ImportErrorDetail{Message: msgConstraintSkip})
		if err := q.AppendEvent(ctx, r.jobID, LevelWarning,
			"One or more rows could not be inserted due to database constraints"); err != nil {
			return 0, err
		}
		r.logger.Warn("insert skipped rows", "attempted", len(pending), "inserted", inserted)
	}

	if err := q.AppendEvent(ctx, r.jobID, LevelInfo,
		fmt.Sprintf("Inserted %d new rows", inserted)); err != nil {
		return 0, err
	}

	return inserted, nil
}

// fail records cause and finalizes the job as failed. committed is the number
// of regions already committed by this run. Store errors hit while doing so
// are logged; the job may then remain running.
func (r *importRun) fail(ctx context.Context, cause error, committed int) RunOutcome {
	r.errors = append(r.errors, ImportErrorDetail{
		Message: fmt.Sprintf("Unexpected error: %v", cause),
	})

	// Finalization must not be skipped because the request was cancelled.
	ctx = context.WithoutCancel(ctx)

	if err := r.store.AppendEvent(ctx, r.jobID, LevelError, fmt.Sprintf("Import failed: %v", cause)); err != nil {
		r.logger.Error("append failure event", "error", err)
	}

	result := JobResult{
		Status:       JobFailed,
		SuccessCount: committed,
		FailureCount: len(r.errors),
		Errors:       r.errors,
	}
	if err := r.store.FinalizeJob(ctx, r.jobID, result); err != nil {
		r.logger.Error("finalize failed job", "error", err)
	}

	return RunOutcome{Status: JobFailed, Summary: r.summary(committed), Err: cause}
}

func (r *importRun) summary(success int) ImportSummary {
	errs := r.errors
	if errs == nil {
		errs = []ImportErrorDetail{}
	}
	return ImportSummary{
		JobID:        r.jobID,
		SuccessCount: success,
		FailureCount: len(errs),
		Errors:       errs,
	}
}

func sourceLabel(source *string) string {
	if source == nil {
		return ""
	}
	return *source
}
