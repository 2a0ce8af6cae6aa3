// Package core implements the region import pipeline.
//
// The package holds the domain logic independent of transport and storage.
// Web handlers, the CLI, and tests all drive it through [Service].
//
// # Pipeline
//
// [Service.ImportRegions] runs one batch end to end:
//
//  1. A job is created in the running state and the start is logged.
//  2. [NormalizeRecords] trims records and rejects blank or duplicate codes.
//  3. Codes already in the store are reported, the rest are inserted, and
//     both steps are logged inside a single transaction.
//  4. The job is finalized as completed with the committed insert count.
//
// A store failure in any step after the job exists finalizes the job as
// failed before the error is returned as an [*ImportFailedError].
//
// [Service.ImportFile] adds a parsing front end: files are decoded and
// validated by the parser package with [RegionSchema], and rejected rows are
// returned next to the import summary.
//
// # Storage
//
// The pipeline talks to a [Store]. The database package provides a
// PostgreSQL implementation; database/memory provides an in-process one used
// by tests and the demo mode.
//
// # Concurrency
//
// Runs are bounded by an [ImportLimiter]. Concurrent runs that race on the
// same code are resolved by the store's unique constraint: exactly one run
// inserts the region and the other sees a reduced insert count.
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages with [MapError]:
//
//   - DB001-DB006: database errors (constraints, connectivity)
//   - FILE001-FILE006: file errors (size, format, encoding)
//   - IMP001-IMP006: import errors (empty batch, busy, failed run, paging)
//   - REQ001: malformed or invalid request bodies
package core
