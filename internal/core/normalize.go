package core

import "strings"

const (
	msgCodeRequired    = "Region code is required."
	msgDuplicateInFile = "Duplicate region code in upload payload."
	msgAlreadyExists   = "Region code already exists in database."
	msgConstraintSkip  = "Database constraints prevented inserting some rows."
)

// NormalizeRecords trims and deduplicates a batch by region code.
//
// The first record for each code wins; later records with the same code are
// reported as duplicates without touching the first. Records with a blank
// code are rejected. Survivors keep their input order, with name and
// description trimmed and an empty description dropped.
func NormalizeRecords(records []ImportRecord) ([]ImportRecord, []ImportErrorDetail) {
	unique := make([]ImportRecord, 0, len(records))
	var errs []ImportErrorDetail
	seen := make(map[string]struct{}, len(records))

	for _, rec := range records {
		code := strings.TrimSpace(rec.Code)
		if code == "" {
			errs = append(errs, ImportErrorDetail{
				RowNumber: rec.RowNumber,
				Message:   msgCodeRequired,
			})
			continue
		}

		if _, dup := seen[code]; dup {
			errs = append(errs, ImportErrorDetail{
				RowNumber: rec.RowNumber,
				Code:      ptr(code),
				Message:   msgDuplicateInFile,
			})
			continue
		}
		seen[code] = struct{}{}

		var desc *string
		if rec.Description != nil {
			if d := strings.TrimSpace(*rec.Description); d != "" {
				desc = &d
			}
		}

		unique = append(unique, ImportRecord{
			Code:        code,
			Name:        strings.TrimSpace(rec.Name),
			Description: desc,
			RowNumber:   rec.RowNumber,
		})
	}

	return unique, errs
}
