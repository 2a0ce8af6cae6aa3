package core

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/JonMunkholm/sheetimport/internal/parser"
)

// Region file columns.
const (
	ColumnCode        = "code"
	ColumnName        = "name"
	ColumnDescription = "description"
)

// Column length limits.
const (
	MaxTextLength        = 255
	MaxDescriptionLength = 1024
)

// RegionSchema validates rows of a region file. The description column may
// be missing or blank.
func RegionSchema() parser.Schema {
	text := parser.All(parser.NonEmpty(), parser.MaxLength(MaxTextLength))
	return parser.Schema{
		{Name: ColumnCode, Validate: text},
		{Name: ColumnName, Validate: text},
		{Name: ColumnDescription, Validate: parser.Optional(parser.MaxLength(MaxDescriptionLength)), Optional: true},
	}
}

// FileImportResult is the outcome of importing an uploaded file: the import
// summary for accepted rows plus the rows the parser rejected.
type FileImportResult struct {
	ImportSummary
	Rejected []parser.ValidationIssue `json:"rejectedRows"`
}

// RecordsFromRows converts accepted parser rows into import records that
// remember their source row numbers.
func RecordsFromRows(parsed parser.ParseResult) []ImportRecord {
	records := make([]ImportRecord, 0, len(parsed.Rows))
	for i, row := range parsed.Rows {
		rec := ImportRecord{
			Code: parser.Text(row[ColumnCode]),
			Name: parser.Text(row[ColumnName]),
		}
		if d := parser.Text(row[ColumnDescription]); d != "" {
			rec.Description = ptr(d)
		}
		if i < len(parsed.RowNumbers) {
			rec.RowNumber = ptr(parsed.RowNumbers[i])
		}
		records = append(records, rec)
	}
	return records
}

// ImportFile parses content by filename extension and imports the accepted
// rows with the file name as the job source. If the parser accepts nothing
// no job is created and the rejected rows are returned with ErrEmptyBatch.
func (s *Service) ImportFile(ctx context.Context, filename, content string) (FileImportResult, error) {
	parsed, err := s.parsers.Parse(content, filename, RegionSchema())
	if err != nil {
		return FileImportResult{}, fmt.Errorf("parse %s: %w", filepath.Base(filename), err)
	}

	result := FileImportResult{Rejected: parsed.Errors}

	records := RecordsFromRows(parsed)
	if len(records) == 0 {
		return result, fmt.Errorf("parse %s: %w", filepath.Base(filename), ErrEmptyBatch)
	}

	summary, err := s.ImportRegions(ctx, ptr(filepath.Base(filename)), records)
	result.ImportSummary = summary
	return result, err
}
