// Package parser turns raw tabular content into validated rows.
//
// Content is decoded by a [Decoder] chosen from the filename extension, then
// every decoded row is checked against a [Schema]. Rows that pass every field
// check are accepted; rows with one or more problems contribute only their
// [ValidationIssue] entries. The split is exhaustive: each decoded row lands
// on exactly one side of the [ParseResult].
//
// Row numbers are 1-based and follow the decoder's starting row, so an issue
// on the first data line of a CSV file (after the header) reports row 2 while
// the first object of a JSON array reports row 1.
package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrUnsupportedExtension is returned when no decoder is registered for
	// the filename's extension.
	ErrUnsupportedExtension = errors.New("unsupported file extension")

	// ErrInvalidExtension is returned by Register for extensions that do not
	// start with a dot.
	ErrInvalidExtension = errors.New("extension must start with '.'")

	// ErrDecode wraps every failure to decode content as a whole (malformed
	// syntax or wrong top-level shape).
	ErrDecode = errors.New("decode failed")
)

// RawRow is one decoded source record keyed by column name.
type RawRow map[string]any

// ValidationIssue describes one failed field check.
type ValidationIssue struct {
	RowNumber int    `json:"rowNumber"`
	Field     string `json:"field"`
	Reason    string `json:"reason"`
}

// ParseResult partitions a decoded batch into accepted rows and issues.
// RowNumbers[i] is the source row number of Rows[i].
type ParseResult struct {
	Rows       []RawRow          `json:"rows"`
	RowNumbers []int             `json:"rowNumbers"`
	Errors     []ValidationIssue `json:"errors"`
}

// RejectedRows returns the distinct row numbers that produced issues, in order.
func (r ParseResult) RejectedRows() []int {
	seen := make(map[int]struct{}, len(r.Errors))
	var rows []int
	for _, issue := range r.Errors {
		if _, ok := seen[issue.RowNumber]; ok {
			continue
		}
		seen[issue.RowNumber] = struct{}{}
		rows = append(rows, issue.RowNumber)
	}
	return rows
}

// Registry maps lowercase file extensions to decoders.
type Registry struct {
	mu       sync.RWMutex
	decoders map[string]Decoder
}

// NewRegistry returns a registry preloaded with every built-in [Format].
func NewRegistry() *Registry {
	r := &Registry{decoders: make(map[string]Decoder, len(Formats))}
	for _, f := range Formats {
		r.decoders[f.Extension()] = f.Decoder()
	}
	return r
}

// Register installs dec for ext, replacing any previous registration.
func (r *Registry) Register(ext string, dec Decoder) error {
	if !strings.HasPrefix(ext, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidExtension, ext)
	}
	if dec == nil {
		return fmt.Errorf("register %s: nil decoder", ext)
	}

	r.mu.Lock()
	r.decoders[strings.ToLower(ext)] = dec
	r.mu.Unlock()
	return nil
}

// Lookup returns the decoder for filename's extension.
func (r *Registry) Lookup(filename string) (Decoder, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	r.mu.RLock()
	dec, ok := r.decoders[ext]
	r.mu.RUnlock()

	if !ok {
		if ext == "" {
			ext = filename
		}
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedExtension, ext)
	}
	return dec, nil
}

// Extensions lists the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	exts := make([]string, 0, len(r.decoders))
	for ext := range r.decoders {
		exts = append(exts, ext)
	}
	r.mu.RUnlock()

	sort.Strings(exts)
	return exts
}

// Parse decodes content with the decoder registered for filename and
// validates every row against schema. A nil schema accepts every row.
func (r *Registry) Parse(content, filename string, schema Schema) (ParseResult, error) {
	dec, err := r.Lookup(filename)
	if err != nil {
		return ParseResult{}, err
	}

	rows, numbers, err := decodeRows(dec, content)
	if err != nil {
		return ParseResult{}, err
	}

	result := ParseResult{
		Rows:       make([]RawRow, 0, len(rows)),
		RowNumbers: make([]int, 0, len(rows)),
		Errors:     []ValidationIssue{},
	}

	for i, row := range rows {
		rowNumber := numbers[i]
		issues := schema.Check(rowNumber, row)
		if len(issues) > 0 {
			result.Errors = append(result.Errors, issues...)
			continue
		}
		result.Rows = append(result.Rows, row)
		result.RowNumbers = append(result.RowNumbers, rowNumber)
	}

	return result, nil
}

// decodeRows decodes content and pairs each row with its source row number:
// explicit for a NumberedDecoder, else the starting row plus the index.
func decodeRows(dec Decoder, content string) ([]RawRow, []int, error) {
	if nd, ok := dec.(NumberedDecoder); ok {
		rows, numbers, err := nd.DecodeNumbered(content)
		if err != nil {
			return nil, nil, err
		}
		if len(numbers) != len(rows) {
			return nil, nil, fmt.Errorf("%w: decoder returned %d row numbers for %d rows", ErrDecode, len(numbers), len(rows))
		}
		return rows, numbers, nil
	}

	rows, err := dec.Decode(content)
	if err != nil {
		return nil, nil, err
	}
	start := dec.StartingRow()
	numbers := make([]int, len(rows))
	for i := range rows {
		numbers[i] = start + i
	}
	return rows, numbers, nil
}

var defaultRegistry = NewRegistry()

// Parse runs content through the built-in decoders. Use a [Registry] to add
// or override formats.
func Parse(content, filename string, schema Schema) (ParseResult, error) {
	return defaultRegistry.Parse(content, filename, schema)
}
