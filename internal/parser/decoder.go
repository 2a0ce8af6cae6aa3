package parser

// decoder.go holds the decoder contract and the built-in formats.
//
// Header-bearing formats (CSV, XLSX) start numbering at 2 so the first data
// line matches the spreadsheet row a user sees. JSON has no header and starts
// at 1. XLSX rows carry their own sheet row numbers.

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// Decoder converts raw content into rows and declares the row number of its
// first decoded row.
type Decoder interface {
	Decode(content string) ([]RawRow, error)
	StartingRow() int
}

type funcDecoder struct {
	decode      func(string) ([]RawRow, error)
	startingRow int
}

func (d funcDecoder) Decode(content string) ([]RawRow, error) { return d.decode(content) }
func (d funcDecoder) StartingRow() int                         { return d.startingRow }

// NewDecoder adapts a plain function into a Decoder.
func NewDecoder(startingRow int, decode func(content string) ([]RawRow, error)) Decoder {
	return funcDecoder{decode: decode, startingRow: startingRow}
}

// Format identifies a built-in decoder.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// Formats lists every built-in format.
var Formats = []Format{FormatCSV, FormatJSON, FormatXLSX}

// Extension returns the dotted file extension for f.
func (f Format) Extension() string {
	return "." + string(f)
}

// Decoder returns the built-in decoder for f, or nil for unknown formats.
func (f Format) Decoder() Decoder {
	switch f {
	case FormatCSV:
		return NewDecoder(2, decodeCSV)
	case FormatJSON:
		return NewDecoder(1, decodeJSON)
	case FormatXLSX:
		return xlsxDecoder{}
	default:
		return nil
	}
}

const byteOrderMark = "\ufeff"

// cleanText strips a leading BOM and replaces invalid UTF-8 sequences.
func cleanText(content string) string {
	content = strings.TrimPrefix(content, byteOrderMark)
	if !utf8.ValidString(content) {
		content = strings.ToValidUTF8(content, string(utf8.RuneError))
	}
	return content
}

// decodeCSV reads the first record as the header. Records shorter than the
// header carry nil for the missing columns; extra trailing fields are dropped.
func decodeCSV(content string) ([]RawRow, error) {
	r := csv.NewReader(strings.NewReader(cleanText(content)))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return []RawRow{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: invalid csv: %w", ErrDecode, err)
	}

	var rows []RawRow
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: invalid csv: %w", ErrDecode, err)
		}
		rows = append(rows, zipRow(header, record, nil))
	}
	return rows, nil
}

// decodeJSON accepts a single object or an array of objects. Empty content
// decodes as an empty array.
func decodeJSON(content string) ([]RawRow, error) {
	content = cleanText(content)
	if strings.TrimSpace(content) == "" {
		content = "[]"
	}

	dec := json.NewDecoder(strings.NewReader(content))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: invalid json: %w", ErrDecode, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: invalid json: unexpected data after top-level value", ErrDecode)
	}

	switch v := payload.(type) {
	case map[string]any:
		return []RawRow{v}, nil
	case []any:
		rows := make([]RawRow, 0, len(v))
		for _, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: JSON array must contain objects", ErrDecode)
			}
			rows = append(rows, obj)
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("%w: JSON data must be an object or array of objects", ErrDecode)
	}
}

// NumberedDecoder is a Decoder that reports the source row number of every
// row itself, for formats where decoded rows are not contiguous lines.
type NumberedDecoder interface {
	Decoder
	DecodeNumbered(content string) ([]RawRow, []int, error)
}

// xlsxDecoder numbers rows by their sheet index, so blank rows above the
// header or between records do not shift row numbers.
type xlsxDecoder struct{}

func (xlsxDecoder) StartingRow() int { return 2 }

func (d xlsxDecoder) Decode(content string) ([]RawRow, error) {
	rows, _, err := d.DecodeNumbered(content)
	return rows, err
}

// DecodeNumbered reads the first worksheet. The first non-empty row is the
// header; blank rows are skipped like blank CSV lines.
func (xlsxDecoder) DecodeNumbered(content string) ([]RawRow, []int, error) {
	f, err := excelize.OpenReader(strings.NewReader(content))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: invalid xlsx: %w", ErrDecode, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("%w: invalid xlsx: workbook has no sheets", ErrDecode)
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: invalid xlsx: %w", ErrDecode, err)
	}

	headerIdx := -1
	for i, record := range records {
		if !blankRecord(record) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return []RawRow{}, []int{}, nil
	}

	header := records[headerIdx]
	rows := make([]RawRow, 0, len(records)-headerIdx-1)
	numbers := make([]int, 0, len(records)-headerIdx-1)
	for i := headerIdx + 1; i < len(records); i++ {
		if blankRecord(records[i]) {
			continue
		}
		// Spreadsheets drop trailing empty cells, so an omitted cell is blank
		// rather than absent.
		rows = append(rows, zipRow(header, records[i], ""))
		numbers = append(numbers, i+1)
	}
	return rows, numbers, nil
}

func zipRow(header, record []string, missing any) RawRow {
	row := make(RawRow, len(header))
	for i, name := range header {
		if i < len(record) {
			row[name] = record[i]
		} else {
			row[name] = missing
		}
	}
	return row
}

func blankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
