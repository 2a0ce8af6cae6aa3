package parser

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func peopleSchema() Schema {
	return Schema{
		{Name: "name", Validate: NonEmpty()},
		{Name: "age", Validate: PositiveInteger()},
	}
}

func TestParse_CSVRowNumbers(t *testing.T) {
	content := "name,age\nAlice,30\nBob,\n,27\n"

	result, err := Parse(content, "people.csv", peopleSchema())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	wantRows := []RawRow{{"name": "Alice", "age": "30"}}
	if !reflect.DeepEqual(result.Rows, wantRows) {
		t.Errorf("Rows = %v, want %v", result.Rows, wantRows)
	}
	if !reflect.DeepEqual(result.RowNumbers, []int{2}) {
		t.Errorf("RowNumbers = %v, want [2]", result.RowNumbers)
	}

	var gotRows []int
	for _, issue := range result.Errors {
		gotRows = append(gotRows, issue.RowNumber)
	}
	if !reflect.DeepEqual(gotRows, []int{3, 4}) {
		t.Errorf("error rows = %v, want [3 4]", gotRows)
	}
	if result.Errors[0].Field != "age" || result.Errors[1].Field != "name" {
		t.Errorf("error fields = %q, %q; want age, name", result.Errors[0].Field, result.Errors[1].Field)
	}
}

func TestParse_JSONRowNumbers(t *testing.T) {
	content := `[{"name":"Alice","age":30},{"name":"","age":-2}]`

	result, err := Parse(content, "people.json", peopleSchema())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(result.Rows) != 1 {
		t.Fatalf("len(Rows) = %d, want 1", len(result.Rows))
	}
	if got := result.Rows[0]["age"]; got != json.Number("30") {
		t.Errorf("age = %#v, want json.Number(\"30\")", got)
	}

	want := []ValidationIssue{
		{RowNumber: 2, Field: "name", Reason: "Value is required"},
		{RowNumber: 2, Field: "age", Reason: "Must be a positive integer"},
	}
	if !reflect.DeepEqual(result.Errors, want) {
		t.Errorf("Errors = %+v, want %+v", result.Errors, want)
	}
}

func TestParse_JSONSingleObject(t *testing.T) {
	result, err := Parse(`{"name":"Alice","age":"7"}`, "one.JSON", peopleSchema())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(result.Rows) != 1 || result.RowNumbers[0] != 1 {
		t.Errorf("got rows=%v numbers=%v, want one row numbered 1", result.Rows, result.RowNumbers)
	}
}

func TestParse_EmptyContent(t *testing.T) {
	for _, name := range []string{"empty.csv", "empty.json"} {
		t.Run(name, func(t *testing.T) {
			result, err := Parse("", name, peopleSchema())
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if len(result.Rows) != 0 || len(result.Errors) != 0 {
				t.Errorf("got %d rows, %d errors; want none", len(result.Rows), len(result.Errors))
			}
		})
	}
}

func TestParse_DecodeErrors(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		filename string
		wantMsg  string
	}{
		{"json scalar", `42`, "x.json", "JSON data must be an object or array of objects"},
		{"json array of scalars", `[1, 2]`, "x.json", "JSON array must contain objects"},
		{"json syntax", `[{"name":`, "x.json", "invalid json"},
		{"json trailing data", `{} {}`, "x.json", "invalid json"},
		{"csv bare quote", "name,age\n\"Al\"ice,3\n", "x.csv", "invalid csv"},
		{"xlsx garbage", "not a workbook", "x.xlsx", "invalid xlsx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.content, tt.filename, peopleSchema())
			if !errors.Is(err, ErrDecode) {
				t.Fatalf("Parse() error = %v, want ErrDecode", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q should contain %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestParse_UnsupportedExtension(t *testing.T) {
	_, err := Parse("a,b", "notes.txt", nil)
	if !errors.Is(err, ErrUnsupportedExtension) {
		t.Fatalf("Parse() error = %v, want ErrUnsupportedExtension", err)
	}
	if !strings.Contains(err.Error(), ".txt") {
		t.Errorf("error %q should name the extension", err.Error())
	}
}

func TestParse_MissingField(t *testing.T) {
	result, err := Parse(`[{"name":"Alice"}]`, "x.json", peopleSchema())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := []ValidationIssue{{RowNumber: 1, Field: "age", Reason: ReasonMissing}}
	if !reflect.DeepEqual(result.Errors, want) {
		t.Errorf("Errors = %+v, want %+v", result.Errors, want)
	}
}

func TestParse_OptionalFieldMayBeAbsent(t *testing.T) {
	schema := Schema{
		{Name: "name", Validate: NonEmpty()},
		{Name: "note", Validate: Optional(MaxLength(3)), Optional: true},
	}
	result, err := Parse(`[{"name":"Alice"},{"name":"Bob","note":"toolong"}]`, "x.json", schema)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(result.Rows) != 1 || result.RowNumbers[0] != 1 {
		t.Errorf("Rows = %+v, RowNumbers = %v", result.Rows, result.RowNumbers)
	}
	if len(result.Errors) != 1 || result.Errors[0].Field != "note" || result.Errors[0].RowNumber != 2 {
		t.Errorf("Errors = %+v", result.Errors)
	}
}

func TestParse_CSVShortAndLongRecords(t *testing.T) {
	content := "name,age\nAlice\nBob,4,extra\n"

	result, err := Parse(content, "x.csv", nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := []RawRow{
		{"name": "Alice", "age": nil},
		{"name": "Bob", "age": "4"},
	}
	if !reflect.DeepEqual(result.Rows, want) {
		t.Errorf("Rows = %#v, want %#v", result.Rows, want)
	}
}

func TestParse_CSVStripsBOM(t *testing.T) {
	result, err := Parse("\ufeffname,age\nAlice,1\n", "x.csv", peopleSchema())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("len(Rows) = %d, want 1 (errors: %+v)", len(result.Rows), result.Errors)
	}
}

func TestParse_PanickingValidator(t *testing.T) {
	schema := Schema{
		{Name: "name", Validate: func(any) Outcome { panic("boom") }},
	}

	result, err := Parse("name\nAlice\nBob\n", "x.csv", schema)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(result.Errors) != 2 {
		t.Fatalf("len(Errors) = %d, want 2", len(result.Errors))
	}
	if !strings.Contains(result.Errors[0].Reason, "boom") {
		t.Errorf("Reason = %q, want it to embed the panic", result.Errors[0].Reason)
	}
}

func TestParse_EveryRowLandsOnOneSide(t *testing.T) {
	inputs := []struct {
		filename string
		content  string
		decoded  int
	}{
		{"a.csv", "name,age\nA,1\n,\nB,x\nC,2\n", 4},
		{"b.json", `[{"name":"A","age":1},{},{"name":"","age":0},{"age":3}]`, 4},
		{"c.csv", "name,age\n", 0},
	}

	for _, in := range inputs {
		t.Run(in.filename, func(t *testing.T) {
			result, err := Parse(in.content, in.filename, peopleSchema())
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			got := len(result.Rows) + len(result.RejectedRows())
			if got != in.decoded {
				t.Errorf("accepted+rejected = %d, want %d", got, in.decoded)
			}
			accepted := make(map[int]bool)
			for _, n := range result.RowNumbers {
				accepted[n] = true
			}
			for _, n := range result.RejectedRows() {
				if accepted[n] {
					t.Errorf("row %d is both accepted and rejected", n)
				}
			}
		})
	}
}

func TestRegistry_RegisterOverrides(t *testing.T) {
	reg := NewRegistry()

	custom := NewDecoder(10, func(content string) ([]RawRow, error) {
		var rows []RawRow
		for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
			rows = append(rows, RawRow{"name": line})
		}
		return rows, nil
	})

	if err := reg.Register(".TXT", custom); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	result, err := reg.Parse("Alice\n\nBob", "names.txt", Schema{{Name: "name", Validate: NonEmpty()}})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !reflect.DeepEqual(result.RowNumbers, []int{10, 12}) {
		t.Errorf("RowNumbers = %v, want [10 12]", result.RowNumbers)
	}
	if len(result.Errors) != 1 || result.Errors[0].RowNumber != 11 {
		t.Errorf("Errors = %+v, want one issue on row 11", result.Errors)
	}

	// Overriding a built-in replaces both the decoder and its starting row.
	if err := reg.Register(".csv", custom); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	result, err = reg.Parse("only", "data.csv", nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !reflect.DeepEqual(result.RowNumbers, []int{10}) {
		t.Errorf("RowNumbers = %v, want [10]", result.RowNumbers)
	}

	// The package-level registry is untouched.
	if _, err := Parse("x", "names.txt", nil); !errors.Is(err, ErrUnsupportedExtension) {
		t.Errorf("default registry should not know .txt, got %v", err)
	}
}

func TestRegistry_RegisterRejectsBadExtension(t *testing.T) {
	reg := NewRegistry()
	err := reg.Register("txt", FormatCSV.Decoder())
	if !errors.Is(err, ErrInvalidExtension) {
		t.Errorf("Register() error = %v, want ErrInvalidExtension", err)
	}
}

func TestRegistry_Extensions(t *testing.T) {
	got := NewRegistry().Extensions()
	want := []string{".csv", ".json", ".xlsx"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Extensions() = %v, want %v", got, want)
	}
}
