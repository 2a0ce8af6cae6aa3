package parser

import "fmt"

const (
	// ReasonMissing is reported when a schema field is absent from a row.
	ReasonMissing = "Missing value"

	// ReasonInvalid is reported by Invalid("").
	ReasonInvalid = "Invalid value"
)

// Outcome is the result of checking one value: valid, or invalid with a reason.
type Outcome struct {
	invalid bool
	reason  string
}

// Valid reports a passing check.
func Valid() Outcome { return Outcome{} }

// Invalid reports a failing check. An empty reason becomes ReasonInvalid.
func Invalid(reason string) Outcome {
	if reason == "" {
		reason = ReasonInvalid
	}
	return Outcome{invalid: true, reason: reason}
}

// Invalidf is Invalid with fmt.Sprintf formatting.
func Invalidf(format string, args ...any) Outcome {
	return Invalid(fmt.Sprintf(format, args...))
}

// OK reports whether the check passed.
func (o Outcome) OK() bool { return !o.invalid }

// Reason returns the failure reason, or "" for a passing check.
func (o Outcome) Reason() string { return o.reason }

// Validator checks a single raw value.
type Validator func(value any) Outcome

// Field binds a column name to its validator. A nil Validate only checks
// that the column is present. An Optional field may be absent from the row.
type Field struct {
	Name     string
	Validate Validator
	Optional bool
}

// Schema is an ordered list of field checks. Issues within a row are reported
// in schema order.
type Schema []Field

// Check validates one row and returns its issues, or nil when the row passes.
func (s Schema) Check(rowNumber int, row RawRow) []ValidationIssue {
	var issues []ValidationIssue
	for _, field := range s {
		value, ok := row[field.Name]
		if !ok {
			if field.Optional {
				continue
			}
			issues = append(issues, ValidationIssue{RowNumber: rowNumber, Field: field.Name, Reason: ReasonMissing})
			continue
		}
		if field.Validate == nil {
			continue
		}
		if out := run(field.Validate, value); !out.OK() {
			issues = append(issues, ValidationIssue{RowNumber: rowNumber, Field: field.Name, Reason: out.Reason()})
		}
	}
	return issues
}

// run calls v and converts a panic into an invalid outcome.
func run(v Validator, value any) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Invalidf("Validator panicked: %v", r)
		}
	}()
	return v(value)
}
