package parser

// validators.go provides reusable field validators.
//
// Values arrive as whatever the decoder produced: strings from CSV and XLSX,
// json.Number, bool, or nil from JSON. Every validator accepts all of them.
// Text values are cleaned the way spreadsheets export them (surrounding
// whitespace, ="..." formula wrappers, currency symbols in numbers).

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// numericPattern matches integers, decimals, and scientific notation.
var numericPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// twoDigitYearPivot controls how far in the future a two-digit year may land
// before it is moved back a century.
const twoDigitYearPivot = 20

var (
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
	}
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
)

// NonEmpty rejects nil values and blank strings.
func NonEmpty() Validator {
	return func(value any) Outcome {
		if isBlank(value) {
			return Invalid("Value is required")
		}
		return Valid()
	}
}

// Integer accepts whole numbers.
func Integer() Validator {
	return func(value any) Outcome {
		if _, ok := asInt(value); !ok {
			return Invalid("Must be an integer")
		}
		return Valid()
	}
}

// PositiveInteger accepts whole numbers greater than zero.
func PositiveInteger() Validator {
	return func(value any) Outcome {
		n, ok := asInt(value)
		if !ok || n <= 0 {
			return Invalid("Must be a positive integer")
		}
		return Valid()
	}
}

// Number accepts integers and decimals, including "$1,234.50" and the
// accounting style "(12.00)".
func Number() Validator {
	return func(value any) Outcome {
		if _, ok := asFloat(value); !ok {
			return Invalid("invalid number format")
		}
		return Valid()
	}
}

// Boolean accepts true/false, yes/no, t/f, y/n and 1/0.
func Boolean() Validator {
	return func(value any) Outcome {
		if _, ok := asBool(value); !ok {
			return Invalid("must be yes/no, true/false, or 1/0")
		}
		return Valid()
	}
}

// Date accepts ISO, US and European date layouts.
func Date() Validator {
	return func(value any) Outcome {
		if _, ok := asDate(value, time.Now()); !ok {
			return Invalid("invalid date format (use YYYY-MM-DD or similar)")
		}
		return Valid()
	}
}

// OneOf accepts any of the allowed values, compared case-insensitively.
func OneOf(allowed ...string) Validator {
	return func(value any) Outcome {
		s := cleanCell(toString(value))
		for _, a := range allowed {
			if strings.EqualFold(a, s) {
				return Valid()
			}
		}
		return Invalidf("value must be one of: %s", strings.Join(allowed, ", "))
	}
}

// MaxLength rejects text longer than n characters.
func MaxLength(n int) Validator {
	return func(value any) Outcome {
		if len([]rune(strings.TrimSpace(toString(value)))) > n {
			return Invalidf("Must be at most %d characters", n)
		}
		return Valid()
	}
}

// Pattern accepts text matching re.
func Pattern(re *regexp.Regexp, reason string) Validator {
	return func(value any) Outcome {
		if !re.MatchString(strings.TrimSpace(toString(value))) {
			return Invalid(reason)
		}
		return Valid()
	}
}

// Optional skips v for nil and blank values.
func Optional(v Validator) Validator {
	return func(value any) Outcome {
		if isBlank(value) {
			return Valid()
		}
		return v(value)
	}
}

// All runs each validator in order and returns the first failure.
func All(validators ...Validator) Validator {
	return func(value any) Outcome {
		for _, v := range validators {
			if out := v(value); !out.OK() {
				return out
			}
		}
		return Valid()
	}
}

// Text returns value as trimmed text, or "" for nil.
func Text(value any) string {
	return strings.TrimSpace(toString(value))
}

func isBlank(value any) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func toString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// cleanCell strips whitespace, Excel formula wrappers, and surrounding quotes.
func cleanCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) >= 3 {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}
	return strings.Trim(s, `"'`)
}

func asInt(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(cleanCell(v), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		return parseNumeric(v)
	default:
		return 0, false
	}
}

// parseNumeric handles currency symbols, thousands separators, and
// parentheses for negative amounts.
func parseNumeric(s string) (float64, bool) {
	s = cleanCell(s)
	if s == "" {
		return 0, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.NewReplacer("$", "", "€", "", "£", "", ",", "").Replace(s)
	s = strings.TrimSpace(s)
	if negative {
		s = "-" + s
	}

	if !numericPattern.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

func asBool(value any) (bool, bool) {
	if b, ok := value.(bool); ok {
		return b, true
	}
	switch strings.ToLower(cleanCell(toString(value))) {
	case "true", "t", "yes", "y", "1":
		return true, true
	case "false", "f", "no", "n", "0":
		return false, true
	default:
		return false, false
	}
}

func asDate(value any, now time.Time) (time.Time, bool) {
	s := cleanCell(toString(value))
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	pivot := now.Year() + twoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivot {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}
	return time.Time{}, false
}
