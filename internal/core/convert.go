package core

// convert.go coerces raw import cells into typed values and pgtype parameters.
//
// Spreadsheet exports are messy: prices carry currency symbols, thousands
// separators and accounting negatives, dates come in a dozen layouts, and
// cells are wrapped in Excel formula quoting. Coercion never fails a row;
// anything that does not parse becomes nil.

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// yearRegex finds a standalone four-digit year inside free-form date text.
var yearRegex = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would land more than this many years in the future are moved
// to the previous century.
var TwoDigitYearPivot = 20

var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "January 2, 2006", "2 Jan 2006", "2 January 2006",
		"Jan 2006", "January 2006", "2006-01",
		"20060102", "2006",
	}
)

// CleanCell removes common spreadsheet artifacts from a cell value:
// surrounding whitespace, an Excel formula prefix (="...") and stray quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}

// cleanNumeric strips currency symbols and separators and resolves
// accounting negatives. It returns "" when the result is not a number.
func cleanNumeric(s string) string {
	s = CleanCell(s)
	if s == "" {
		return ""
	}

	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, "kr", "")
	s = strings.ReplaceAll(s, "NOK", "")
	s = strings.ReplaceAll(s, "USD", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return ""
	}
	return s
}

// ParsePrice coerces a price cell. Blank and non-numeric input ("N/A", "-")
// yield nil.
func ParsePrice(s string) *float64 {
	clean := cleanNumeric(s)
	if clean == "" {
		return nil
	}
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ParseDate parses a date cell in any supported layout.
func ParseDate(s string) (time.Time, bool) {
	s = CleanCell(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	return time.Time{}, false
}

// ParseReleaseYear derives the release year from a date cell. Blank input
// returns nil, nil. A non-blank cell with no recognizable year is a
// ValidationError.
func ParseReleaseYear(s string) (*int, error) {
	s = CleanCell(s)
	if s == "" {
		return nil, nil
	}
	if t, ok := ParseDate(s); ok {
		return ptr(t.Year()), nil
	}
	if m := yearRegex.FindString(s); m != "" {
		y, _ := strconv.Atoi(m)
		return &y, nil
	}
	return nil, ValidationError{Field: "release_date", Value: s, Message: "invalid date: no year found"}
}

// ToPgText converts a string to pgtype.Text.
// Returns invalid if the string is empty or only whitespace.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToPgFloat8 converts an optional price to pgtype.Float8.
func ToPgFloat8(v *float64) pgtype.Float8 {
	if v == nil {
		return pgtype.Float8{Valid: false}
	}
	return pgtype.Float8{Float64: *v, Valid: true}
}

// ToPgInt8 converts an optional id to pgtype.Int8.
func ToPgInt8(v *int64) pgtype.Int8 {
	if v == nil {
		return pgtype.Int8{Valid: false}
	}
	return pgtype.Int8{Int64: *v, Valid: true}
}

// ToPgInt4 converts an optional year to pgtype.Int4.
func ToPgInt4(v *int) pgtype.Int4 {
	if v == nil {
		return pgtype.Int4{Valid: false}
	}
	return pgtype.Int4{Int32: int32(*v), Valid: true}
}

// FromPgText returns the string value or "" for NULL.
func FromPgText(t pgtype.Text) string {
	if !t.Valid {
		return ""
	}
	return t.String
}

// FromPgFloat8 returns the value or nil for NULL.
func FromPgFloat8(f pgtype.Float8) *float64 {
	if !f.Valid {
		return nil
	}
	return ptr(f.Float64)
}

// FromPgInt8 returns the value or nil for NULL.
func FromPgInt8(i pgtype.Int8) *int64 {
	if !i.Valid {
		return nil
	}
	return ptr(i.Int64)
}

// FromPgInt4 returns the value or nil for NULL.
func FromPgInt4(i pgtype.Int4) *int {
	if !i.Valid {
		return nil
	}
	return ptr(int(i.Int32))
}
