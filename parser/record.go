package parser

import (
	"fmt"
	"time"
)

// RecordParser converts one line into a typed record. Implementations
// split the line with NextField, trim each field, validate, and convert to
// typed values. A malformed line is reported as a *ParseError, never as a
// panic or a fatal fault; the engine treats parse errors as data.
//
// The line slice aliases the engine's read buffer and must not be retained
// past the call. Field values must be copied (string conversion copies).
type RecordParser[T any] interface {
	TryParse(line []byte, lineNumber int) (T, error)
}

// ParseError describes a single malformed line. It identifies the failing
// line by its 1-based physical line number in the source file.
type ParseError struct {
	LineNumber int
	Message    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.LineNumber, e.Message)
}

// parseErrorf builds a *ParseError for the given line.
func parseErrorf(lineNumber int, format string, args ...any) *ParseError {
	return &ParseError{LineNumber: lineNumber, Message: fmt.Sprintf(format, args...)}
}

// Person is the reference record type: one CSV line of
// "first,last,birthdate".
type Person struct {
	FirstName string
	LastName  string
	BirthDate time.Time
}

// PersonParser parses Person records from delimiter-separated lines with
// exactly three fields. The zero value uses a comma delimiter.
type PersonParser struct {
	// Delimiter separates fields; 0 means ','.
	Delimiter byte
}

const personFieldCount = 3

// TryParse implements RecordParser[Person]. It is pure and synchronous.
func (p PersonParser) TryParse(line []byte, lineNumber int) (Person, error) {
	delim := p.Delimiter
	if delim == 0 {
		delim = ','
	}

	var fields [personFieldCount][]byte
	n := 0
	rest := line
	for {
		field, r, more := NextField(rest, delim)
		if n == personFieldCount {
			return Person{}, parseErrorf(lineNumber, "expected %d fields, got more", personFieldCount)
		}
		fields[n] = TrimBytes(field)
		n++
		if !more {
			break
		}
		rest = r
	}
	if n < personFieldCount {
		return Person{}, parseErrorf(lineNumber, "expected %d fields, got %d", personFieldCount, n)
	}

	names := [personFieldCount]string{"first name", "last name", "birth date"}
	for i, f := range fields {
		if len(f) == 0 {
			return Person{}, parseErrorf(lineNumber, "empty required field %q", names[i])
		}
	}

	birth, ok := ParseDate(string(fields[2]))
	if !ok {
		return Person{}, parseErrorf(lineNumber, "invalid date %q", string(fields[2]))
	}

	return Person{
		FirstName: string(fields[0]),
		LastName:  string(fields[1]),
		BirthDate: birth,
	}, nil
}

// TwoDigitYearPivot controls how 2-digit years are interpreted: a parsed
// year more than this many years in the future is moved to the previous
// century. With pivot=20 in 2025, "46" means 1946 and "24" means 2024.
var TwoDigitYearPivot = 20

var (
	// 4-digit year layouts are unambiguous and tried first.
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
	}
	// 2-digit year layouts require the pivot adjustment.
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
)

// ParseDate parses a calendar date in any of the accepted layouts. It
// returns false if the value matches no layout.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		// Go maps 2-digit years to 1969-2068; apply our own pivot instead.
		if t.Year() > pivotYear {
			t = t.AddDate(-100, 0, 0)
		}
		return t, true
	}

	return time.Time{}, false
}
