package timetable

import "fmt"

// NetworkError means the report endpoint was unreachable or answered with a
// non-2xx status.
type NetworkError struct {
	Url        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("timetable: %s returned status %d", e.Url, e.StatusCode)
	}
	return fmt.Sprintf("timetable: request %s: %v", e.Url, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError reports a report row that could not be decoded. Line counts the
// header as line 1.
type ParseError struct {
	Line   int
	Column string
	Err    error
}

func (e *ParseError) Error() string {
	switch {
	case e.Line > 0 && e.Column != "":
		return fmt.Sprintf("timetable: line %d, column %q: %v", e.Line, e.Column, e.Err)
	case e.Column != "":
		return fmt.Sprintf("timetable: column %q: %v", e.Column, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("timetable: line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("timetable: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
