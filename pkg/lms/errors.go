package lms

import (
	"errors"
	"fmt"
)

// ErrMalformedTable marks an attendance page without the expected summary
// table. AllReports skips such courses instead of failing.
var ErrMalformedTable = errors.New("attendance table not found")

// AuthError means the LMS rejected the credentials or the session expired.
type AuthError struct {
	Username string
	Reason   string
	Err      error
}

func (e *AuthError) Error() string {
	if e.Username == "" {
		return "lms: " + e.Reason
	}
	return fmt.Sprintf("lms: could not log in %s: %s", e.Username, e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Exception is an error reported by the ajax service.
type Exception struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorcode"`
}

func (e *Exception) Error() string {
	return e.ErrorCode + ": " + e.Message
}

type NetworkError struct {
	Url        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("lms: %s returned status %d", e.Url, e.StatusCode)
	}
	return fmt.Sprintf("lms: request %s: %v", e.Url, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError means a page or RPC payload did not have the expected shape.
type ParseError struct {
	Url string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("lms: parse %s: %v", e.Url, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
