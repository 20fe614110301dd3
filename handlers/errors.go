package handlers

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a directive failure.
type Kind string

const (
	KindConfigMissing Kind = "config_missing"
	KindPathEscape    Kind = "path_escape"
	KindNotFound      Kind = "not_found"
	KindInternalIO    Kind = "internal_io"
)

var kindStatus = map[Kind]int{
	KindConfigMissing: http.StatusInternalServerError,
	KindPathEscape:    http.StatusForbidden,
	KindNotFound:      http.StatusNotFound,
	KindInternalIO:    http.StatusInternalServerError,
}

// Error is a failure that has already been mapped to an HTTP status.
type Error struct {
	Kind Kind
	Text string
	Err  error
}

func newError(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{
		Kind: kind,
		Text: fmt.Sprintf(format, args...),
		Err:  cause,
	}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Text + ": " + e.Err.Error()
	}
	return e.Text
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status returns the HTTP status for e's kind, 500 for unknown kinds.
func (e *Error) Status() int {
	status, ok := kindStatus[e.Kind]
	if !ok {
		return http.StatusInternalServerError
	}
	return status
}

// StatusOf returns the status carried by err, or 500 if err is not an *Error.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status()
	}
	return http.StatusInternalServerError
}
