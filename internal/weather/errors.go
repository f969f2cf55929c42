package weather

import (
	"errors"
	"fmt"
)

var (
	// ErrEncoding is returned when a payload is not valid UTF-8.
	ErrEncoding = errors.New("payload is not valid utf-8")
	// ErrMalformedPayload is returned when a payload is not valid JSON.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrNoResultsFound is returned when the geocoder matched nothing.
	ErrNoResultsFound = errors.New("no results found")
	// ErrInvalidTransition is returned when an event would move the state
	// machine along an edge that is not in the transition table.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrInvalidState is returned by State.Validate.
	ErrInvalidState = errors.New("invalid state")
)

// MissingFieldError reports a required field that is absent or has the wrong
// JSON type. Index is -1 for scalar fields.
type MissingFieldError struct {
	Field string
	Index int
}

func (e *MissingFieldError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("missing field %s", e.Field)
	}
	return fmt.Sprintf("missing field %s[%d]", e.Field, e.Index)
}

// RequestFailedError reports a failed outbound stage: a non-2xx status, a
// transport error, a non-zero exit status or output on standard error.
type RequestFailedError struct {
	Stage    Tag
	Status   int
	ExitCode int
	Detail   string
	Err      error
}

func (e *RequestFailedError) Error() string {
	msg := fmt.Sprintf("%s request failed", e.Stage)
	switch {
	case e.Status != 0:
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	case e.ExitCode != 0:
		msg = fmt.Sprintf("%s (exit status %d)", msg, e.ExitCode)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RequestFailedError) Unwrap() error {
	return e.Err
}
