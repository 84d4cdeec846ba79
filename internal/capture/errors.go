package capture

import (
	"errors"
	"fmt"

	"cvbuilder/internal/errcode"
)

var (
	// ErrBusy is returned when an export is already in flight.
	ErrBusy = errors.New("export already in progress")
	// ErrCapabilityUnavailable means a collaborator is missing or not ready.
	ErrCapabilityUnavailable = errors.New("capture capability unavailable")
)

type Kind string

const (
	KindUnavailable Kind = "capability_unavailable"
	KindCapture     Kind = "capture_failure"
)

// Error describes a failed export. Page is the zero-based page index, or -1
// when the failure is not tied to a page.
type Error struct {
	Kind Kind
	Page int
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Page >= 0 {
		return fmt.Sprintf("%s: %s page %d: %v", e.Kind, e.Op, e.Page+1, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Code maps the failure to the shared error code table.
func (e *Error) Code() int {
	if e.Kind == KindUnavailable {
		return errcode.CapabilityUnavailable
	}
	return errcode.SystemError
}

func unavailable(op string, err error) *Error {
	return &Error{Kind: KindUnavailable, Page: -1, Op: op, Err: fmt.Errorf("%w: %v", ErrCapabilityUnavailable, err)}
}

func captureFailed(op string, page int, err error) *Error {
	return &Error{Kind: KindCapture, Page: page, Op: op, Err: err}
}

// Level of a user-visible notice.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Notice is the user-visible outcome of an export.
type Notice struct {
	Level         Level  `json:"level"`
	Code          int    `json:"code"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlation_id,omitempty"`
	Filename      string `json:"filename,omitempty"`
}
