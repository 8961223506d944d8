package session

import (
	"errors"
	"fmt"
)

// ReportingUnavailableError wraps a transport failure from the reporting
// backend. It is recoverable: the affected scope and its descendants
// continue with local-only tracking, and the run itself is never aborted
// because of it.
type ReportingUnavailableError struct {
	Err error
}

func (e *ReportingUnavailableError) Error() string {
	return fmt.Sprintf("reporting unavailable: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *ReportingUnavailableError) Unwrap() error {
	return e.Err
}

// NewReportingUnavailableError creates a new ReportingUnavailableError
func NewReportingUnavailableError(err error) *ReportingUnavailableError {
	return &ReportingUnavailableError{Err: err}
}

// IsReportingUnavailable checks if the error is or wraps a ReportingUnavailableError
func IsReportingUnavailable(err error) bool {
	var repErr *ReportingUnavailableError
	return err != nil && errors.As(err, &repErr)
}

// StackUnderflowError signals an end event with no matching open scope. This
// is a runner-protocol violation and always fatal.
type StackUnderflowError struct {
	Action string
}

func (e *StackUnderflowError) Error() string {
	return fmt.Sprintf("stack underflow: %s event with no matching open scope", e.Action)
}

// NewStackUnderflowError creates a new StackUnderflowError
func NewStackUnderflowError(action string) *StackUnderflowError {
	return &StackUnderflowError{Action: action}
}

// IsStackUnderflow checks if the error is or wraps a StackUnderflowError
func IsStackUnderflow(err error) bool {
	var stackErr *StackUnderflowError
	return err != nil && errors.As(err, &stackErr)
}

// SessionClosedError signals an event arriving after the launch was
// finished. Like StackUnderflowError it indicates protocol corruption and is
// fatal.
type SessionClosedError struct {
	Action string
}

func (e *SessionClosedError) Error() string {
	return fmt.Sprintf("session already closed: received %s event", e.Action)
}

// NewSessionClosedError creates a new SessionClosedError
func NewSessionClosedError(action string) *SessionClosedError {
	return &SessionClosedError{Action: action}
}

// IsSessionClosed checks if the error is or wraps a SessionClosedError
func IsSessionClosed(err error) bool {
	var closedErr *SessionClosedError
	return err != nil && errors.As(err, &closedErr)
}
