package relay

import (
	"errors"
	"fmt"
)

// ProtocolViolationError represents a fatal event-stream error that should
// lead to exit code 2. Examples include end events with no matching start
// and events arriving after the launch closed.
type ProtocolViolationError struct {
	Err error
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("protocol violation: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *ProtocolViolationError) Unwrap() error {
	return e.Err
}

// NewProtocolViolationError creates a new ProtocolViolationError
func NewProtocolViolationError(err error) *ProtocolViolationError {
	return &ProtocolViolationError{Err: err}
}

// IsProtocolViolationError checks if the error is or wraps a ProtocolViolationError
func IsProtocolViolationError(err error) bool {
	var protoErr *ProtocolViolationError
	return err != nil && errors.As(err, &protoErr)
}

// ReportingDegradedError represents a run that completed locally but lost
// one or more reporting calls (exit code 1). The results on the backend are
// incomplete; the local summary is still valid.
type ReportingDegradedError struct {
	Message string
}

func (e *ReportingDegradedError) Error() string {
	return fmt.Sprintf("reporting degraded: %s", e.Message)
}

// NewReportingDegradedError creates a new ReportingDegradedError
func NewReportingDegradedError(message string) *ReportingDegradedError {
	return &ReportingDegradedError{Message: message}
}

// IsReportingDegradedError checks if the error is or wraps a ReportingDegradedError
func IsReportingDegradedError(err error) bool {
	var degradedErr *ReportingDegradedError
	return err != nil && errors.As(err, &degradedErr)
}
