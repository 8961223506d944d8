package types

import "fmt"

// Status represents the outcome of an execution scope as reported to the
// backend. A frame starts RUNNING and is finalized to one of the other
// values when it is closed.
type Status string

const (
	StatusRunning Status = "RUNNING"
	StatusPassed  Status = "PASSED"
	StatusFailed  Status = "FAILED"
	StatusSkipped Status = "SKIPPED"
)

// statusRank orders statuses by severity for rollup. Higher rank dominates.
var statusRank = map[Status]int{
	StatusRunning: 0,
	StatusPassed:  1,
	StatusSkipped: 2,
	StatusFailed:  3,
}

// IsFinal reports whether s is a terminal status.
func (s Status) IsFinal() bool {
	return s == StatusPassed || s == StatusFailed || s == StatusSkipped
}

// Worse returns the more severe of s and other. FAILED dominates SKIPPED,
// which dominates PASSED.
func (s Status) Worse(other Status) Status {
	if statusRank[other] > statusRank[s] {
		return other
	}
	return s
}

// Rollup derives a frame's final status from its explicit outcome and the
// finalized statuses of its children. If neither the explicit status nor any
// child carries a terminal status, the result is PASSED.
func Rollup(explicit Status, children []Status) Status {
	result := explicit
	for _, child := range children {
		result = result.Worse(child)
	}
	if !result.IsFinal() {
		return StatusPassed
	}
	return result
}

// ParseRunnerStatus maps a runner-reported outcome string onto a Status.
// Both the short runner forms (PASS/FAIL/SKIP) and the full reporting forms
// are accepted. An empty string maps to RUNNING so that start events, which
// carry no outcome, parse cleanly.
func ParseRunnerStatus(s string) (Status, error) {
	switch s {
	case "":
		return StatusRunning, nil
	case "PASS", "PASSED":
		return StatusPassed, nil
	case "FAIL", "FAILED":
		return StatusFailed, nil
	case "SKIP", "SKIPPED", "NOT RUN":
		return StatusSkipped, nil
	default:
		return StatusRunning, fmt.Errorf("unknown runner status %q", s)
	}
}
