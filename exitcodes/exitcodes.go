// Package exitcodes defines the standard exit codes used by rp-relay.
package exitcodes

// Exit code constants used by rp-relay
// These constants define the exit codes that the application uses to indicate
// various states when it exits:
//
// * Success (0): Used when the run completed and every reporting call succeeded
// * ReportingDegraded (1): Used when the run completed but one or more reporting calls failed
// * ProtocolViolation (2): Used for fatal event-stream errors such as stack underflows or events after close
const (
	Success           = 0 // Run completed, all reporting delivered
	ReportingDegraded = 1 // Run completed with lost reporting calls
	ProtocolViolation = 2 // Malformed event stream, run aborted
)
