// Package reporting defines the outbound boundary to the remote reporting
// backend. The session core only ever sees the Reporter interface and the
// TransportError failure kind; everything backend-specific stays behind it.
package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rp-tools/rp-relay/types"
)

// LaunchStart describes the top-level launch scope at creation time.
type LaunchStart struct {
	Name        string
	Description string
	Tags        []string
	StartTime   time.Time
}

// LaunchFinish closes a launch with its rolled-up status.
type LaunchFinish struct {
	Status  types.Status
	EndTime time.Time
}

// ItemStart describes a reportable node below the launch. LaunchID is the
// remote launch the item belongs to; Type is the backend item type string
// derived from the scope kind (see types.ItemType).
type ItemStart struct {
	LaunchID    string
	Kind        types.Kind
	Type        string
	Name        string
	Description string
	Tags        []string
	StartTime   time.Time
}

// ItemFinish closes an item with its final status.
type ItemFinish struct {
	Status  types.Status
	EndTime time.Time
}

// LogEntry is a log message scoped to an open item, with an optional binary
// attachment.
type LogEntry struct {
	Level      types.LogLevel
	Message    string
	Time       time.Time
	Attachment *types.Attachment
}

// Reporter is the capability the session core requires from the backend.
// Implementations must preserve observed call ordering: parent before child,
// start before finish, sibling order as called. All failures are reported as
// *TransportError, never as backend-specific error types.
type Reporter interface {
	StartLaunch(ctx context.Context, launch LaunchStart) (string, error)
	FinishLaunch(ctx context.Context, launchID string, finish LaunchFinish) error

	// StartItem creates an item under parentID, or directly under the launch
	// when parentID is empty. Returns the server-assigned item ID.
	StartItem(ctx context.Context, parentID string, item ItemStart) (string, error)
	FinishItem(ctx context.Context, itemID string, finish ItemFinish) error

	Log(ctx context.Context, itemID string, entry LogEntry) error
}

// TransportError wraps any failure to reach or be understood by the backend.
// It is always recoverable from the session's point of view: execution
// continues with local-only tracking.
type TransportError struct {
	Call string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("reporting call %s failed: %v", e.Call, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a TransportError for the named call.
func NewTransportError(call string, err error) *TransportError {
	return &TransportError{Call: call, Err: err}
}

// IsTransportError checks if the error is or wraps a TransportError.
func IsTransportError(err error) bool {
	var transportErr *TransportError
	return err != nil && errors.As(err, &transportErr)
}
