package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/rp-tools/rp-relay/metrics"
	"github.com/rp-tools/rp-relay/reporting"
	"github.com/rp-tools/rp-relay/types"
)

// Scope describes the execution scope being pushed onto the stack.
type Scope struct {
	Kind      types.Kind
	Name      string
	Doc       string
	Tags      []string
	Fixture   types.Fixture
	StartTime time.Time
}

// Tracker maintains the ordered chain of currently open execution scopes and
// mirrors every push and pop to the reporting backend. It is the single
// funnel for remote I/O: transport failures are absorbed here, leaving the
// affected frame unlinked while local tracking continues.
//
// The tracker is not safe for concurrent use; the runner delivers events
// from exactly one goroutine.
type Tracker struct {
	reporter reporting.Reporter
	log      zerolog.Logger
	now      func() time.Time

	stack          []*Frame
	nextLocalID    uint64
	launchID       ItemID
	externalLaunch bool
}

// NewTracker creates a tracker reporting through reporter.
func NewTracker(reporter reporting.Reporter, log zerolog.Logger) *Tracker {
	return &Tracker{
		reporter: reporter,
		log:      log,
		now:      time.Now,
	}
}

// Push opens a new scope and issues the corresponding start call. The frame
// is pushed locally even when the remote call fails, so nested scopes and
// status tracking continue uninterrupted; in that case the returned error is
// a *ReportingUnavailableError and the frame stays unlinked.
func (t *Tracker) Push(ctx context.Context, scope Scope) (uint64, error) {
	t.nextLocalID++
	frame := &Frame{
		Kind:      scope.Kind,
		LocalID:   t.nextLocalID,
		Name:      scope.Name,
		Doc:       scope.Doc,
		Tags:      scope.Tags,
		Fixture:   scope.Fixture,
		StartTime: scope.StartTime,
		Status:    types.StatusRunning,
	}
	if frame.StartTime.IsZero() {
		frame.StartTime = t.now()
	}

	parent := t.Current()
	t.stack = append(t.stack, frame)
	metrics.RecordFrameOpened()

	if scope.Kind == types.KindLaunch {
		id, err := t.reporter.StartLaunch(ctx, reporting.LaunchStart{
			Name:        scope.Name,
			Description: scope.Doc,
			Tags:        scope.Tags,
			StartTime:   frame.StartTime,
		})
		metrics.RecordReportingCall("start_launch", err)
		if err != nil {
			t.log.Warn().Err(err).Msg("start_launch failed, continuing unlinked")
			return frame.LocalID, NewReportingUnavailableError(err)
		}
		frame.RemoteID = LinkedID(id)
		t.launchID = frame.RemoteID
		return frame.LocalID, nil
	}

	// A scope below an unlinked parent can never be linked itself: the
	// backend has no item to attach it to. Skip the call entirely.
	if parent == nil || !parent.RemoteID.Valid() {
		return frame.LocalID, nil
	}

	parentID := ""
	if parent.Kind != types.KindLaunch {
		parentID, _ = parent.RemoteID.Value()
	}
	launchID, _ := t.launchID.Value()

	id, err := t.reporter.StartItem(ctx, parentID, reporting.ItemStart{
		LaunchID:    launchID,
		Kind:        scope.Kind,
		Type:        types.ItemType(scope.Kind, scope.Fixture, parent.Kind),
		Name:        scope.Name,
		Description: scope.Doc,
		Tags:        scope.Tags,
		StartTime:   frame.StartTime,
	})
	metrics.RecordReportingCall("start_item", err)
	if err != nil {
		t.log.Warn().Err(err).Str("name", scope.Name).Msg("start_item failed, continuing unlinked")
		return frame.LocalID, NewReportingUnavailableError(err)
	}
	frame.RemoteID = LinkedID(id)
	return frame.LocalID, nil
}

// AdoptLaunch opens the launch frame against an externally created launch.
// No start call is issued, and PopLaunch will not finish it either: the
// creator of the launch owns its close. Items are still started and
// finished under the adopted launch as usual.
func (t *Tracker) AdoptLaunch(scope Scope, launchID string) uint64 {
	t.nextLocalID++
	frame := &Frame{
		Kind:      types.KindLaunch,
		LocalID:   t.nextLocalID,
		RemoteID:  LinkedID(launchID),
		Name:      scope.Name,
		Doc:       scope.Doc,
		Tags:      scope.Tags,
		StartTime: scope.StartTime,
		Status:    types.StatusRunning,
	}
	if frame.StartTime.IsZero() {
		frame.StartTime = t.now()
	}

	t.stack = append(t.stack, frame)
	metrics.RecordFrameOpened()
	t.launchID = frame.RemoteID
	t.externalLaunch = true
	return frame.LocalID
}

// Pop closes the innermost open scope. The final status is the worse of the
// explicit outcome and the rolled-up child statuses; it is appended to the
// parent frame and returned. kind must match the open scope's kind; a
// mismatch means the runner emitted an end event with no matching start,
// which is a fatal protocol error.
func (t *Tracker) Pop(ctx context.Context, kind types.Kind, explicit types.Status, at time.Time) (types.Status, error) {
	frame := t.Current()
	if frame == nil || frame.Kind == types.KindLaunch || frame.Kind != kind {
		return types.StatusRunning, NewStackUnderflowError(string(kind))
	}

	t.stack = t.stack[:len(t.stack)-1]
	metrics.RecordFrameClosed()

	final := types.Rollup(explicit, frame.children)
	frame.Status = final
	metrics.RecordItemFinished(string(frame.Kind), string(final))

	if parent := t.Current(); parent != nil {
		parent.children = append(parent.children, final)
	}

	if id, ok := frame.RemoteID.Value(); ok {
		if at.IsZero() {
			at = t.now()
		}
		err := t.reporter.FinishItem(ctx, id, reporting.ItemFinish{
			Status:  final,
			EndTime: at,
		})
		metrics.RecordReportingCall("finish_item", err)
		if err != nil {
			t.log.Warn().Err(err).Str("name", frame.Name).Msg("finish_item failed")
			return final, NewReportingUnavailableError(err)
		}
	}
	return final, nil
}

// PopLaunch closes the launch frame. It must be the only frame left on the
// stack; the launch status is the rollup of its top-level children.
func (t *Tracker) PopLaunch(ctx context.Context, at time.Time) (types.Status, error) {
	frame := t.Current()
	if frame == nil {
		return types.StatusRunning, NewStackUnderflowError("finish_launch")
	}
	if frame.Kind != types.KindLaunch || len(t.stack) != 1 {
		return types.StatusRunning, NewStackUnderflowError("finish_launch")
	}

	t.stack = t.stack[:0]
	metrics.RecordFrameClosed()

	final := types.Rollup(types.StatusRunning, frame.children)
	frame.Status = final
	metrics.RecordItemFinished(string(frame.Kind), string(final))

	if id, ok := frame.RemoteID.Value(); ok && !t.externalLaunch {
		if at.IsZero() {
			at = t.now()
		}
		err := t.reporter.FinishLaunch(ctx, id, reporting.LaunchFinish{
			Status:  final,
			EndTime: at,
		})
		metrics.RecordReportingCall("finish_launch", err)
		if err != nil {
			t.log.Warn().Err(err).Msg("finish_launch failed")
			return final, NewReportingUnavailableError(err)
		}
	}
	return final, nil
}

// Current returns the innermost open frame, or nil when the stack is empty.
// The returned frame is owned by the tracker and only valid until the next
// pop.
func (t *Tracker) Current() *Frame {
	if len(t.stack) == 0 {
		return nil
	}
	return t.stack[len(t.stack)-1]
}

// Depth returns the number of open frames, the launch included.
func (t *Tracker) Depth() int {
	return len(t.stack)
}

// LaunchID returns the remote identifier of the launch, if it was linked.
func (t *Tracker) LaunchID() ItemID {
	return t.launchID
}

// AttachLog forwards a log entry scoped to the innermost open frame. With no
// open frame the entry is dropped with a warning; this is never fatal.
func (t *Tracker) AttachLog(ctx context.Context, message string, level types.LogLevel, at time.Time, attachment *types.Attachment) error {
	frame := t.Current()
	if frame == nil {
		metrics.RecordDroppedLog()
		t.log.Warn().Str("message", message).Msg("dropping log message, no open scope")
		return nil
	}

	id, ok := frame.RemoteID.Value()
	if !ok {
		// The scope never made it to the backend; nothing to attach to.
		return nil
	}

	if at.IsZero() {
		at = t.now()
	}
	err := t.reporter.Log(ctx, id, reporting.LogEntry{
		Level:      level,
		Message:    message,
		Time:       at,
		Attachment: attachment,
	})
	metrics.RecordReportingCall("log", err)
	if err != nil {
		t.log.Warn().Err(err).Msg("log delivery failed")
		return NewReportingUnavailableError(err)
	}
	return nil
}
