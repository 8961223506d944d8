package session

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/rp-tools/rp-relay/events"
	"github.com/rp-tools/rp-relay/reporting"
	"github.com/rp-tools/rp-relay/types"
)

// State is the launch session lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Config holds the run-wide session settings supplied once at process start.
type Config struct {
	// LaunchName names the top-level launch on the backend.
	LaunchName string
	// LaunchDoc is the launch description.
	LaunchDoc string
	// LaunchTags mark the launch.
	LaunchTags []string
	// LaunchID attaches the run to an externally created launch instead of
	// starting a new one. The creator of the launch owns its close, so no
	// finish call is ever issued for it.
	LaunchID string

	// AbortStatus is the status applied to frames force-closed when the run
	// is aborted. Defaults to FAILED.
	AbortStatus types.Status

	Reporter reporting.Reporter
	// Formatter prepares log messages for forwarding. Optional; nil means
	// messages are forwarded verbatim.
	Formatter *events.Formatter
	Log       zerolog.Logger
}

// StatusCounts aggregates finalized scope outcomes of one kind.
type StatusCounts struct {
	Total   int
	Passed  int
	Failed  int
	Skipped int
}

func (c *StatusCounts) add(status types.Status) {
	c.Total++
	switch status {
	case types.StatusPassed:
		c.Passed++
	case types.StatusFailed:
		c.Failed++
	case types.StatusSkipped:
		c.Skipped++
	}
}

// Summary is the final accounting of a session, used for the results table
// and the process exit code.
type Summary struct {
	LaunchStatus types.Status
	LaunchID     string
	StartTime    time.Time
	EndTime      time.Time
	Suites       StatusCounts
	Tests        StatusCounts
	Keywords     StatusCounts
	DroppedLogs  int
	Degraded     bool
	Closed       bool
}

// Snapshot is an immutable view of the session for concurrent readers such
// as the status endpoint. Events mutate the session from exactly one
// goroutine; Snapshot is the only safe way to observe it from another.
type Snapshot struct {
	State      State
	Summary    Summary
	OpenScopes int
}

// Session owns the launch lifecycle for one test-run invocation and
// translates runner lifecycle events into scope stack operations. One
// session instance exists per run; there is no ambient global state.
//
// Reporting failures are absorbed (the session turns degraded); stack
// discipline violations are returned as fatal errors.
type Session struct {
	cfg     Config
	log     zerolog.Logger
	tracker *Tracker

	state       State
	suiteDepth  int
	degraded    bool
	droppedLogs int

	suiteCounts   StatusCounts
	testCounts    StatusCounts
	keywordCounts StatusCounts

	launchStatus types.Status
	startedAt    time.Time
	endedAt      time.Time

	snap atomic.Pointer[Snapshot]
}

var _ Listener = (*Session)(nil)

// New creates a session. The launch is not opened until the first
// suite-start event arrives (or Open is called explicitly).
func New(cfg Config) (*Session, error) {
	if cfg.Reporter == nil {
		return nil, errors.New("reporter is required")
	}
	if cfg.LaunchName == "" {
		return nil, errors.New("launch name is required")
	}
	if cfg.AbortStatus == "" {
		cfg.AbortStatus = types.StatusFailed
	}
	if !cfg.AbortStatus.IsFinal() {
		return nil, errors.New("abort status must be a terminal status")
	}

	s := &Session{
		cfg:          cfg,
		log:          cfg.Log,
		tracker:      NewTracker(cfg.Reporter, cfg.Log),
		state:        StateUninitialized,
		launchStatus: types.StatusRunning,
	}
	s.publish()
	return s, nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Degraded reports whether any reporting call failed during the run. Local
// results stay valid; the process exits with a distinct code.
func (s *Session) Degraded() bool {
	return s.degraded
}

// Tracker exposes the scope stack, primarily for embedding hosts that want
// to inspect the open chain. Not safe to call concurrently with event
// dispatch; concurrent observers use Snapshot instead.
func (s *Session) Tracker() *Tracker {
	return s.tracker
}

// Snapshot returns the last published view of the session. Safe to call
// from any goroutine.
func (s *Session) Snapshot() Snapshot {
	return *s.snap.Load()
}

func (s *Session) publish() {
	s.snap.Store(&Snapshot{
		State:      s.state,
		Summary:    s.Summary(),
		OpenScopes: s.tracker.Depth(),
	})
}

// Open explicitly opens the launch before any suite event. Calling it is
// optional; the first suite-start opens the launch implicitly.
func (s *Session) Open(ctx context.Context, at time.Time) error {
	defer s.publish()
	if s.state == StateClosed {
		return NewSessionClosedError("open")
	}
	if s.state == StateOpen {
		return nil
	}

	scope := Scope{
		Kind:      types.KindLaunch,
		Name:      s.cfg.LaunchName,
		Doc:       s.cfg.LaunchDoc,
		Tags:      s.cfg.LaunchTags,
		StartTime: at,
	}
	if s.cfg.LaunchID != "" {
		s.tracker.AdoptLaunch(scope, s.cfg.LaunchID)
	} else {
		_, err := s.tracker.Push(ctx, scope)
		s.noteReporting(err)
	}
	s.state = StateOpen
	s.startedAt = s.tracker.Current().StartTime
	s.log.Info().Str("launch", s.cfg.LaunchName).Stringer("launch_id", s.tracker.LaunchID()).Msg("launch opened")
	return nil
}

// StartSuite handles a suite-start event, opening the launch first if this
// is the initial suite of the run.
func (s *Session) StartSuite(ctx context.Context, ev events.Event) error {
	defer s.publish()
	if err := s.Open(ctx, ev.Timestamp); err != nil {
		return err
	}
	_, err := s.tracker.Push(ctx, Scope{
		Kind:      types.KindSuite,
		Name:      ev.Name,
		Doc:       ev.Doc,
		Tags:      ev.Tags,
		StartTime: ev.Timestamp,
	})
	s.noteReporting(err)
	s.suiteDepth++
	return nil
}

// EndSuite handles a suite-end event. When the last top-level suite closes,
// the launch is finished and the session transitions to CLOSED.
func (s *Session) EndSuite(ctx context.Context, ev events.Event) error {
	defer s.publish()
	if s.state == StateClosed {
		return NewSessionClosedError(string(ev.Action))
	}
	status, err := s.pop(ctx, types.KindSuite, ev)
	if err != nil {
		return err
	}
	s.suiteCounts.add(status)
	s.suiteDepth--

	if s.suiteDepth == 0 {
		return s.closeLaunch(ctx, ev.Timestamp)
	}
	return nil
}

// StartTest handles a test-start event.
func (s *Session) StartTest(ctx context.Context, ev events.Event) error {
	defer s.publish()
	if s.state == StateClosed {
		return NewSessionClosedError(string(ev.Action))
	}
	_, err := s.tracker.Push(ctx, Scope{
		Kind:      types.KindTest,
		Name:      ev.Name,
		Doc:       ev.Doc,
		Tags:      ev.Tags,
		StartTime: ev.Timestamp,
	})
	s.noteReporting(err)
	return nil
}

// EndTest handles a test-end event.
func (s *Session) EndTest(ctx context.Context, ev events.Event) error {
	defer s.publish()
	if s.state == StateClosed {
		return NewSessionClosedError(string(ev.Action))
	}
	status, err := s.pop(ctx, types.KindTest, ev)
	if err != nil {
		return err
	}
	s.testCounts.add(status)
	return nil
}

// StartKeyword handles a keyword-start event. Keywords nest recursively
// with no depth limit.
func (s *Session) StartKeyword(ctx context.Context, ev events.Event) error {
	defer s.publish()
	if s.state == StateClosed {
		return NewSessionClosedError(string(ev.Action))
	}
	_, err := s.tracker.Push(ctx, Scope{
		Kind:      types.KindKeyword,
		Name:      ev.DisplayName(),
		Doc:       ev.Doc,
		Tags:      ev.Tags,
		Fixture:   ev.Fixture(),
		StartTime: ev.Timestamp,
	})
	s.noteReporting(err)
	return nil
}

// EndKeyword handles a keyword-end event.
func (s *Session) EndKeyword(ctx context.Context, ev events.Event) error {
	defer s.publish()
	if s.state == StateClosed {
		return NewSessionClosedError(string(ev.Action))
	}
	status, err := s.pop(ctx, types.KindKeyword, ev)
	if err != nil {
		return err
	}
	s.keywordCounts.add(status)
	return nil
}

// LogMessage attaches a log entry to the innermost open scope. A message
// arriving before any suite is attached to the launch if it is open, and
// otherwise dropped with a warning.
func (s *Session) LogMessage(ctx context.Context, ev events.Event) error {
	defer s.publish()
	if s.state == StateClosed {
		return NewSessionClosedError(string(ev.Action))
	}

	if s.tracker.Current() == nil {
		s.droppedLogs++
		s.log.Warn().Str("message", ev.Message).Msg("dropping log message, launch not open")
		return nil
	}

	message := ev.Message
	var attachment *types.Attachment
	if s.cfg.Formatter != nil {
		var err error
		message, attachment, err = s.cfg.Formatter.Format(ev.Message)
		if err != nil {
			s.log.Warn().Err(err).Msg("could not resolve log attachment")
		}
	}

	err := s.tracker.AttachLog(ctx, message, types.MapRunnerLevel(ev.Level), ev.Timestamp, attachment)
	s.noteReporting(err)
	return nil
}

// Abort force-closes every open frame top-to-bottom with the configured
// abort status, then finishes the launch. Used on signal/early termination
// so the backend is not left with scopes running forever.
func (s *Session) Abort(ctx context.Context) error {
	defer s.publish()
	if s.state != StateOpen {
		return nil
	}
	s.log.Warn().Int("open_frames", s.tracker.Depth()).Msg("aborting run, force-closing open scopes")

	now := time.Now()
	for {
		frame := s.tracker.Current()
		if frame == nil || frame.Kind == types.KindLaunch {
			break
		}
		status, err := s.tracker.Pop(ctx, frame.Kind, s.cfg.AbortStatus, now)
		if IsStackUnderflow(err) {
			return err
		}
		s.noteReporting(err)
		switch frame.Kind {
		case types.KindSuite:
			s.suiteCounts.add(status)
			s.suiteDepth--
		case types.KindTest:
			s.testCounts.add(status)
		case types.KindKeyword:
			s.keywordCounts.add(status)
		}
	}
	return s.closeLaunch(ctx, now)
}

// Close finalizes the session at the end of the event stream. A still-open
// session means the stream was truncated mid-run; the remaining frames are
// force-closed as an abort.
func (s *Session) Close(ctx context.Context) error {
	defer s.publish()
	switch s.state {
	case StateClosed, StateUninitialized:
		return nil
	default:
		if s.tracker.Depth() > 1 {
			s.log.Warn().Msg("event stream ended with open scopes")
			return s.Abort(ctx)
		}
		return s.closeLaunch(ctx, time.Now())
	}
}

// Summary returns the final accounting for the run.
func (s *Session) Summary() Summary {
	launchID, _ := s.tracker.LaunchID().Value()
	return Summary{
		LaunchStatus: s.launchStatus,
		LaunchID:     launchID,
		StartTime:    s.startedAt,
		EndTime:      s.endedAt,
		Suites:       s.suiteCounts,
		Tests:        s.testCounts,
		Keywords:     s.keywordCounts,
		DroppedLogs:  s.droppedLogs,
		Degraded:     s.degraded,
		Closed:       s.state == StateClosed,
	}
}

func (s *Session) pop(ctx context.Context, kind types.Kind, ev events.Event) (types.Status, error) {
	explicit, err := types.ParseRunnerStatus(ev.Status)
	if err != nil {
		// Malformed outcome; fall back to the rollup of the children.
		s.log.Warn().Str("status", ev.Status).Str("name", ev.Name).Msg("unknown runner status, using child rollup")
		explicit = types.StatusRunning
	}

	// A failure message on the end event is logged on the scope before it
	// closes. Skipped scopes carry their reason at WARN.
	if ev.Message != "" {
		level := types.LevelError
		if explicit == types.StatusSkipped {
			level = types.LevelWarn
		}
		s.noteReporting(s.tracker.AttachLog(ctx, ev.Message, level, ev.Timestamp, nil))
	}

	status, popErr := s.tracker.Pop(ctx, kind, explicit, ev.Timestamp)
	if IsStackUnderflow(popErr) {
		return status, popErr
	}
	s.noteReporting(popErr)
	return status, nil
}

func (s *Session) closeLaunch(ctx context.Context, at time.Time) error {
	status, err := s.tracker.PopLaunch(ctx, at)
	if IsStackUnderflow(err) {
		return err
	}
	s.noteReporting(err)

	s.launchStatus = status
	s.state = StateClosed
	s.endedAt = at
	if s.endedAt.IsZero() {
		s.endedAt = time.Now()
	}
	s.log.Info().Str("status", string(status)).Stringer("launch_id", s.tracker.LaunchID()).Msg("launch finished")
	return nil
}

func (s *Session) noteReporting(err error) {
	if err == nil {
		return
	}
	if IsReportingUnavailable(err) {
		s.degraded = true
		return
	}
	// Anything else coming out of the tracker is a programming error; make
	// it visible instead of silently swallowing.
	s.log.Error().Err(err).Msg("unexpected tracker error")
}
