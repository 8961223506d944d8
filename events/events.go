// Package events defines the lifecycle event stream emitted by a test
// runner and the decoder that reads it. Events arrive as NDJSON, one object
// per line, in the exact order the runner executed: starts and ends are
// well-nested, log messages belong to the innermost open scope.
package events

import (
	"strings"
	"time"

	"github.com/rp-tools/rp-relay/types"
)

// Action discriminates the lifecycle event types a runner emits.
type Action string

const (
	ActionSuiteStart   Action = "suite_start"
	ActionSuiteEnd     Action = "suite_end"
	ActionTestStart    Action = "test_start"
	ActionTestEnd      Action = "test_end"
	ActionKeywordStart Action = "keyword_start"
	ActionKeywordEnd   Action = "keyword_end"
	ActionLogMessage   Action = "log_message"
	ActionRunEnd       Action = "run_end"
)

// maxKeywordNameLength caps the rendered keyword display name so that very
// long argument lists do not blow up the backend UI.
const maxKeywordNameLength = 256

// Event is one lifecycle notification from the runner. Fields are populated
// depending on the action: start events carry name/doc/tags, end events
// additionally carry status and an optional failure message, log events
// carry message/level.
type Event struct {
	Action    Action    `json:"event"`
	Name      string    `json:"name,omitempty"`
	LongName  string    `json:"longname,omitempty"`
	Doc       string    `json:"doc,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`

	// End events only.
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`

	// Log events only.
	Level string `json:"level,omitempty"`

	// Keyword events only.
	KeywordType string   `json:"kwtype,omitempty"`
	Args        []string `json:"args,omitempty"`
	Assign      []string `json:"assign,omitempty"`
}

// known reports whether the action is part of the runner protocol.
func (a Action) known() bool {
	switch a {
	case ActionSuiteStart, ActionSuiteEnd, ActionTestStart, ActionTestEnd,
		ActionKeywordStart, ActionKeywordEnd, ActionLogMessage, ActionRunEnd:
		return true
	}
	return false
}

// Normalize fills safe defaults for missing fields so that a sloppy runner
// shim cannot fail the run: a zero timestamp becomes now, a nil tag list
// becomes empty, an empty log level becomes INFO.
func (e *Event) Normalize(now func() time.Time) {
	if e.Timestamp.IsZero() {
		e.Timestamp = now()
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
	if e.Action == ActionLogMessage && e.Level == "" {
		e.Level = "INFO"
	}
}

// DisplayName renders the name shown on the backend. For keywords the
// assignment and argument list are folded in, "result = Keyword (arg1, arg2)",
// truncated to a fixed length; other scopes use the plain name.
func (e *Event) DisplayName() string {
	if e.Action != ActionKeywordStart && e.Action != ActionKeywordEnd {
		return e.Name
	}
	var b strings.Builder
	if len(e.Assign) > 0 {
		b.WriteString(strings.Join(e.Assign, ", "))
		b.WriteString(" = ")
	}
	b.WriteString(e.Name)
	if len(e.Args) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(e.Args, ", "))
		b.WriteString(")")
	}
	name := b.String()
	if runes := []rune(name); len(runes) > maxKeywordNameLength {
		name = string(runes[:maxKeywordNameLength])
	}
	return name
}

// Fixture returns the keyword fixture classification for keyword events.
func (e *Event) Fixture() types.Fixture {
	return types.ParseFixture(e.KeywordType)
}
