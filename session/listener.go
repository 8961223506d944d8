package session

import (
	"context"

	"github.com/rp-tools/rp-relay/events"
)

// Listener is the fixed callback surface of the runner protocol: one method
// per lifecycle event kind, invoked synchronously in execution order.
// Session implements it; embedding hosts can wrap it to intercept events.
type Listener interface {
	StartSuite(ctx context.Context, ev events.Event) error
	EndSuite(ctx context.Context, ev events.Event) error
	StartTest(ctx context.Context, ev events.Event) error
	EndTest(ctx context.Context, ev events.Event) error
	StartKeyword(ctx context.Context, ev events.Event) error
	EndKeyword(ctx context.Context, ev events.Event) error
	LogMessage(ctx context.Context, ev events.Event) error
	Close(ctx context.Context) error
}

// Dispatch routes a decoded event to the matching listener method. Unknown
// actions were already filtered by the decoder; if one shows up anyway it is
// ignored here rather than failing the run.
func Dispatch(ctx context.Context, l Listener, ev events.Event) error {
	switch ev.Action {
	case events.ActionSuiteStart:
		return l.StartSuite(ctx, ev)
	case events.ActionSuiteEnd:
		return l.EndSuite(ctx, ev)
	case events.ActionTestStart:
		return l.StartTest(ctx, ev)
	case events.ActionTestEnd:
		return l.EndTest(ctx, ev)
	case events.ActionKeywordStart:
		return l.StartKeyword(ctx, ev)
	case events.ActionKeywordEnd:
		return l.EndKeyword(ctx, ev)
	case events.ActionLogMessage:
		return l.LogMessage(ctx, ev)
	case events.ActionRunEnd:
		return l.Close(ctx)
	default:
		return nil
	}
}
