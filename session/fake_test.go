package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/rp-tools/rp-relay/reporting"
)

// reporterCall is one recorded backend call, flattened for easy assertion.
type reporterCall struct {
	Op     string
	ID     string
	Parent string
	Launch string
	Name   string
	Status string
	Level  string
}

// fakeReporter records calls and hands out deterministic IDs. Individual
// call families can be made to fail to simulate an unreachable backend.
type fakeReporter struct {
	calls  []reporterCall
	nextID int

	failStartLaunch bool
	failStartItem   bool
	failFinish      bool
	failLog         bool
}

var _ reporting.Reporter = (*fakeReporter)(nil)

var errBackendDown = errors.New("connection refused")

func (f *fakeReporter) StartLaunch(_ context.Context, launch reporting.LaunchStart) (string, error) {
	if f.failStartLaunch {
		return "", reporting.NewTransportError("start_launch", errBackendDown)
	}
	id := f.id()
	f.calls = append(f.calls, reporterCall{Op: "start_launch", ID: id, Name: launch.Name})
	return id, nil
}

func (f *fakeReporter) FinishLaunch(_ context.Context, launchID string, finish reporting.LaunchFinish) error {
	if f.failFinish {
		return reporting.NewTransportError("finish_launch", errBackendDown)
	}
	f.calls = append(f.calls, reporterCall{Op: "finish_launch", ID: launchID, Status: string(finish.Status)})
	return nil
}

func (f *fakeReporter) StartItem(_ context.Context, parentID string, item reporting.ItemStart) (string, error) {
	if f.failStartItem {
		return "", reporting.NewTransportError("start_item", errBackendDown)
	}
	id := f.id()
	f.calls = append(f.calls, reporterCall{Op: "start_item", ID: id, Parent: parentID, Launch: item.LaunchID, Name: item.Name})
	return id, nil
}

func (f *fakeReporter) FinishItem(_ context.Context, itemID string, finish reporting.ItemFinish) error {
	if f.failFinish {
		return reporting.NewTransportError("finish_item", errBackendDown)
	}
	f.calls = append(f.calls, reporterCall{Op: "finish_item", ID: itemID, Status: string(finish.Status)})
	return nil
}

func (f *fakeReporter) Log(_ context.Context, itemID string, entry reporting.LogEntry) error {
	if f.failLog {
		return reporting.NewTransportError("log", errBackendDown)
	}
	f.calls = append(f.calls, reporterCall{Op: "log", ID: itemID, Name: entry.Message, Level: string(entry.Level)})
	return nil
}

func (f *fakeReporter) id() string {
	f.nextID++
	return fmt.Sprintf("id-%d", f.nextID)
}

// ops returns the recorded operation names in call order.
func (f *fakeReporter) ops() []string {
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Op
	}
	return out
}
