package reporting

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Discard is a Reporter that accepts every call and hands out locally
// generated identifiers. It backs dry-run mode, where the full session state
// machine runs without a backend.
type Discard struct {
	nextID atomic.Uint64
}

var _ Reporter = (*Discard)(nil)

// NewDiscard creates a discarding reporter.
func NewDiscard() *Discard {
	return &Discard{}
}

func (d *Discard) StartLaunch(_ context.Context, _ LaunchStart) (string, error) {
	return d.id("launch"), nil
}

func (d *Discard) FinishLaunch(_ context.Context, _ string, _ LaunchFinish) error {
	return nil
}

func (d *Discard) StartItem(_ context.Context, _ string, _ ItemStart) (string, error) {
	return d.id("item"), nil
}

func (d *Discard) FinishItem(_ context.Context, _ string, _ ItemFinish) error {
	return nil
}

func (d *Discard) Log(_ context.Context, _ string, _ LogEntry) error {
	return nil
}

func (d *Discard) id(prefix string) string {
	return fmt.Sprintf("dry-run-%s-%d", prefix, d.nextID.Add(1))
}
