package session

import (
	"time"

	"github.com/rp-tools/rp-relay/types"
)

// ItemID is the server-assigned identifier of a remote item. A frame whose
// start call failed carries an unlinked ItemID for its whole lifetime; the
// zero value is unlinked. Modeled as an explicit optional rather than a
// sentinel string so that "no remote item" cannot be confused with a real
// identifier.
type ItemID struct {
	value string
	valid bool
}

// LinkedID creates an ItemID holding a server-assigned identifier.
func LinkedID(value string) ItemID {
	return ItemID{value: value, valid: true}
}

// Value returns the identifier and whether it is present.
func (id ItemID) Value() (string, bool) {
	return id.value, id.valid
}

// Valid reports whether the item is linked to a remote identifier.
func (id ItemID) Valid() bool {
	return id.valid
}

func (id ItemID) String() string {
	if !id.valid {
		return "<unlinked>"
	}
	return id.value
}

// Frame is one open execution scope on the stack. The stack exclusively owns
// its frames; once popped, only the finalized status survives, copied into
// the parent's child statuses.
type Frame struct {
	Kind      types.Kind
	LocalID   uint64
	RemoteID  ItemID
	Name      string
	Doc       string
	Tags      []string
	Fixture   types.Fixture
	StartTime time.Time
	Status    types.Status

	children []types.Status
}

// ChildStatuses returns a copy of the finalized statuses of the frame's
// closed children, in close order.
func (f *Frame) ChildStatuses() []types.Status {
	out := make([]types.Status, len(f.children))
	copy(out, f.children)
	return out
}
