package retention

import (
	"fmt"
	"strings"
)

// Action is the kind of work a Decision asks the caller to perform.
type Action int

const (
	// ActionNoAction means the share holds enough snapshots and none has expired.
	ActionNoAction Action = iota
	// ActionCreateSnapshot means the share holds fewer than MinimumSnapshots.
	ActionCreateSnapshot
	// ActionDeleteSnapshots means at least one snapshot is older than the window.
	ActionDeleteSnapshots
)

func (a Action) String() string {
	switch a {
	case ActionCreateSnapshot:
		return "create"
	case ActionDeleteSnapshots:
		return "delete"
	default:
		return "none"
	}
}

// Decision is the engine's verdict for one share.
// SnapshotIDs is only populated for ActionDeleteSnapshots.
type Decision struct {
	Action      Action
	SnapshotIDs []string
	Reason      string
}

func (d Decision) String() string {
	if d.Action == ActionDeleteSnapshots {
		return fmt.Sprintf("%s [%s]", d.Action, strings.Join(d.SnapshotIDs, ", "))
	}
	return d.Action.String()
}

// ParseError reports a created_at value that could not be interpreted.
// It aborts the decision for the share that owns the snapshot only.
type ParseError struct {
	SnapshotID string
	Value      string
	Err        error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("snapshot %s: invalid created_at %q: %v", e.SnapshotID, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
