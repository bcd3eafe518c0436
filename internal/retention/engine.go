package retention

import (
	"fmt"
	"time"

	"github.com/aravindh-murugesan/nas-snapsentry-go/internal/cloud"
)

const (
	// DefaultWindow is the maximum age a snapshot may reach before it expires.
	DefaultWindow = 14 * 24 * time.Hour

	// MinimumSnapshots is the number of snapshots a share must hold before any pruning happens.
	MinimumSnapshots = 2

	// DefaultTimeZone is the zone the NAS service's naive created_at values are written in.
	DefaultTimeZone = "Asia/Seoul"
)

// Engine implements the two-phase retention policy for a single share.
//
// Behavior:
//   - Build up: a share with fewer than MinimumSnapshots snapshots always gets a
//     new snapshot and is never pruned, so pruning cannot start from an empty set.
//   - Prune: once the minimum is reached, every snapshot older than Window is
//     selected for deletion in a single pass, even if that empties the share.
//     The next run re-enters the build up phase.
//
// Create and delete are never decided together.
type Engine struct {
	// Window is the retention window. Defaults to DefaultWindow.
	Window time.Duration

	// Location is the zone used to interpret naive created_at values.
	Location *time.Location
}

// NewEngine builds an engine for the given reference time zone with the fixed
// retention window. An empty zone falls back to DefaultTimeZone.
func NewEngine(timezone string) (*Engine, error) {
	_, loc, err := helperNormalizeTimezone(timezone)
	if err != nil {
		return nil, err
	}

	return &Engine{
		Window:   DefaultWindow,
		Location: loc,
	}, nil
}

// Decide evaluates the snapshots of exactly one share against now.
//
// The caller is responsible for filtering the inventory by share. Decide has no
// side effects and returns the same decision for the same inputs.
//
// Returns a *ParseError if a created_at value cannot be interpreted.
func (e *Engine) Decide(snapshots []cloud.Snapshot, now time.Time) (Decision, error) {
	if len(snapshots) < MinimumSnapshots {
		return Decision{
			Action: ActionCreateSnapshot,
			Reason: fmt.Sprintf("Share holds %d snapshot(s), fewer than the required %d", len(snapshots), MinimumSnapshots),
		}, nil
	}

	loc := e.Location
	if loc == nil {
		loc = time.UTC
	}

	window := e.Window
	if window <= 0 {
		window = DefaultWindow
	}

	cutoff := now.UTC().Add(-window)

	var expired []string
	for _, snap := range snapshots {
		createdAt, err := helperParseCreatedAt(snap.CreatedAt, loc)
		if err != nil {
			return Decision{}, &ParseError{SnapshotID: snap.ID, Value: snap.CreatedAt, Err: err}
		}

		// Strictly older than the window. A snapshot exactly Window old is kept.
		if createdAt.Before(cutoff) {
			expired = append(expired, snap.ID)
		}
	}

	if len(expired) == 0 {
		return Decision{
			Action: ActionNoAction,
			Reason: fmt.Sprintf("No snapshot created before %s", cutoff.Format(time.RFC3339)),
		}, nil
	}

	return Decision{
		Action:      ActionDeleteSnapshots,
		SnapshotIDs: expired,
		Reason:      fmt.Sprintf("%d snapshot(s) created before %s", len(expired), cutoff.Format(time.RFC3339)),
	}, nil
}
