package openstack

import (
	"context"
	"fmt"
	"time"

	"github.com/aravindh-murugesan/nas-snapsentry-go/internal/cloud"
	"golang.org/x/time/rate"
)

// snapshotNameLayout prefixes snapshot names with yymmdd-HH:MM.
const snapshotNameLayout = "060102-15:04"

// ListSnapshots returns the detailed snapshot inventory of the whole project.
// Callers filter by share; one listing serves every share of a run.
func (c *Client) ListSnapshots(ctx context.Context) ([]cloud.Snapshot, error) {
	if err := c.requireSession(); err != nil {
		return nil, &cloud.InventoryFetchError{Resource: "snapshots", Err: err}
	}

	var body listSnapshotsResponse
	if _, err := c.NASClient.Get(ctx, c.NASClient.ServiceURL("snapshots", "detail"), &body, requestOpts()); err != nil {
		return nil, &cloud.InventoryFetchError{Resource: "snapshots", Err: err}
	}

	return body.Snapshots, nil
}

// CreateSnapshot requests a new snapshot of shareID.
//
// Behavior:
//   - Naming: the snapshot is named "<yymmdd-HH:MM>-<displayName>-snapshot" in
//     the client's Location. The name is for operators only and is never parsed back.
//   - Force: set so that shares currently in use can be snapshotted.
//   - Asynchronous: returns as soon as the service accepts the request; it does
//     not wait for the snapshot to become available.
//
// Returns the HTTP status code of the accepted request, or a *cloud.HTTPError.
func (c *Client) CreateSnapshot(ctx context.Context, shareID, displayName string) (int, error) {
	if err := c.requireSession(); err != nil {
		return 0, wrapHTTPError("CreateSnapshot", err)
	}

	body := createSnapshotRequest{
		Snapshot: createSnapshotOpts{
			Name:        c.snapshotName(displayName),
			ShareID:     shareID,
			Force:       "True",
			Description: "",
		},
	}

	resp, err := c.NASClient.Post(ctx, c.NASClient.ServiceURL("snapshots"), body, nil, requestOpts())
	if err != nil {
		return statusCodeOf(err), wrapHTTPError("CreateSnapshot", err)
	}

	c.logger().Debug("Snapshot create accepted", "share_id", shareID, "snapshot_name", body.Snapshot.Name, "status", resp.StatusCode)
	return resp.StatusCode, nil
}

// DeleteSnapshots removes the given snapshots one by one.
//
// Behavior:
//   - Sequential: calls are never issued in parallel.
//   - Paced: after each completed call the client pauses for DeleteInterval
//     before issuing the next one, to respect the service's rate limit. The
//     first call is immediate and nothing waits after the last one.
//   - Fail fast: the first failed call stops the sequence. Snapshots deleted
//     before the failure stay deleted.
func (c *Client) DeleteSnapshots(ctx context.Context, snapshotIDs []string) error {
	if err := c.requireSession(); err != nil {
		return wrapHTTPError("DeleteSnapshot", err)
	}

	for i, id := range snapshotIDs {
		if i > 0 {
			if err := c.pauseBetweenDeletes(ctx); err != nil {
				return fmt.Errorf("deleting snapshot %s: %w", id, err)
			}
		}

		if _, err := c.NASClient.Delete(ctx, c.NASClient.ServiceURL("snapshots", id), requestOpts()); err != nil {
			return wrapHTTPError(fmt.Sprintf("DeleteSnapshot %s", id), err)
		}

		c.logger().Debug("Snapshot delete accepted", "snapshot_id", id, "progress", fmt.Sprintf("%d/%d", i+1, len(snapshotIDs)))
	}

	return nil
}

// pauseBetweenDeletes blocks for one DeleteInterval counted from now.
// A fresh limiter has its single token spent up front, so Wait returns after a
// full interval, or fails early once ctx cannot last that long.
func (c *Client) pauseBetweenDeletes(ctx context.Context) error {
	if c.DeleteInterval <= 0 {
		return ctx.Err()
	}

	limiter := rate.NewLimiter(rate.Every(c.DeleteInterval), 1)
	limiter.Allow()
	return limiter.Wait(ctx)
}

func (c *Client) snapshotName(displayName string) string {
	now := c.now
	if now == nil {
		now = time.Now
	}
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return fmt.Sprintf("%s-%s-snapshot", now().In(loc).Format(snapshotNameLayout), displayName)
}
