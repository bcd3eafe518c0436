package openstack

import "github.com/aravindh-murugesan/nas-snapsentry-go/internal/cloud"

type listSharesResponse struct {
	Shares []cloud.Share `json:"shares"`
}

type listSnapshotsResponse struct {
	Snapshots []cloud.Snapshot `json:"snapshots"`
}

// createSnapshotOpts mirrors the provider's create body. Force is the string
// "True" rather than a boolean, which is what the service accepts.
type createSnapshotOpts struct {
	Name        string `json:"name"`
	ShareID     string `json:"share_id"`
	Force       string `json:"force"`
	Description string `json:"description"`
}

type createSnapshotRequest struct {
	Snapshot createSnapshotOpts `json:"snapshot"`
}
