package cloud

import "context"

// Provider is the remote NAS capability consumed by the retention workflow.
// It decouples the orchestration from the concrete HTTP client so runs can be
// exercised against fakes.
type Provider interface {
	// GetCloudProviderName returns the identifier for this provider.
	GetCloudProviderName() string

	// Authenticate exchanges credentials for a session and binds it to the provider.
	Authenticate(ctx context.Context, creds Credentials) (Session, error)

	// ListShares returns every share visible to the authenticated project.
	ListShares(ctx context.Context) ([]Share, error)

	// ListSnapshots returns every snapshot of the project, across all shares.
	ListSnapshots(ctx context.Context) ([]Snapshot, error)

	// CreateSnapshot issues one create call and returns the response status code.
	CreateSnapshot(ctx context.Context, shareID, displayName string) (int, error)

	// DeleteSnapshots deletes the given snapshots one at a time, in order.
	DeleteSnapshots(ctx context.Context, snapshotIDs []string) error
}
