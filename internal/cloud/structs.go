package cloud

// Credentials are the per-invocation user credentials exchanged for a session.
type Credentials struct {
	Username string
	Password string
}

// Session is the outcome of a successful authentication.
type Session struct {
	// Token is the bearer token attached to every subsequent call.
	Token string
	// ProjectID scopes all NAS endpoints (/nas/{project}/...).
	ProjectID string
}

// Share is a managed network file-share as listed by the NAS service.
// This system never creates or deletes shares, it only reads their identifiers.
type Share struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
	Size   int    `json:"size,omitempty"`
}

// Snapshot is a point-in-time copy of a share.
//
// CreatedAt is kept exactly as the service returned it. The service omits the
// UTC offset, so the value only becomes an instant once the retention engine
// interprets it in the reference time zone.
type Snapshot struct {
	ID          string `json:"id"`
	ShareID     string `json:"share_id"`
	CreatedAt   string `json:"created_at"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status,omitempty"`
	Size        int    `json:"size,omitempty"`
}

// FindShareID resolves a share name to its identifier.
// Names are not guaranteed unique; the first match in listing order wins.
func FindShareID(shares []Share, name string) (string, error) {
	for _, share := range shares {
		if share.Name == name {
			return share.ID, nil
		}
	}
	return "", ErrShareNotFound
}

// FilterSnapshotsByShare returns the snapshots owned by shareID, preserving order.
func FilterSnapshotsByShare(snapshots []Snapshot, shareID string) []Snapshot {
	owned := make([]Snapshot, 0, len(snapshots))
	for _, snap := range snapshots {
		if snap.ShareID == shareID {
			owned = append(owned, snap)
		}
	}
	return owned
}
