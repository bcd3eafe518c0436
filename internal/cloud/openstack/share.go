package openstack

import (
	"context"

	"github.com/aravindh-murugesan/nas-snapsentry-go/internal/cloud"
)

// ListShares returns every share visible to the authenticated project,
// in the order the service lists them.
func (c *Client) ListShares(ctx context.Context) ([]cloud.Share, error) {
	if err := c.requireSession(); err != nil {
		return nil, &cloud.InventoryFetchError{Resource: "shares", Err: err}
	}

	var body listSharesResponse
	if _, err := c.NASClient.Get(ctx, c.NASClient.ServiceURL("shares"), &body, requestOpts()); err != nil {
		return nil, &cloud.InventoryFetchError{Resource: "shares", Err: err}
	}

	return body.Shares, nil
}

// FindShareID resolves a share name to its identifier with one listing call.
// Returns cloud.ErrShareNotFound when nothing matches.
func (c *Client) FindShareID(ctx context.Context, name string) (string, error) {
	shares, err := c.ListShares(ctx)
	if err != nil {
		return "", err
	}
	return cloud.FindShareID(shares, name)
}
