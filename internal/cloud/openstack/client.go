package openstack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aravindh-murugesan/nas-snapsentry-go/internal/cloud"
	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack/identity/v3/tokens"
)

// DefaultDeleteInterval is the pause between the end of one delete call and the
// start of the next, required by the NAS service's rate limit.
const DefaultDeleteInterval = time.Second

// Client manages the session and service clients for the OpenStack-compatible
// NAS (Manila) API of the provider. Identity is Keystone v3; shares and snapshots
// live under {BaseURL}/nas/{project}/.
type Client struct {
	// BaseURL is the API root, e.g. https://api.ucloudbiz.olleh.com/gd1
	BaseURL string
	// DomainID scopes both the user and the project during authentication.
	DomainID string
	// Location is used to timestamp snapshot names for operators.
	Location *time.Location
	// DeleteInterval is the pause after a completed delete call before the next one.
	DeleteInterval time.Duration
	// HTTPClient optionally replaces the default transport.
	HTTPClient *http.Client
	// Logger receives request level debug records. Defaults to slog.Default().
	Logger *slog.Logger

	// Internal service clients
	IdentityClient *gophercloud.ServiceClient
	NASClient      *gophercloud.ServiceClient

	provider  *gophercloud.ProviderClient
	projectID string
	now       func() time.Time
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// GetCloudProviderName returns the identifier for this provider.
func (c *Client) GetCloudProviderName() string {
	return "openstack-nas"
}

// NewClient prepares the provider and the identity service client.
// It performs no network calls; the session is established by Authenticate.
func (c *Client) NewClient() error {
	c.logger().Debug("Initializing NAS client", "base_url", c.BaseURL)

	base := strings.TrimRight(c.BaseURL, "/")
	if base == "" {
		return errors.New("NAS base URL is required")
	}

	provider := new(gophercloud.ProviderClient)
	provider.UseTokenLock()
	provider.UserAgent.Prepend("nas-snapsentry")
	if c.HTTPClient != nil {
		provider.HTTPClient = *c.HTTPClient
	}

	if c.DomainID == "" {
		c.DomainID = "default"
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.now == nil {
		c.now = time.Now
	}

	c.provider = provider
	c.IdentityClient = &gophercloud.ServiceClient{
		ProviderClient: provider,
		Endpoint:       gophercloud.NormalizeURL(base + "/identity"),
		Type:           "identity",
	}

	return nil
}

// Authenticate exchanges a username and password for a project scoped token.
//
// Behavior:
//   - Scope: the project is looked up by name, which equals the user name on this
//     provider, inside DomainID.
//   - Binding: on success the token is attached to every later call and the NAS
//     service client is rooted at /nas/{project}/.
//
// Returns a *cloud.AuthError on any failure.
func (c *Client) Authenticate(ctx context.Context, creds cloud.Credentials) (cloud.Session, error) {
	if c.provider == nil {
		if err := c.NewClient(); err != nil {
			return cloud.Session{}, &cloud.AuthError{Err: err}
		}
	}

	opts := tokens.AuthOptions{
		Username: creds.Username,
		Password: creds.Password,
		DomainID: c.DomainID,
		Scope: tokens.Scope{
			ProjectName: creds.Username,
			DomainID:    c.DomainID,
		},
	}

	result := tokens.Create(ctx, c.IdentityClient, &opts)
	if result.Err != nil {
		return cloud.Session{}, &cloud.AuthError{Err: result.Err}
	}

	tokenID, err := result.ExtractTokenID()
	if err != nil {
		return cloud.Session{}, &cloud.AuthError{Err: err}
	}
	if tokenID == "" {
		return cloud.Session{}, &cloud.AuthError{Err: errors.New("identity service returned no X-Subject-Token")}
	}

	project, err := result.ExtractProject()
	if err != nil {
		return cloud.Session{}, &cloud.AuthError{Err: err}
	}
	if project == nil || project.ID == "" {
		return cloud.Session{}, &cloud.AuthError{Err: errors.New("token is not scoped to a project")}
	}

	c.provider.SetToken(tokenID)
	c.projectID = project.ID
	c.NASClient = &gophercloud.ServiceClient{
		ProviderClient: c.provider,
		Endpoint:       gophercloud.NormalizeURL(fmt.Sprintf("%s/nas/%s", strings.TrimRight(c.BaseURL, "/"), project.ID)),
		Type:           "sharev2",
	}

	c.logger().Debug("NAS session established", "project_id", project.ID)
	return cloud.Session{Token: tokenID, ProjectID: project.ID}, nil
}
