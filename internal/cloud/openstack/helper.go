package openstack

import (
	"errors"
	"net/http"

	"github.com/aravindh-murugesan/nas-snapsentry-go/internal/cloud"
	"github.com/gophercloud/gophercloud/v2"
)

// successCodes is every 2xx status the NAS service may answer with.
// Anything else is a hard failure; there is no retry.
var successCodes = []int{
	http.StatusOK,
	http.StatusCreated,
	http.StatusAccepted,
	http.StatusNonAuthoritativeInfo,
	http.StatusNoContent,
}

func requestOpts() *gophercloud.RequestOpts {
	return &gophercloud.RequestOpts{OkCodes: successCodes}
}

// errNoSession is returned when a NAS call is attempted before Authenticate.
var errNoSession = errors.New("no NAS session: authenticate first")

func (c *Client) requireSession() error {
	if c.NASClient == nil || c.projectID == "" {
		return errNoSession
	}
	return nil
}

// statusCodeOf extracts the HTTP status from a Gophercloud response error.
// It returns 0 for transport level failures (DNS, connection reset).
func statusCodeOf(err error) int {
	var gopherErrors gophercloud.ErrUnexpectedResponseCode
	if errors.As(err, &gopherErrors) {
		return gopherErrors.Actual
	}
	return 0
}

// wrapHTTPError converts any failed mutating call into a *cloud.HTTPError.
func wrapHTTPError(op string, err error) error {
	return &cloud.HTTPError{
		Op:         op,
		StatusCode: statusCodeOf(err),
		Err:        err,
	}
}
