package cloud

import (
	"errors"
	"fmt"
)

// ErrShareNotFound is returned when a requested share name does not resolve.
var ErrShareNotFound = errors.New("NAS not found")

// AuthError reports a failed token exchange. It is fatal for a run.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// InventoryFetchError reports a failed listing call.
type InventoryFetchError struct {
	Resource string
	Err      error
}

func (e *InventoryFetchError) Error() string {
	return fmt.Sprintf("failed to list %s: %v", e.Resource, e.Err)
}

func (e *InventoryFetchError) Unwrap() error { return e.Err }

// HTTPError wraps a non-2xx response (or transport failure) from a mutating call.
// StatusCode is 0 when no response was received.
type HTTPError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *HTTPError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s failed with status %d: %v", e.Op, e.StatusCode, e.Err)
}

func (e *HTTPError) Unwrap() error { return e.Err }
