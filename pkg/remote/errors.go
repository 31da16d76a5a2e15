package remote

import (
	"fmt"

	"github.com/octohelm/courier/pkg/statuserror"
)

// ErrAuthenticationFailed is returned once a registry keeps rejecting
// requests after a fresh token exchange.
type ErrAuthenticationFailed struct {
	statuserror.Unauthorized

	Endpoint string
	Scope    string
	Reason   error
}

func (e *ErrAuthenticationFailed) Error() string {
	return fmt.Sprintf("authentication against %s failed for scope %q: %v", e.Endpoint, e.Scope, e.Reason)
}

func (e *ErrAuthenticationFailed) Unwrap() error {
	return e.Reason
}

type ErrRegistryFetch struct {
	statuserror.BadGateway

	StatusCode int
	URL        string
}

func (e *ErrRegistryFetch) Error() string {
	return fmt.Sprintf("registry responded %d for %s", e.StatusCode, e.URL)
}
