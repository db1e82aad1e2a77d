package auth

import (
	"context"
	"errors"
	"net/http"
)

// Static errors for err113 compliance.
var (
	ErrStaticCredentials = errors.New("static credentials cannot be refreshed")
	ErrLoginFailed       = errors.New("session login failed")
	ErrNoCredentials     = errors.New("no credentials configured")
)

// Authenticator decorates outgoing requests with credentials and renews
// them on demand. Apply must be cheap; Refresh may perform a network
// handshake and is called by the transport at most once per rejected
// request.
type Authenticator interface {
	// Apply adds the current credentials to the request.
	Apply(ctx context.Context, req *http.Request) error

	// Refresh renews the credentials after a rejection. Authenticators
	// backed by static credentials return ErrStaticCredentials.
	Refresh(ctx context.Context) error
}

// Anonymous sends requests without credentials.
type Anonymous struct{}

// NewAnonymous creates an authenticator that never adds credentials.
func NewAnonymous() *Anonymous {
	return &Anonymous{}
}

// Apply does nothing.
func (a *Anonymous) Apply(ctx context.Context, req *http.Request) error {
	return nil
}

// Refresh reports that there is nothing to renew.
func (a *Anonymous) Refresh(ctx context.Context) error {
	return ErrStaticCredentials
}
