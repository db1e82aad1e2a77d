package auth

import (
	"context"
	"net/http"
)

// BasicAuthenticator sends HTTP basic credentials. The password slot carries
// either an account password or a cloud API token; the wire format is the
// same.
type BasicAuthenticator struct {
	username string
	password string
}

// NewBasicAuthenticator creates a basic-auth authenticator.
func NewBasicAuthenticator(username, password string) *BasicAuthenticator {
	return &BasicAuthenticator{username: username, password: password}
}

// Apply sets the Authorization header.
func (a *BasicAuthenticator) Apply(ctx context.Context, req *http.Request) error {
	req.SetBasicAuth(a.username, a.password)

	return nil
}

// Refresh reports that basic credentials cannot be renewed. A 401 under
// basic auth means the credentials are simply wrong.
func (a *BasicAuthenticator) Refresh(ctx context.Context) error {
	return ErrStaticCredentials
}

// StaticTokenAuthenticator sends a fixed Bearer token.
type StaticTokenAuthenticator struct {
	token string
}

// NewStaticTokenAuthenticator creates an authenticator around a fixed token.
func NewStaticTokenAuthenticator(token string) *StaticTokenAuthenticator {
	return &StaticTokenAuthenticator{token: token}
}

// Apply sets the Authorization header.
func (a *StaticTokenAuthenticator) Apply(ctx context.Context, req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+a.token)

	return nil
}

// Refresh reports that a static token cannot be renewed.
func (a *StaticTokenAuthenticator) Refresh(ctx context.Context) error {
	return ErrStaticCredentials
}
