package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/fivetwenty-io/jira-client/internal/constants"
)

// SessionAuthenticator logs in against the session endpoint and replays the
// returned cookies on every request. A 401 triggers one re-login through
// Refresh; requests arriving during the handshake block until it finishes
// rather than racing it with stale cookies.
type SessionAuthenticator struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client

	mu       sync.Mutex
	cookies  []*http.Cookie
	loggedIn bool
}

// NewSessionAuthenticator creates a session-cookie authenticator. The first
// request performs the login lazily.
func NewSessionAuthenticator(baseURL, username, password string) *SessionAuthenticator {
	return &SessionAuthenticator{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		username: username,
		password: password,
		httpClient: &http.Client{
			Timeout: constants.ShortHTTPTimeout,
		},
	}
}

// Apply attaches the session cookies, logging in first when no session
// exists yet.
func (a *SessionAuthenticator) Apply(ctx context.Context, req *http.Request) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.loggedIn {
		err := a.loginLocked(ctx)
		if err != nil {
			return err
		}
	}

	for _, cookie := range a.cookies {
		req.AddCookie(cookie)
	}

	return nil
}

// Refresh discards the session and logs in again.
func (a *SessionAuthenticator) Refresh(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.loggedIn = false
	a.cookies = nil

	return a.loginLocked(ctx)
}

// loginLocked performs the session handshake. Caller holds the lock, so
// concurrent requests wait for one handshake instead of starting their own.
func (a *SessionAuthenticator) loginLocked(ctx context.Context) error {
	payload, err := json.Marshal(map[string]string{
		"username": a.username,
		"password": a.password,
	})
	if err != nil {
		return fmt.Errorf("encoding login payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+constants.SessionAuthPath, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building login request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("session login: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrLoginFailed, resp.StatusCode)
	}

	cookies := resp.Cookies()
	if len(cookies) == 0 {
		return fmt.Errorf("%w: no session cookie in response", ErrLoginFailed)
	}

	a.cookies = cookies
	a.loggedIn = true

	return nil
}
