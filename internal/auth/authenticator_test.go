package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnonymous(t *testing.T) {
	t.Parallel()

	authn := NewAnonymous()
	req := httptest.NewRequest(http.MethodGet, "https://tracker.example.com/rest/api/2/serverInfo", nil)

	err := authn.Apply(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, req.Header.Get("Authorization"))

	require.ErrorIs(t, authn.Refresh(context.Background()), ErrStaticCredentials)
}

func TestBasicAuthenticator(t *testing.T) {
	t.Parallel()

	authn := NewBasicAuthenticator("fred", "api-token-value")
	req := httptest.NewRequest(http.MethodGet, "https://tracker.example.com/rest/api/2/myself", nil)

	err := authn.Apply(context.Background(), req)
	require.NoError(t, err)

	username, password, ok := req.BasicAuth()
	require.True(t, ok)
	assert.Equal(t, "fred", username)
	assert.Equal(t, "api-token-value", password)

	require.ErrorIs(t, authn.Refresh(context.Background()), ErrStaticCredentials)
}

func TestStaticTokenAuthenticator(t *testing.T) {
	t.Parallel()

	authn := NewStaticTokenAuthenticator("pat-token")
	req := httptest.NewRequest(http.MethodGet, "https://tracker.example.com/rest/api/2/myself", nil)

	err := authn.Apply(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Bearer pat-token", req.Header.Get("Authorization"))

	require.ErrorIs(t, authn.Refresh(context.Background()), ErrStaticCredentials)
}

func newSessionServer(logins *int32, status int, withCookie bool) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/rest/auth/1/session" {
			writer.WriteHeader(http.StatusNotFound)

			return
		}

		atomic.AddInt32(logins, 1)

		var payload map[string]string

		_ = json.NewDecoder(request.Body).Decode(&payload)

		if payload["username"] != "fred" || payload["password"] != "secret" {
			writer.WriteHeader(http.StatusUnauthorized)

			return
		}

		if withCookie {
			http.SetCookie(writer, &http.Cookie{Name: "JSESSIONID", Value: "session-value"})
		}

		writer.WriteHeader(status)
	}))
}

func TestSessionAuthenticator_LazyLogin(t *testing.T) {
	t.Parallel()

	var logins int32

	server := newSessionServer(&logins, http.StatusOK, true)
	defer server.Close()

	authn := NewSessionAuthenticator(server.URL, "fred", "secret")

	req := httptest.NewRequest(http.MethodGet, server.URL+"/rest/api/2/myself", nil)

	err := authn.Apply(context.Background(), req)
	require.NoError(t, err)

	cookie, err := req.Cookie("JSESSIONID")
	require.NoError(t, err)
	assert.Equal(t, "session-value", cookie.Value)

	// The session is reused across requests.
	req2 := httptest.NewRequest(http.MethodGet, server.URL+"/rest/api/2/myself", nil)

	err = authn.Apply(context.Background(), req2)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&logins))
}

func TestSessionAuthenticator_ConcurrentLogin(t *testing.T) {
	t.Parallel()

	var logins int32

	server := newSessionServer(&logins, http.StatusOK, true)
	defer server.Close()

	authn := NewSessionAuthenticator(server.URL, "fred", "secret")

	const workers = 8

	var wg sync.WaitGroup

	errs := make([]error, workers)

	for i := range workers {
		wg.Add(1)

		go func(idx int) {
			defer wg.Done()

			req := httptest.NewRequest(http.MethodGet, server.URL+"/rest/api/2/myself", nil)
			errs[idx] = authn.Apply(context.Background(), req)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	// Concurrent first requests share one handshake.
	assert.Equal(t, int32(1), atomic.LoadInt32(&logins))
}

func TestSessionAuthenticator_RefreshReplacesSession(t *testing.T) {
	t.Parallel()

	var logins int32

	server := newSessionServer(&logins, http.StatusOK, true)
	defer server.Close()

	authn := NewSessionAuthenticator(server.URL, "fred", "secret")

	req := httptest.NewRequest(http.MethodGet, server.URL+"/rest/api/2/myself", nil)
	require.NoError(t, authn.Apply(context.Background(), req))

	err := authn.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&logins))
}

func TestSessionAuthenticator_LoginRejected(t *testing.T) {
	t.Parallel()

	var logins int32

	server := newSessionServer(&logins, http.StatusOK, true)
	defer server.Close()

	authn := NewSessionAuthenticator(server.URL, "fred", "wrong")

	req := httptest.NewRequest(http.MethodGet, server.URL+"/rest/api/2/myself", nil)

	err := authn.Apply(context.Background(), req)
	require.ErrorIs(t, err, ErrLoginFailed)
	assert.Empty(t, req.Cookies())
}

func TestSessionAuthenticator_MissingCookie(t *testing.T) {
	t.Parallel()

	var logins int32

	server := newSessionServer(&logins, http.StatusOK, false)
	defer server.Close()

	authn := NewSessionAuthenticator(server.URL, "fred", "secret")

	req := httptest.NewRequest(http.MethodGet, server.URL+"/rest/api/2/myself", nil)

	err := authn.Apply(context.Background(), req)
	require.ErrorIs(t, err, ErrLoginFailed)
	assert.Contains(t, err.Error(), "no session cookie")
}
