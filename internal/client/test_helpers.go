package client

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/jira-client/pkg/jira"
)

// newTestClient builds a facade against a test server without credentials.
func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	client, err := New(&jira.Config{BaseURL: baseURL})
	require.NoError(t, err)

	return client
}

// writeJSON encodes a JSON response with the given status.
func writeJSON(writer http.ResponseWriter, status int, body interface{}) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(body)
}

// issuePayload builds a minimal self-linked issue body.
func issuePayload(baseURL, key string) map[string]interface{} {
	return map[string]interface{}{
		"self": baseURL + "/rest/api/2/issue/" + key,
		"id":   "10001",
		"key":  key,
		"fields": map[string]interface{}{
			"summary": "summary of " + key,
			"status": map[string]interface{}{
				"self": baseURL + "/rest/api/2/status/1",
				"id":   "1",
				"name": "Open",
			},
		},
	}
}

// userPayload builds a minimal self-linked user body.
func userPayload(baseURL, accountID, displayName string) map[string]interface{} {
	return map[string]interface{}{
		"self":        baseURL + "/rest/api/2/user?accountId=" + accountID,
		"accountId":   accountID,
		"displayName": displayName,
	}
}
