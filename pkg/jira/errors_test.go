package jira_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/jira-client/pkg/jira"
)

func TestAPIError_Error(t *testing.T) {
	t.Parallel()

	err := &jira.APIError{
		StatusCode: 400,
		Messages:   []string{"summary is required"},
		URL:        "https://x/rest/api/2/issue",
	}

	msg := err.Error()
	assert.Contains(t, msg, "400")
	assert.Contains(t, msg, "summary is required")
	assert.Contains(t, msg, "https://x/rest/api/2/issue")

	// Connection-level failure has no status code
	connErr := &jira.APIError{Message: "connection refused"}
	assert.Contains(t, connErr.Error(), "connection refused")
	assert.NotContains(t, connErr.Error(), "0")
}

func TestErrorTypeHelpers(t *testing.T) {
	t.Parallel()

	notFound := &jira.NotFoundError{APIError: jira.APIError{StatusCode: 404}}
	authErr := &jira.AuthError{APIError: jira.APIError{StatusCode: 401}}
	valErr := &jira.ValidationError{APIError: jira.APIError{StatusCode: 400}}
	stale := &jira.StaleResourceError{Kind: "issue"}

	assert.True(t, jira.IsNotFound(notFound))
	assert.False(t, jira.IsNotFound(authErr))

	assert.True(t, jira.IsAuth(authErr))
	assert.False(t, jira.IsAuth(notFound))

	assert.True(t, jira.IsValidation(valErr))
	assert.False(t, jira.IsValidation(notFound))

	assert.True(t, jira.IsStale(stale))
	assert.False(t, jira.IsStale(notFound))
}

func TestErrorTypeHelpers_Wrapped(t *testing.T) {
	t.Parallel()

	inner := &jira.NotFoundError{APIError: jira.APIError{StatusCode: 404}}
	wrapped := fmt.Errorf("getting issue TEST-1: %w", inner)

	assert.True(t, jira.IsNotFound(wrapped))
	assert.False(t, jira.IsAuth(wrapped))
}

func TestParseErrorBody_MessageShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		expected []string
	}{
		{
			name:     "single message",
			body:     `{"message": "issue does not exist"}`,
			expected: []string{"issue does not exist"},
		},
		{
			name:     "error messages array",
			body:     `{"errorMessages": ["first", "second"]}`,
			expected: []string{"first", "second"},
		},
		{
			name:     "unstructured body",
			body:     `plain text error`,
			expected: []string{"plain text error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			messages, fieldErrors := jira.ParseErrorBody(400, nil, []byte(tt.body))
			assert.Equal(t, tt.expected, messages)
			assert.Nil(t, fieldErrors)
		})
	}
}

func TestParseErrorBody_FieldErrors(t *testing.T) {
	t.Parallel()

	messages, fieldErrors := jira.ParseErrorBody(400, nil,
		[]byte(`{"errors": {"summary": "is required"}}`))

	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "summary")
	assert.Equal(t, map[string]string{"summary": "is required"}, fieldErrors)
}

func TestParseErrorBody_DeniedReasonHeader(t *testing.T) {
	t.Parallel()

	headers := http.Header{}
	headers.Set("X-Authentication-Denied-Reason", "CAPTCHA_CHALLENGE; login-url=https://x/login")

	messages, _ := jira.ParseErrorBody(403, headers, []byte(`{"message": "ignored"}`))
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "CAPTCHA_CHALLENGE")

	// The header only applies to 403 responses
	messages, _ = jira.ParseErrorBody(401, headers, []byte(`{"message": "bad credentials"}`))
	assert.Equal(t, []string{"bad credentials"}, messages)
}

func TestParseErrorBody_Empty(t *testing.T) {
	t.Parallel()

	messages, fieldErrors := jira.ParseErrorBody(500, nil, nil)
	assert.Nil(t, messages)
	assert.Nil(t, fieldErrors)
}

func TestReservedFieldCollisionError_Error(t *testing.T) {
	t.Parallel()

	err := &jira.ReservedFieldCollisionError{Kind: "issue", Field: "raw"}
	assert.Contains(t, err.Error(), "raw")
	assert.Contains(t, err.Error(), "issue")
}
