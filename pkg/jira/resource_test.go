package jira_test

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/jira-client/pkg/jira"
)

func hydrateTestResource(t *testing.T, requester jira.Requester, body, kind string) *jira.Resource {
	t.Helper()

	hydrator := newTestHydrator(requester)

	value, err := hydrator.HydrateBody([]byte(body), kind)
	require.NoError(t, err)

	res, ok := value.(*jira.Resource)
	require.True(t, ok)

	return res
}

func TestResource_FieldAccess(t *testing.T) {
	t.Parallel()

	res := hydrateTestResource(t, nil, `{
		"self": "https://x/rest/api/2/issue/10001",
		"id": "10001",
		"key": "TEST-1",
		"votes": 3
	}`, "")

	key, err := res.StringField("key")
	require.NoError(t, err)
	assert.Equal(t, "TEST-1", key)

	_, err = res.Field("missing")
	require.ErrorIs(t, err, jira.ErrNoSuchField)

	_, err = res.StringField("votes")
	require.ErrorIs(t, err, jira.ErrNoSuchField)

	names, err := res.FieldNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "key", "self", "votes"}, names)
}

func TestResource_String(t *testing.T) {
	t.Parallel()

	// key wins over id
	res := hydrateTestResource(t, nil, `{
		"self": "https://x/rest/api/2/issue/10001",
		"id": "10001",
		"key": "TEST-1"
	}`, "")
	assert.Equal(t, "TEST-1", res.String())

	// displayName wins over key
	user := hydrateTestResource(t, nil, `{
		"self": "https://x/rest/api/2/user?accountId=abc",
		"key": "fred",
		"displayName": "Fred Flintstone"
	}`, "")
	assert.Equal(t, "Fred Flintstone", user.String())

	// fall back to the self link
	anon := hydrateTestResource(t, nil, `{
		"self": "https://x/rest/api/2/issue/TEST-1/votes"
	}`, "")
	assert.Contains(t, anon.String(), "votes")
}

func TestResource_UpdateMergesLocally(t *testing.T) {
	t.Parallel()

	requester := &fakeRequester{}
	res := hydrateTestResource(t, requester, `{
		"self": "https://x/rest/api/2/issue/TEST-1/comment/200",
		"id": "200",
		"body": "old text"
	}`, "")

	err := res.Update(context.Background(), map[string]interface{}{"body": "new text"})
	require.NoError(t, err)

	// The accepted delta merged without a re-fetch.
	assert.Equal(t, 1, requester.putCalls)
	assert.Equal(t, 0, requester.getCalls)
	assert.Equal(t, "https://x/rest/api/2/issue/TEST-1/comment/200", requester.lastPutPath)

	body, err := res.StringField("body")
	require.NoError(t, err)
	assert.Equal(t, "new text", body)
}

func TestResource_UpdateMergesNestedDelta(t *testing.T) {
	t.Parallel()

	requester := &fakeRequester{}
	res := hydrateTestResource(t, requester, `{
		"self": "https://x/rest/api/2/issue/10001",
		"id": "10001",
		"fields": {
			"summary": "old summary",
			"labels": ["a"]
		}
	}`, "issue")

	err := res.Update(context.Background(), map[string]interface{}{
		"fields": map[string]interface{}{"summary": "new summary"},
	})
	require.NoError(t, err)

	fieldsValue, err := res.Field("fields")
	require.NoError(t, err)

	fields, ok := fieldsValue.(*jira.Resource)
	require.True(t, ok)

	// The delta merged into the existing envelope key by key.
	summary, err := fields.StringField("summary")
	require.NoError(t, err)
	assert.Equal(t, "new summary", summary)

	// Untouched siblings survive the merge.
	labels, err := fields.Field("labels")
	require.NoError(t, err)
	assert.Len(t, labels, 1)
}

func TestResource_UpdateOptions(t *testing.T) {
	t.Parallel()

	requester := &fakeRequester{}
	res := hydrateTestResource(t, requester, `{
		"self": "https://x/rest/api/2/issue/10001",
		"id": "10001"
	}`, "")

	err := res.Update(context.Background(),
		map[string]interface{}{"summary": "s"},
		jira.WithoutNotification(),
		jira.WithUpdateParam("overrideScreenSecurity", "true"),
	)
	require.NoError(t, err)
	assert.Equal(t, "false", requester.lastPutQuery.Get("notifyUsers"))
	assert.Equal(t, "true", requester.lastPutQuery.Get("overrideScreenSecurity"))
}

func TestResource_UpdateWithoutSelfLink(t *testing.T) {
	t.Parallel()

	res := hydrateTestResource(t, &fakeRequester{}, `{"id": "42", "name": "x"}`, "component")

	err := res.Update(context.Background(), map[string]interface{}{"name": "y"})
	require.ErrorIs(t, err, jira.ErrNoSelfLink)
}

func TestResource_DeleteMarksStale(t *testing.T) {
	t.Parallel()

	requester := &fakeRequester{}
	res := hydrateTestResource(t, requester, `{
		"self": "https://x/rest/api/2/issue/10001",
		"id": "10001",
		"key": "TEST-1"
	}`, "")

	err := res.Delete(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, requester.deleteCalls)

	// Every subsequent access fails deterministically.
	_, err = res.Field("key")
	require.Error(t, err)
	assert.True(t, jira.IsStale(err))

	var stale *jira.StaleResourceError

	require.ErrorAs(t, err, &stale)
	assert.Equal(t, "issue", stale.Kind)

	_, err = res.Raw()
	require.Error(t, err)

	err = res.Update(context.Background(), map[string]interface{}{"summary": "s"})
	require.Error(t, err)

	err = res.Delete(context.Background(), nil)
	require.Error(t, err)

	// String renders a stale marker instead of erroring.
	assert.Contains(t, res.String(), "stale")
}

func TestResource_DeletePassesParams(t *testing.T) {
	t.Parallel()

	requester := &fakeRequester{}
	res := hydrateTestResource(t, requester, `{
		"self": "https://x/rest/api/2/issue/10001",
		"id": "10001"
	}`, "")

	params := url.Values{"deleteSubtasks": []string{"true"}}

	err := res.Delete(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, "true", requester.lastDelQuery.Get("deleteSubtasks"))
}

func TestResource_Reload(t *testing.T) {
	t.Parallel()

	requester := &fakeRequester{
		getBody: []byte(`{
			"self": "https://x/rest/api/2/issue/10001",
			"id": "10001",
			"key": "TEST-1",
			"status": "resolved"
		}`),
	}
	res := hydrateTestResource(t, requester, `{
		"self": "https://x/rest/api/2/issue/10001",
		"id": "10001",
		"key": "TEST-1",
		"status": "open",
		"transient": "gone after reload"
	}`, "")

	err := res.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, requester.getCalls)

	// The field map was replaced wholesale.
	status, err := res.StringField("status")
	require.NoError(t, err)
	assert.Equal(t, "resolved", status)

	_, err = res.Field("transient")
	require.ErrorIs(t, err, jira.ErrNoSuchField)
}
