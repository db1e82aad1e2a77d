package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filterPayload(baseURL, id, name, jql string) map[string]interface{} {
	return map[string]interface{}{
		"self": baseURL + "/rest/api/2/filter/" + id,
		"id":   id,
		"name": name,
		"jql":  jql,
	}
}

func TestFieldsClient_List(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/rest/api/2/field", request.URL.Path)
		writeJSON(writer, http.StatusOK, []map[string]interface{}{
			{
				"id":     "summary",
				"name":   "Summary",
				"custom": false,
				"schema": map[string]string{"type": "string"},
			},
			{
				"id":     "customfield_10001",
				"name":   "Story Points",
				"custom": true,
				"schema": map[string]string{"type": "number"},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	fields, err := client.Fields().List(context.Background())
	require.NoError(t, err)
	require.Len(t, fields, 2)

	assert.Equal(t, "summary", fields[0].ID)
	assert.False(t, fields[0].Custom)
	assert.Equal(t, "string", fields[0].Schema)

	assert.Equal(t, "Story Points", fields[1].Name)
	assert.True(t, fields[1].Custom)
}

func TestFiltersClient_Get(t *testing.T) {
	t.Parallel()

	var server *httptest.Server

	server = httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/rest/api/2/filter/10100", request.URL.Path)
		writeJSON(writer, http.StatusOK, filterPayload(server.URL, "10100", "My open issues", "assignee = currentUser()"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	filter, err := client.Filters().Get(context.Background(), "10100")
	require.NoError(t, err)
	assert.Equal(t, "My open issues", filter.String())
	assert.Equal(t, "filter", filter.Kind())
}

func TestFiltersClient_Favourite(t *testing.T) {
	t.Parallel()

	var server *httptest.Server

	server = httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/rest/api/2/filter/favourite", request.URL.Path)
		writeJSON(writer, http.StatusOK, []map[string]interface{}{
			filterPayload(server.URL, "10100", "My open issues", "assignee = currentUser()"),
			filterPayload(server.URL, "10101", "Recently resolved", "status = Resolved"),
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	filters, err := client.Filters().Favourite(context.Background())
	require.NoError(t, err)
	require.Len(t, filters, 2)
	assert.Equal(t, "Recently resolved", filters[1].String())
}

func TestFiltersClient_Create(t *testing.T) {
	t.Parallel()

	var server *httptest.Server

	server = httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, http.MethodPost, request.Method)
		assert.Equal(t, "/rest/api/2/filter", request.URL.Path)

		var body map[string]interface{}

		_ = json.NewDecoder(request.Body).Decode(&body)
		assert.Equal(t, "Blockers", body["name"])
		assert.Equal(t, "priority = Blocker", body["jql"])
		assert.Equal(t, "all blockers", body["description"])

		writeJSON(writer, http.StatusCreated, filterPayload(server.URL, "10102", "Blockers", "priority = Blocker"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	filter, err := client.Filters().Create(context.Background(), "Blockers", "priority = Blocker", "all blockers")
	require.NoError(t, err)
	assert.Equal(t, "Blockers", filter.String())
}

func TestFiltersClient_Update(t *testing.T) {
	t.Parallel()

	var server *httptest.Server

	server = httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, http.MethodPut, request.Method)
		assert.Equal(t, "/rest/api/2/filter/10100", request.URL.Path)

		var body map[string]interface{}

		_ = json.NewDecoder(request.Body).Decode(&body)
		assert.Equal(t, "status = Open", body["jql"])

		writeJSON(writer, http.StatusOK, filterPayload(server.URL, "10100", "My open issues", "status = Open"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	filter, err := client.Filters().Update(context.Background(), "10100", map[string]interface{}{
		"jql": "status = Open",
	})
	require.NoError(t, err)

	jql, err := filter.StringField("jql")
	require.NoError(t, err)
	assert.Equal(t, "status = Open", jql)
}
