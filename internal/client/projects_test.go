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

func projectPayload(baseURL, key, name string) map[string]interface{} {
	return map[string]interface{}{
		"self": baseURL + "/rest/api/2/project/" + key,
		"id":   "10000",
		"key":  key,
		"name": name,
	}
}

func TestProjectsClient_List(t *testing.T) {
	t.Parallel()

	var server *httptest.Server

	server = httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/rest/api/2/project", request.URL.Path)
		writeJSON(writer, http.StatusOK, []map[string]interface{}{
			projectPayload(server.URL, "TEST", "Test Project"),
			projectPayload(server.URL, "OPS", "Operations"),
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	projects, err := client.Projects().List(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "TEST", projects[0].Key())
	assert.Equal(t, "Operations", projects[1].Name())
}

func TestProjectsClient_Get(t *testing.T) {
	t.Parallel()

	var server *httptest.Server

	server = httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/rest/api/2/project/TEST", request.URL.Path)
		writeJSON(writer, http.StatusOK, projectPayload(server.URL, "TEST", "Test Project"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	project, err := client.Projects().Get(context.Background(), "TEST")
	require.NoError(t, err)
	assert.Equal(t, "TEST", project.Key())
	assert.Equal(t, "Test Project", project.Name())
}

func TestProjectsClient_ComponentsAndVersions(t *testing.T) {
	t.Parallel()

	var server *httptest.Server

	server = httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		switch request.URL.Path {
		case "/rest/api/2/project/TEST/components":
			writeJSON(writer, http.StatusOK, []map[string]interface{}{
				{
					"self": server.URL + "/rest/api/2/component/10100",
					"id":   "10100",
					"name": "backend",
				},
			})
		case "/rest/api/2/project/TEST/versions":
			writeJSON(writer, http.StatusOK, []map[string]interface{}{
				{
					"self": server.URL + "/rest/api/2/version/10200",
					"id":   "10200",
					"name": "1.0",
				},
				{
					"self": server.URL + "/rest/api/2/version/10201",
					"id":   "10201",
					"name": "1.1",
				},
			})
		default:
			writer.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	components, err := client.Projects().Components(context.Background(), "TEST")
	require.NoError(t, err)
	require.Len(t, components, 1)
	assert.Equal(t, "backend", components[0].String())
	assert.Equal(t, "component", components[0].Kind())

	versions, err := client.Projects().Versions(context.Background(), "TEST")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "version", versions[0].Kind())
}

func TestProjectsClient_Roles(t *testing.T) {
	t.Parallel()

	var server *httptest.Server

	server = httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/rest/api/2/project/TEST/role", request.URL.Path)
		writeJSON(writer, http.StatusOK, map[string]string{
			"Administrators": server.URL + "/rest/api/2/project/TEST/role/10002",
			"Developers":     server.URL + "/rest/api/2/project/TEST/role/10001",
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	roles, err := client.Projects().Roles(context.Background(), "TEST")
	require.NoError(t, err)
	require.Len(t, roles, 2)
	assert.Contains(t, roles["Developers"], "role/10001")
}

func TestProjectsClient_CreateComponent(t *testing.T) {
	t.Parallel()

	var server *httptest.Server

	server = httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, http.MethodPost, request.Method)
		assert.Equal(t, "/rest/api/2/component", request.URL.Path)

		var body map[string]interface{}

		_ = json.NewDecoder(request.Body).Decode(&body)
		assert.Equal(t, "TEST", body["project"])
		assert.Equal(t, "frontend", body["name"])

		writeJSON(writer, http.StatusCreated, map[string]interface{}{
			"self": server.URL + "/rest/api/2/component/10101",
			"id":   "10101",
			"name": "frontend",
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	component, err := client.Projects().CreateComponent(context.Background(), "TEST", "frontend")
	require.NoError(t, err)
	assert.Equal(t, "frontend", component.String())
}

func TestProjectsClient_CreateVersion(t *testing.T) {
	t.Parallel()

	var server *httptest.Server

	server = httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, http.MethodPost, request.Method)
		assert.Equal(t, "/rest/api/2/version", request.URL.Path)

		var body map[string]interface{}

		_ = json.NewDecoder(request.Body).Decode(&body)
		assert.Equal(t, "2.0", body["name"])

		writeJSON(writer, http.StatusCreated, map[string]interface{}{
			"self": server.URL + "/rest/api/2/version/10202",
			"id":   "10202",
			"name": "2.0",
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	version, err := client.Projects().CreateVersion(context.Background(), "TEST", "2.0")
	require.NoError(t, err)
	assert.Equal(t, "2.0", version.String())
	assert.Equal(t, "version", version.Kind())
}
