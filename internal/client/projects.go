package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fivetwenty-io/jira-client/internal/http"
	"github.com/fivetwenty-io/jira-client/pkg/jira"
)

// ProjectsClient implements jira.ProjectsClient.
type ProjectsClient struct {
	httpClient *http.Client
	hydrator   *jira.Hydrator
}

// NewProjectsClient creates a new projects client.
func NewProjectsClient(httpClient *http.Client, hydrator *jira.Hydrator) *ProjectsClient {
	return &ProjectsClient{httpClient: httpClient, hydrator: hydrator}
}

// List implements jira.ProjectsClient.List.
func (c *ProjectsClient) List(ctx context.Context) ([]*jira.Project, error) {
	resp, err := c.httpClient.Get(ctx, "project", nil)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}

	var raws []json.RawMessage

	err = json.Unmarshal(resp.Body, &raws)
	if err != nil {
		return nil, fmt.Errorf("parsing projects response: %w", err)
	}

	projects := make([]*jira.Project, 0, len(raws))

	for _, raw := range raws {
		project, hydrateErr := c.hydrateProject(raw)
		if hydrateErr != nil {
			return nil, hydrateErr
		}

		projects = append(projects, project)
	}

	return projects, nil
}

// Get implements jira.ProjectsClient.Get.
func (c *ProjectsClient) Get(ctx context.Context, key string) (*jira.Project, error) {
	resp, err := c.httpClient.Get(ctx, "project/"+key, nil)
	if err != nil {
		return nil, fmt.Errorf("getting project %s: %w", key, err)
	}

	return c.hydrateProject(resp.Body)
}

// Components implements jira.ProjectsClient.Components.
func (c *ProjectsClient) Components(ctx context.Context, key string) ([]*jira.Resource, error) {
	return c.listResources(ctx, "project/"+key+"/components", "component")
}

// Versions implements jira.ProjectsClient.Versions.
func (c *ProjectsClient) Versions(ctx context.Context, key string) ([]*jira.Resource, error) {
	return c.listResources(ctx, "project/"+key+"/versions", "version")
}

// Roles implements jira.ProjectsClient.Roles. The server returns role names
// mapped to their detail URLs.
func (c *ProjectsClient) Roles(ctx context.Context, key string) (map[string]string, error) {
	resp, err := c.httpClient.Get(ctx, "project/"+key+"/role", nil)
	if err != nil {
		return nil, fmt.Errorf("listing roles of %s: %w", key, err)
	}

	var roles map[string]string

	err = json.Unmarshal(resp.Body, &roles)
	if err != nil {
		return nil, fmt.Errorf("parsing roles response: %w", err)
	}

	return roles, nil
}

// CreateComponent implements jira.ProjectsClient.CreateComponent.
func (c *ProjectsClient) CreateComponent(ctx context.Context, projectKey, name string) (*jira.Resource, error) {
	body := map[string]interface{}{"project": projectKey, "name": name}

	resp, err := c.httpClient.Post(ctx, "component", body)
	if err != nil {
		return nil, fmt.Errorf("creating component %q in %s: %w", name, projectKey, err)
	}

	return c.hydrateResource(resp.Body, "component")
}

// CreateVersion implements jira.ProjectsClient.CreateVersion.
func (c *ProjectsClient) CreateVersion(ctx context.Context, projectKey, name string) (*jira.Resource, error) {
	body := map[string]interface{}{"project": projectKey, "name": name}

	resp, err := c.httpClient.Post(ctx, "version", body)
	if err != nil {
		return nil, fmt.Errorf("creating version %q in %s: %w", name, projectKey, err)
	}

	return c.hydrateResource(resp.Body, "version")
}

func (c *ProjectsClient) listResources(ctx context.Context, path, kind string) ([]*jira.Resource, error) {
	resp, err := c.httpClient.Get(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", path, err)
	}

	var raws []json.RawMessage

	err = json.Unmarshal(resp.Body, &raws)
	if err != nil {
		return nil, fmt.Errorf("parsing %s response: %w", path, err)
	}

	resources := make([]*jira.Resource, 0, len(raws))

	for _, raw := range raws {
		res, hydrateErr := c.hydrateResource(raw, kind)
		if hydrateErr != nil {
			return nil, hydrateErr
		}

		resources = append(resources, res)
	}

	return resources, nil
}

func (c *ProjectsClient) hydrateProject(body []byte) (*jira.Project, error) {
	res, err := c.hydrateResource(body, "project")
	if err != nil {
		return nil, err
	}

	return &jira.Project{Resource: res}, nil
}

func (c *ProjectsClient) hydrateResource(body []byte, kind string) (*jira.Resource, error) {
	value, err := c.hydrator.HydrateBody(body, kind)
	if err != nil {
		return nil, err
	}

	res, ok := value.(*jira.Resource)
	if !ok {
		return nil, jira.ErrEmptyResponse
	}

	return res, nil
}
