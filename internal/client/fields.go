package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fivetwenty-io/jira-client/internal/http"
	"github.com/fivetwenty-io/jira-client/pkg/jira"
)

// FieldsClient implements jira.FieldsClient.
type FieldsClient struct {
	httpClient *http.Client
}

// NewFieldsClient creates a new fields client.
func NewFieldsClient(httpClient *http.Client) *FieldsClient {
	return &FieldsClient{httpClient: httpClient}
}

// List implements jira.FieldsClient.List.
func (c *FieldsClient) List(ctx context.Context) ([]jira.FieldInfo, error) {
	resp, err := c.httpClient.Get(ctx, "field", nil)
	if err != nil {
		return nil, fmt.Errorf("listing fields: %w", err)
	}

	var decoded []struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Custom bool   `json:"custom"`
		Schema struct {
			Type string `json:"type"`
		} `json:"schema"`
	}

	err = json.Unmarshal(resp.Body, &decoded)
	if err != nil {
		return nil, fmt.Errorf("parsing fields response: %w", err)
	}

	fields := make([]jira.FieldInfo, 0, len(decoded))
	for _, item := range decoded {
		fields = append(fields, jira.FieldInfo{
			ID:     item.ID,
			Name:   item.Name,
			Custom: item.Custom,
			Schema: item.Schema.Type,
		})
	}

	return fields, nil
}

// FiltersClient implements jira.FiltersClient.
type FiltersClient struct {
	httpClient *http.Client
	hydrator   *jira.Hydrator
}

// NewFiltersClient creates a new filters client.
func NewFiltersClient(httpClient *http.Client, hydrator *jira.Hydrator) *FiltersClient {
	return &FiltersClient{httpClient: httpClient, hydrator: hydrator}
}

// Get implements jira.FiltersClient.Get.
func (c *FiltersClient) Get(ctx context.Context, filterID string) (*jira.Resource, error) {
	return c.hydrator.Find(ctx, "filter", nil, filterID)
}

// Favourite implements jira.FiltersClient.Favourite.
func (c *FiltersClient) Favourite(ctx context.Context) ([]*jira.Resource, error) {
	resp, err := c.httpClient.Get(ctx, "filter/favourite", nil)
	if err != nil {
		return nil, fmt.Errorf("listing favourite filters: %w", err)
	}

	var raws []json.RawMessage

	err = json.Unmarshal(resp.Body, &raws)
	if err != nil {
		return nil, fmt.Errorf("parsing favourite filters response: %w", err)
	}

	filters := make([]*jira.Resource, 0, len(raws))

	for _, raw := range raws {
		filter, hydrateErr := c.hydrateFilter(raw)
		if hydrateErr != nil {
			return nil, hydrateErr
		}

		filters = append(filters, filter)
	}

	return filters, nil
}

// Create implements jira.FiltersClient.Create.
func (c *FiltersClient) Create(ctx context.Context, name, jql, description string) (*jira.Resource, error) {
	body := map[string]interface{}{
		"name": name,
		"jql":  jql,
	}

	if description != "" {
		body["description"] = description
	}

	resp, err := c.httpClient.Post(ctx, "filter", body)
	if err != nil {
		return nil, fmt.Errorf("creating filter %q: %w", name, err)
	}

	return c.hydrateFilter(resp.Body)
}

// Update implements jira.FiltersClient.Update.
func (c *FiltersClient) Update(ctx context.Context, filterID string, fields map[string]interface{}) (*jira.Resource, error) {
	resp, err := c.httpClient.Put(ctx, "filter/"+filterID, fields)
	if err != nil {
		return nil, fmt.Errorf("updating filter %s: %w", filterID, err)
	}

	return c.hydrateFilter(resp.Body)
}

func (c *FiltersClient) hydrateFilter(body []byte) (*jira.Resource, error) {
	value, err := c.hydrator.HydrateBody(body, "filter")
	if err != nil {
		return nil, err
	}

	res, ok := value.(*jira.Resource)
	if !ok {
		return nil, jira.ErrEmptyResponse
	}

	return res, nil
}
