package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/fivetwenty-io/jira-client/internal/constants"
	"github.com/fivetwenty-io/jira-client/internal/http"
	"github.com/fivetwenty-io/jira-client/pkg/jira"
)

// SearchClient implements jira.SearchClient.
type SearchClient struct {
	httpClient *http.Client
	hydrator   *jira.Hydrator
}

// NewSearchClient creates a new search client.
func NewSearchClient(httpClient *http.Client, hydrator *jira.Hydrator) *SearchClient {
	return &SearchClient{httpClient: httpClient, hydrator: hydrator}
}

// Issues implements jira.SearchClient.Issues.
func (c *SearchClient) Issues(ctx context.Context, jql string, opts *jira.SearchOptions) (*jira.SearchResult, error) {
	query := url.Values{"jql": []string{jql}}

	if opts != nil {
		if opts.StartAt > 0 {
			query.Set("startAt", strconv.Itoa(opts.StartAt))
		}

		if opts.MaxResults > 0 {
			query.Set("maxResults", strconv.Itoa(opts.MaxResults))
		}

		if len(opts.Fields) > 0 {
			query.Set("fields", strings.Join(opts.Fields, ","))
		}

		if len(opts.Expand) > 0 {
			query.Set("expand", strings.Join(opts.Expand, ","))
		}
	}

	resp, err := c.httpClient.Get(ctx, "search", query)
	if err != nil {
		return nil, fmt.Errorf("searching issues: %w", err)
	}

	return c.parsePage(resp.Body)
}

// All implements jira.SearchClient.All, following pagination until the
// result set is exhausted. Iteration is bounded so a server that keeps
// reporting more results cannot loop forever.
func (c *SearchClient) All(ctx context.Context, jql string, opts *jira.SearchOptions) ([]*jira.Issue, error) {
	pageOpts := jira.SearchOptions{}
	if opts != nil {
		pageOpts = *opts
	}

	if pageOpts.MaxResults <= 0 {
		pageOpts.MaxResults = constants.DefaultPageSize
	}

	var issues []*jira.Issue

	for page := 0; page < constants.MaxPages; page++ {
		result, err := c.Issues(ctx, jql, &pageOpts)
		if err != nil {
			return nil, err
		}

		issues = append(issues, result.Issues...)

		if len(result.Issues) == 0 || len(issues) >= result.Total {
			break
		}

		pageOpts.StartAt = result.StartAt + len(result.Issues)
	}

	return issues, nil
}

func (c *SearchClient) parsePage(body []byte) (*jira.SearchResult, error) {
	var envelope struct {
		StartAt    int               `json:"startAt"`
		MaxResults int               `json:"maxResults"`
		Total      int               `json:"total"`
		Issues     []json.RawMessage `json:"issues"`
	}

	err := json.Unmarshal(body, &envelope)
	if err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	result := &jira.SearchResult{
		StartAt:    envelope.StartAt,
		MaxResults: envelope.MaxResults,
		Total:      envelope.Total,
		Issues:     make([]*jira.Issue, 0, len(envelope.Issues)),
	}

	for _, raw := range envelope.Issues {
		value, hydrateErr := c.hydrator.HydrateBody(raw, "issue")
		if hydrateErr != nil {
			return nil, hydrateErr
		}

		res, ok := value.(*jira.Resource)
		if !ok {
			return nil, jira.ErrEmptyResponse
		}

		result.Issues = append(result.Issues, &jira.Issue{Resource: res})
	}

	return result, nil
}
