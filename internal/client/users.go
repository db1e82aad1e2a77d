package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/fivetwenty-io/jira-client/internal/http"
	"github.com/fivetwenty-io/jira-client/pkg/jira"
)

// UsersClient implements jira.UsersClient.
type UsersClient struct {
	httpClient *http.Client
	hydrator   *jira.Hydrator
}

// NewUsersClient creates a new users client.
func NewUsersClient(httpClient *http.Client, hydrator *jira.Hydrator) *UsersClient {
	return &UsersClient{httpClient: httpClient, hydrator: hydrator}
}

// Get implements jira.UsersClient.Get.
func (c *UsersClient) Get(ctx context.Context, accountID string) (*jira.User, error) {
	query := url.Values{"accountId": []string{accountID}}

	resp, err := c.httpClient.Get(ctx, "user", query)
	if err != nil {
		return nil, fmt.Errorf("getting user %s: %w", accountID, err)
	}

	return hydrateUser(c.hydrator, resp.Body)
}

// Search implements jira.UsersClient.Search.
func (c *UsersClient) Search(ctx context.Context, queryString string, startAt, maxResults int) ([]*jira.User, error) {
	query := url.Values{"query": []string{queryString}}

	if startAt > 0 {
		query.Set("startAt", strconv.Itoa(startAt))
	}

	if maxResults > 0 {
		query.Set("maxResults", strconv.Itoa(maxResults))
	}

	resp, err := c.httpClient.Get(ctx, "user/search", query)
	if err != nil {
		return nil, fmt.Errorf("searching users: %w", err)
	}

	var raws []json.RawMessage

	err = json.Unmarshal(resp.Body, &raws)
	if err != nil {
		return nil, fmt.Errorf("parsing user search response: %w", err)
	}

	users := make([]*jira.User, 0, len(raws))

	for _, raw := range raws {
		user, hydrateErr := hydrateUser(c.hydrator, raw)
		if hydrateErr != nil {
			return nil, hydrateErr
		}

		users = append(users, user)
	}

	return users, nil
}

// hydrateUser builds a typed user view from a response body. Shared across
// the facade since user payloads appear in many envelopes.
func hydrateUser(hydrator *jira.Hydrator, body []byte) (*jira.User, error) {
	value, err := hydrator.HydrateBody(body, "user")
	if err != nil {
		return nil, err
	}

	res, ok := value.(*jira.Resource)
	if !ok {
		return nil, jira.ErrEmptyResponse
	}

	return &jira.User{Resource: res}, nil
}
