package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/fivetwenty-io/jira-client/internal/http"
	"github.com/fivetwenty-io/jira-client/pkg/jira"
)

// GroupsClient implements jira.GroupsClient.
type GroupsClient struct {
	httpClient *http.Client
	hydrator   *jira.Hydrator
}

// NewGroupsClient creates a new groups client.
func NewGroupsClient(httpClient *http.Client, hydrator *jira.Hydrator) *GroupsClient {
	return &GroupsClient{httpClient: httpClient, hydrator: hydrator}
}

// Members implements jira.GroupsClient.Members.
func (c *GroupsClient) Members(ctx context.Context, groupname string) ([]*jira.User, error) {
	query := url.Values{"groupname": []string{groupname}}

	resp, err := c.httpClient.Get(ctx, "group/member", query)
	if err != nil {
		return nil, fmt.Errorf("listing members of group %q: %w", groupname, err)
	}

	var envelope struct {
		Values []json.RawMessage `json:"values"`
	}

	err = json.Unmarshal(resp.Body, &envelope)
	if err != nil {
		return nil, fmt.Errorf("parsing group members response: %w", err)
	}

	users := make([]*jira.User, 0, len(envelope.Values))

	for _, raw := range envelope.Values {
		user, hydrateErr := hydrateUser(c.hydrator, raw)
		if hydrateErr != nil {
			return nil, hydrateErr
		}

		users = append(users, user)
	}

	return users, nil
}

// Create implements jira.GroupsClient.Create.
func (c *GroupsClient) Create(ctx context.Context, name string) (*jira.Resource, error) {
	resp, err := c.httpClient.Post(ctx, "group", map[string]interface{}{"name": name})
	if err != nil {
		return nil, fmt.Errorf("creating group %q: %w", name, err)
	}

	value, err := c.hydrator.HydrateBody(resp.Body, "group")
	if err != nil {
		return nil, err
	}

	res, ok := value.(*jira.Resource)
	if !ok {
		return nil, jira.ErrEmptyResponse
	}

	return res, nil
}

// Delete implements jira.GroupsClient.Delete.
func (c *GroupsClient) Delete(ctx context.Context, name string) error {
	query := url.Values{"groupname": []string{name}}

	_, err := c.httpClient.Do(ctx, &http.Request{Method: "DELETE", Path: "group", Query: query})
	if err != nil {
		return fmt.Errorf("deleting group %q: %w", name, err)
	}

	return nil
}

// AddUser implements jira.GroupsClient.AddUser.
func (c *GroupsClient) AddUser(ctx context.Context, groupname, accountID string) error {
	query := url.Values{"groupname": []string{groupname}}

	_, err := c.httpClient.Do(ctx, &http.Request{
		Method: "POST",
		Path:   "group/user",
		Query:  query,
		Body:   map[string]interface{}{"accountId": accountID},
	})
	if err != nil {
		return fmt.Errorf("adding user to group %q: %w", groupname, err)
	}

	return nil
}

// RemoveUser implements jira.GroupsClient.RemoveUser.
func (c *GroupsClient) RemoveUser(ctx context.Context, groupname, accountID string) error {
	query := url.Values{
		"groupname": []string{groupname},
		"accountId": []string{accountID},
	}

	_, err := c.httpClient.Do(ctx, &http.Request{Method: "DELETE", Path: "group/user", Query: query})
	if err != nil {
		return fmt.Errorf("removing user from group %q: %w", groupname, err)
	}

	return nil
}
