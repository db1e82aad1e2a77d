package client

import (
	"context"
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"net/url"
	"strings"

	"github.com/fivetwenty-io/jira-client/internal/http"
	"github.com/fivetwenty-io/jira-client/pkg/jira"
)

// IssuesClient implements jira.IssuesClient.
type IssuesClient struct {
	httpClient *http.Client
	hydrator   *jira.Hydrator
}

// NewIssuesClient creates a new issues client.
func NewIssuesClient(httpClient *http.Client, hydrator *jira.Hydrator) *IssuesClient {
	return &IssuesClient{httpClient: httpClient, hydrator: hydrator}
}

// Get implements jira.IssuesClient.Get.
func (c *IssuesClient) Get(ctx context.Context, key string, opts *jira.GetIssueOptions) (*jira.Issue, error) {
	query := url.Values{}

	if opts != nil {
		if len(opts.Fields) > 0 {
			query.Set("fields", strings.Join(opts.Fields, ","))
		}

		if len(opts.Expand) > 0 {
			query.Set("expand", strings.Join(opts.Expand, ","))
		}
	}

	resp, err := c.httpClient.Get(ctx, "issue/"+key, query)
	if err != nil {
		return nil, fmt.Errorf("getting issue %s: %w", key, err)
	}

	return c.hydrateIssue(resp.Body)
}

// Create implements jira.IssuesClient.Create. The server returns only the
// new issue's coordinates, so the full issue is fetched afterwards.
func (c *IssuesClient) Create(ctx context.Context, fields map[string]interface{}) (*jira.Issue, error) {
	resp, err := c.httpClient.Post(ctx, "issue", map[string]interface{}{"fields": fields})
	if err != nil {
		return nil, fmt.Errorf("creating issue: %w", err)
	}

	var created struct {
		Key string `json:"key"`
	}

	err = json.Unmarshal(resp.Body, &created)
	if err != nil {
		return nil, fmt.Errorf("parsing create response: %w", err)
	}

	return c.Get(ctx, created.Key, nil)
}

// BulkCreate implements jira.IssuesClient.BulkCreate using the server's bulk
// endpoint. Per-item failures come back in the result slice; the call itself
// only fails on transport errors.
func (c *IssuesClient) BulkCreate(ctx context.Context, items []map[string]interface{}) ([]jira.BulkResult, error) {
	updates := make([]map[string]interface{}, len(items))
	for i, fields := range items {
		updates[i] = map[string]interface{}{"fields": fields}
	}

	resp, err := c.httpClient.Post(ctx, "issue/bulk", map[string]interface{}{"issueUpdates": updates})
	if err != nil && !isBulkPartialFailure(resp) {
		return nil, fmt.Errorf("bulk creating issues: %w", err)
	}

	return c.parseBulkResponse(ctx, resp.Body, len(items))
}

// isBulkPartialFailure reports whether a failed bulk POST still carries
// per-item results. The server answers 400 with issues/errors arrays when it
// rejected individual items; any other failure is wholesale and must
// propagate as-is.
func isBulkPartialFailure(resp *http.Response) bool {
	if resp == nil || resp.StatusCode != nethttp.StatusBadRequest {
		return false
	}

	var envelope struct {
		Issues []json.RawMessage `json:"issues"`
		Errors []json.RawMessage `json:"errors"`
	}

	err := json.Unmarshal(resp.Body, &envelope)
	if err != nil {
		return false
	}

	return len(envelope.Issues) > 0 || len(envelope.Errors) > 0
}

func (c *IssuesClient) parseBulkResponse(ctx context.Context, body []byte, count int) ([]jira.BulkResult, error) {
	var decoded struct {
		Issues []struct {
			Key string `json:"key"`
		} `json:"issues"`
		Errors []struct {
			FailedElementNumber int `json:"failedElementNumber"`
			ElementErrors       struct {
				ErrorMessages []string `json:"errorMessages"`
			} `json:"elementErrors"`
		} `json:"errors"`
	}

	err := json.Unmarshal(body, &decoded)
	if err != nil {
		return nil, fmt.Errorf("parsing bulk create response: %w", err)
	}

	results := make([]jira.BulkResult, count)
	for i := range results {
		results[i].Index = i
	}

	failed := make(map[int]bool, len(decoded.Errors))

	for _, item := range decoded.Errors {
		index := item.FailedElementNumber
		if index < 0 || index >= count {
			continue
		}

		failed[index] = true
		results[index].Err = &jira.APIError{
			Message:  "bulk create item failed",
			Messages: item.ElementErrors.ErrorMessages,
		}
	}

	// Created issues come back in request order with the failures removed.
	created := 0

	for i := range results {
		if failed[i] || created >= len(decoded.Issues) {
			continue
		}

		issue, getErr := c.Get(ctx, decoded.Issues[created].Key, nil)
		if getErr != nil {
			results[i].Err = getErr
		} else {
			results[i].Issue = issue
		}

		created++
	}

	return results, nil
}

// Update implements jira.IssuesClient.Update with a single PUT against the
// issue key; no prior fetch is needed.
func (c *IssuesClient) Update(ctx context.Context, key string, fields map[string]interface{}, opts ...jira.UpdateOption) error {
	_, err := c.httpClient.Do(ctx, &http.Request{
		Method: nethttp.MethodPut,
		Path:   "issue/" + key,
		Query:  jira.UpdateQuery(opts...),
		Body:   map[string]interface{}{"fields": fields},
	})
	if err != nil {
		return fmt.Errorf("updating issue %s: %w", key, err)
	}

	return nil
}

// Delete implements jira.IssuesClient.Delete.
func (c *IssuesClient) Delete(ctx context.Context, key string, deleteSubtasks bool) error {
	query := url.Values{}
	if deleteSubtasks {
		query.Set("deleteSubtasks", "true")
	}

	_, err := c.httpClient.Do(ctx, &http.Request{Method: "DELETE", Path: "issue/" + key, Query: query})
	if err != nil {
		return fmt.Errorf("deleting issue %s: %w", key, err)
	}

	return nil
}

// Assign implements jira.IssuesClient.Assign. An empty accountID clears the
// assignee.
func (c *IssuesClient) Assign(ctx context.Context, key, accountID string) error {
	var body map[string]interface{}
	if accountID == "" {
		body = map[string]interface{}{"accountId": nil}
	} else {
		body = map[string]interface{}{"accountId": accountID}
	}

	_, err := c.httpClient.Put(ctx, "issue/"+key+"/assignee", body)
	if err != nil {
		return fmt.Errorf("assigning issue %s: %w", key, err)
	}

	return nil
}

// Comments implements jira.IssuesClient.Comments.
func (c *IssuesClient) Comments(ctx context.Context, key string) ([]*jira.Comment, error) {
	resp, err := c.httpClient.Get(ctx, "issue/"+key+"/comment", nil)
	if err != nil {
		return nil, fmt.Errorf("listing comments of %s: %w", key, err)
	}

	var envelope struct {
		Comments []json.RawMessage `json:"comments"`
	}

	err = json.Unmarshal(resp.Body, &envelope)
	if err != nil {
		return nil, fmt.Errorf("parsing comments response: %w", err)
	}

	comments := make([]*jira.Comment, 0, len(envelope.Comments))

	for _, raw := range envelope.Comments {
		comment, hydrateErr := c.hydrateComment(raw)
		if hydrateErr != nil {
			return nil, hydrateErr
		}

		comments = append(comments, comment)
	}

	return comments, nil
}

// AddComment implements jira.IssuesClient.AddComment.
func (c *IssuesClient) AddComment(ctx context.Context, key, body string) (*jira.Comment, error) {
	resp, err := c.httpClient.Post(ctx, "issue/"+key+"/comment", map[string]interface{}{"body": body})
	if err != nil {
		return nil, fmt.Errorf("adding comment to %s: %w", key, err)
	}

	return c.hydrateComment(resp.Body)
}

// DeleteComment implements jira.IssuesClient.DeleteComment.
func (c *IssuesClient) DeleteComment(ctx context.Context, key, commentID string) error {
	_, err := c.httpClient.Delete(ctx, "issue/"+key+"/comment/"+commentID)
	if err != nil {
		return fmt.Errorf("deleting comment %s of %s: %w", commentID, key, err)
	}

	return nil
}

// Worklogs implements jira.IssuesClient.Worklogs.
func (c *IssuesClient) Worklogs(ctx context.Context, key string) ([]*jira.Worklog, error) {
	resp, err := c.httpClient.Get(ctx, "issue/"+key+"/worklog", nil)
	if err != nil {
		return nil, fmt.Errorf("listing worklogs of %s: %w", key, err)
	}

	var envelope struct {
		Worklogs []json.RawMessage `json:"worklogs"`
	}

	err = json.Unmarshal(resp.Body, &envelope)
	if err != nil {
		return nil, fmt.Errorf("parsing worklogs response: %w", err)
	}

	worklogs := make([]*jira.Worklog, 0, len(envelope.Worklogs))

	for _, raw := range envelope.Worklogs {
		value, hydrateErr := c.hydrator.HydrateBody(raw, "worklog")
		if hydrateErr != nil {
			return nil, hydrateErr
		}

		res, ok := value.(*jira.Resource)
		if !ok {
			return nil, jira.ErrEmptyResponse
		}

		worklogs = append(worklogs, &jira.Worklog{Resource: res})
	}

	return worklogs, nil
}

// AddWorklog implements jira.IssuesClient.AddWorklog.
func (c *IssuesClient) AddWorklog(ctx context.Context, key, timeSpent, comment string) (*jira.Worklog, error) {
	body := map[string]interface{}{"timeSpent": timeSpent}
	if comment != "" {
		body["comment"] = comment
	}

	resp, err := c.httpClient.Post(ctx, "issue/"+key+"/worklog", body)
	if err != nil {
		return nil, fmt.Errorf("adding worklog to %s: %w", key, err)
	}

	value, err := c.hydrator.HydrateBody(resp.Body, "worklog")
	if err != nil {
		return nil, err
	}

	res, ok := value.(*jira.Resource)
	if !ok {
		return nil, jira.ErrEmptyResponse
	}

	return &jira.Worklog{Resource: res}, nil
}

// Transitions implements jira.IssuesClient.Transitions.
func (c *IssuesClient) Transitions(ctx context.Context, key string) ([]jira.Transition, error) {
	resp, err := c.httpClient.Get(ctx, "issue/"+key+"/transitions", nil)
	if err != nil {
		return nil, fmt.Errorf("listing transitions of %s: %w", key, err)
	}

	var envelope struct {
		Transitions []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
			To   struct {
				Name string `json:"name"`
			} `json:"to"`
		} `json:"transitions"`
	}

	err = json.Unmarshal(resp.Body, &envelope)
	if err != nil {
		return nil, fmt.Errorf("parsing transitions response: %w", err)
	}

	transitions := make([]jira.Transition, 0, len(envelope.Transitions))
	for _, item := range envelope.Transitions {
		transitions = append(transitions, jira.Transition{
			ID:   item.ID,
			Name: item.Name,
			To:   item.To.Name,
		})
	}

	return transitions, nil
}

// Transition implements jira.IssuesClient.Transition.
func (c *IssuesClient) Transition(ctx context.Context, key, transitionID string, fields map[string]interface{}) error {
	body := map[string]interface{}{
		"transition": map[string]interface{}{"id": transitionID},
	}

	if len(fields) > 0 {
		body["fields"] = fields
	}

	_, err := c.httpClient.Post(ctx, "issue/"+key+"/transitions", body)
	if err != nil {
		return fmt.Errorf("transitioning issue %s: %w", key, err)
	}

	return nil
}

// Votes implements jira.IssuesClient.Votes.
func (c *IssuesClient) Votes(ctx context.Context, key string) (*jira.Resource, error) {
	return c.hydrator.Find(ctx, "votes", nil, key)
}

// AddVote implements jira.IssuesClient.AddVote.
func (c *IssuesClient) AddVote(ctx context.Context, key string) error {
	_, err := c.httpClient.Post(ctx, "issue/"+key+"/votes", nil)
	if err != nil {
		return fmt.Errorf("voting on issue %s: %w", key, err)
	}

	return nil
}

// RemoveVote implements jira.IssuesClient.RemoveVote.
func (c *IssuesClient) RemoveVote(ctx context.Context, key string) error {
	_, err := c.httpClient.Delete(ctx, "issue/"+key+"/votes")
	if err != nil {
		return fmt.Errorf("removing vote on issue %s: %w", key, err)
	}

	return nil
}

// Watchers implements jira.IssuesClient.Watchers.
func (c *IssuesClient) Watchers(ctx context.Context, key string) ([]*jira.User, error) {
	resp, err := c.httpClient.Get(ctx, "issue/"+key+"/watchers", nil)
	if err != nil {
		return nil, fmt.Errorf("listing watchers of %s: %w", key, err)
	}

	var envelope struct {
		Watchers []json.RawMessage `json:"watchers"`
	}

	err = json.Unmarshal(resp.Body, &envelope)
	if err != nil {
		return nil, fmt.Errorf("parsing watchers response: %w", err)
	}

	users := make([]*jira.User, 0, len(envelope.Watchers))

	for _, raw := range envelope.Watchers {
		user, hydrateErr := hydrateUser(c.hydrator, raw)
		if hydrateErr != nil {
			return nil, hydrateErr
		}

		users = append(users, user)
	}

	return users, nil
}

// AddWatcher implements jira.IssuesClient.AddWatcher.
func (c *IssuesClient) AddWatcher(ctx context.Context, key, accountID string) error {
	_, err := c.httpClient.Post(ctx, "issue/"+key+"/watchers", accountID)
	if err != nil {
		return fmt.Errorf("adding watcher to %s: %w", key, err)
	}

	return nil
}

// RemoveWatcher implements jira.IssuesClient.RemoveWatcher.
func (c *IssuesClient) RemoveWatcher(ctx context.Context, key, accountID string) error {
	query := url.Values{"accountId": []string{accountID}}

	_, err := c.httpClient.Do(ctx, &http.Request{
		Method: "DELETE",
		Path:   "issue/" + key + "/watchers",
		Query:  query,
	})
	if err != nil {
		return fmt.Errorf("removing watcher from %s: %w", key, err)
	}

	return nil
}

func (c *IssuesClient) hydrateIssue(body []byte) (*jira.Issue, error) {
	value, err := c.hydrator.HydrateBody(body, "issue")
	if err != nil {
		return nil, err
	}

	res, ok := value.(*jira.Resource)
	if !ok {
		return nil, jira.ErrEmptyResponse
	}

	return &jira.Issue{Resource: res}, nil
}

func (c *IssuesClient) hydrateComment(body []byte) (*jira.Comment, error) {
	value, err := c.hydrator.HydrateBody(body, "comment")
	if err != nil {
		return nil, err
	}

	res, ok := value.(*jira.Resource)
	if !ok {
		return nil, jira.ErrEmptyResponse
	}

	return &jira.Comment{Resource: res}, nil
}
