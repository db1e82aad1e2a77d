package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fivetwenty-io/jira-client/internal/http"
	"github.com/fivetwenty-io/jira-client/pkg/jira"
)

// BoardsClient implements jira.BoardsClient over the agile API.
type BoardsClient struct {
	httpClient *http.Client
	hydrator   *jira.Hydrator
}

// NewBoardsClient creates a new boards client.
func NewBoardsClient(httpClient *http.Client, hydrator *jira.Hydrator) *BoardsClient {
	return &BoardsClient{httpClient: httpClient, hydrator: hydrator}
}

// List implements jira.BoardsClient.List.
func (c *BoardsClient) List(ctx context.Context, opts *jira.BoardOptions) ([]*jira.Board, error) {
	resp, err := c.httpClient.Get(ctx, "agile/board", opts.Query())
	if err != nil {
		return nil, fmt.Errorf("listing boards: %w", err)
	}

	raws, err := parseAgilePage(resp.Body)
	if err != nil {
		return nil, err
	}

	boards := make([]*jira.Board, 0, len(raws))

	for _, raw := range raws {
		board, hydrateErr := c.hydrateBoard(raw)
		if hydrateErr != nil {
			return nil, hydrateErr
		}

		boards = append(boards, board)
	}

	return boards, nil
}

// Get implements jira.BoardsClient.Get.
func (c *BoardsClient) Get(ctx context.Context, boardID string) (*jira.Board, error) {
	resp, err := c.httpClient.Get(ctx, "agile/board/"+boardID, nil)
	if err != nil {
		return nil, fmt.Errorf("getting board %s: %w", boardID, err)
	}

	return c.hydrateBoard(resp.Body)
}

// Sprints implements jira.BoardsClient.Sprints.
func (c *BoardsClient) Sprints(ctx context.Context, boardID string) ([]*jira.Sprint, error) {
	resp, err := c.httpClient.Get(ctx, "agile/board/"+boardID+"/sprint", nil)
	if err != nil {
		return nil, fmt.Errorf("listing sprints of board %s: %w", boardID, err)
	}

	raws, err := parseAgilePage(resp.Body)
	if err != nil {
		return nil, err
	}

	sprints := make([]*jira.Sprint, 0, len(raws))

	for _, raw := range raws {
		sprint, hydrateErr := hydrateSprint(c.hydrator, raw)
		if hydrateErr != nil {
			return nil, hydrateErr
		}

		sprints = append(sprints, sprint)
	}

	return sprints, nil
}

func (c *BoardsClient) hydrateBoard(body []byte) (*jira.Board, error) {
	value, err := c.hydrator.HydrateBody(body, "board")
	if err != nil {
		return nil, err
	}

	res, ok := value.(*jira.Resource)
	if !ok {
		return nil, jira.ErrEmptyResponse
	}

	return &jira.Board{Resource: res}, nil
}

// SprintsClient implements jira.SprintsClient over the agile API.
type SprintsClient struct {
	httpClient *http.Client
	hydrator   *jira.Hydrator
}

// NewSprintsClient creates a new sprints client.
func NewSprintsClient(httpClient *http.Client, hydrator *jira.Hydrator) *SprintsClient {
	return &SprintsClient{httpClient: httpClient, hydrator: hydrator}
}

// Get implements jira.SprintsClient.Get.
func (c *SprintsClient) Get(ctx context.Context, sprintID string) (*jira.Sprint, error) {
	resp, err := c.httpClient.Get(ctx, "agile/sprint/"+sprintID, nil)
	if err != nil {
		return nil, fmt.Errorf("getting sprint %s: %w", sprintID, err)
	}

	return hydrateSprint(c.hydrator, resp.Body)
}

// Create implements jira.SprintsClient.Create.
func (c *SprintsClient) Create(ctx context.Context, boardID int, name string) (*jira.Sprint, error) {
	body := map[string]interface{}{
		"name":          name,
		"originBoardId": boardID,
	}

	resp, err := c.httpClient.Post(ctx, "agile/sprint", body)
	if err != nil {
		return nil, fmt.Errorf("creating sprint %q on board %d: %w", name, boardID, err)
	}

	return hydrateSprint(c.hydrator, resp.Body)
}

// MoveIssues implements jira.SprintsClient.MoveIssues.
func (c *SprintsClient) MoveIssues(ctx context.Context, sprintID string, issueKeys []string) error {
	body := map[string]interface{}{"issues": issueKeys}

	_, err := c.httpClient.Post(ctx, "agile/sprint/"+sprintID+"/issue", body)
	if err != nil {
		return fmt.Errorf("moving %d issues to sprint %s: %w", len(issueKeys), sprintID, err)
	}

	return nil
}

func hydrateSprint(hydrator *jira.Hydrator, body []byte) (*jira.Sprint, error) {
	value, err := hydrator.HydrateBody(body, "sprint")
	if err != nil {
		return nil, err
	}

	res, ok := value.(*jira.Resource)
	if !ok {
		return nil, jira.ErrEmptyResponse
	}

	return &jira.Sprint{Resource: res}, nil
}

// parseAgilePage unwraps the agile API's paged envelope.
func parseAgilePage(body []byte) ([]json.RawMessage, error) {
	var envelope struct {
		MaxResults int               `json:"maxResults"`
		StartAt    int               `json:"startAt"`
		IsLast     bool              `json:"isLast"`
		Values     []json.RawMessage `json:"values"`
	}

	err := json.Unmarshal(body, &envelope)
	if err != nil {
		return nil, fmt.Errorf("parsing agile page: %w", err)
	}

	return envelope.Values, nil
}
