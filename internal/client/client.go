// Package client implements the jira.Client facade over the transport,
// the authenticators and the hydration engine.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/fivetwenty-io/jira-client/internal/auth"
	"github.com/fivetwenty-io/jira-client/internal/http"
	"github.com/fivetwenty-io/jira-client/pkg/jira"
)

// Static errors for err113 compliance.
var (
	ErrBaseURLRequired = errors.New("base URL is required")
)

// Client implements the jira.Client interface.
type Client struct {
	httpClient *http.Client
	authn      auth.Authenticator
	baseURL    string
	logger     jira.Logger
	hydrator   *jira.Hydrator

	// Resource clients
	issues   jira.IssuesClient
	search   jira.SearchClient
	projects jira.ProjectsClient
	users    jira.UsersClient
	groups   jira.GroupsClient
	boards   jira.BoardsClient
	sprints  jira.SprintsClient
	fields   jira.FieldsClient
	filters  jira.FiltersClient
}

// New creates a new tracker API client from configuration.
func New(config *jira.Config) (*Client, error) {
	if config == nil {
		return nil, jira.ErrConfigRequired
	}

	if config.BaseURL == "" {
		return nil, ErrBaseURLRequired
	}

	baseURL := normalizeBaseURL(config.BaseURL)
	authn := createAuthenticator(config, baseURL)
	httpOpts, err := createHTTPClientOptions(config)
	if err != nil {
		return nil, err
	}

	httpClient := http.NewClient(baseURL, authn, httpOpts...)

	registry := config.Registry
	if registry == nil {
		registry = jira.DefaultRegistry()
	}

	client := &Client{
		httpClient: httpClient,
		authn:      authn,
		baseURL:    baseURL,
		logger:     config.Logger,
	}

	client.hydrator = jira.NewHydrator(registry, &requesterAdapter{httpClient: httpClient})
	client.initializeResourceClients()

	return client, nil
}

// createAuthenticator selects an authenticator from the configured
// credentials, most specific first.
func createAuthenticator(config *jira.Config, baseURL string) auth.Authenticator {
	if config.Token != "" {
		return auth.NewStaticTokenAuthenticator(config.Token)
	}

	if config.Username != "" && config.APIToken != "" {
		return auth.NewBasicAuthenticator(config.Username, config.APIToken)
	}

	if config.ClientID != "" && config.ClientSecret != "" {
		return auth.NewOAuth2Authenticator(&auth.OAuth2Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			TokenURL:     config.TokenURL,
		})
	}

	if config.Username != "" && config.Password != "" {
		if config.CookieAuth {
			return auth.NewSessionAuthenticator(baseURL, config.Username, config.Password)
		}

		return auth.NewBasicAuthenticator(config.Username, config.Password)
	}

	return auth.NewAnonymous()
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *jira.Config) ([]http.Option, error) {
	var httpOpts []http.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, http.WithTimeout(config.HTTPTimeout))
	}

	if config.APIVersion != "" || config.AgileAPIVersion != "" {
		httpOpts = append(httpOpts, http.WithAPIVersions(config.APIVersion, config.AgileAPIVersion))
	}

	if config.RetryMax > 0 {
		httpOpts = append(httpOpts, http.WithRetryConfig(config.RetryMax, config.RetryWaitMin, config.RetryWaitMax))
	}

	if config.Interceptors != nil {
		httpOpts = append(httpOpts, http.WithInterceptors(config.Interceptors))
	}

	if config.Cache != nil {
		backend, err := jira.NewCacheFromConfig(config.Cache)
		if err != nil {
			return nil, fmt.Errorf("building response cache: %w", err)
		}

		ttl := jira.DefaultCacheOptions().TTL
		if config.Cache.Options != nil && config.Cache.Options.TTL > 0 {
			ttl = config.Cache.Options.TTL
		}

		httpOpts = append(httpOpts, http.WithResponseCache(jira.NewResponseCache(backend, ttl)))
	}

	return httpOpts, nil
}

func normalizeBaseURL(raw string) string {
	url := raw
	for len(url) > 0 && url[len(url)-1] == '/' {
		url = url[:len(url)-1]
	}

	if len(url) < 8 || (url[:7] != "http://" && url[:8] != "https://") {
		url = "https://" + url
	}

	return url
}

// initializeResourceClients initializes all resource-specific clients.
func (c *Client) initializeResourceClients() {
	c.issues = NewIssuesClient(c.httpClient, c.hydrator)
	c.search = NewSearchClient(c.httpClient, c.hydrator)
	c.projects = NewProjectsClient(c.httpClient, c.hydrator)
	c.users = NewUsersClient(c.httpClient, c.hydrator)
	c.groups = NewGroupsClient(c.httpClient, c.hydrator)
	c.boards = NewBoardsClient(c.httpClient, c.hydrator)
	c.sprints = NewSprintsClient(c.httpClient, c.hydrator)
	c.fields = NewFieldsClient(c.httpClient)
	c.filters = NewFiltersClient(c.httpClient, c.hydrator)
}

// Issues implements jira.Client.Issues.
func (c *Client) Issues() jira.IssuesClient {
	return c.issues
}

// Search implements jira.Client.Search.
func (c *Client) Search() jira.SearchClient {
	return c.search
}

// Projects implements jira.Client.Projects.
func (c *Client) Projects() jira.ProjectsClient {
	return c.projects
}

// Users implements jira.Client.Users.
func (c *Client) Users() jira.UsersClient {
	return c.users
}

// Groups implements jira.Client.Groups.
func (c *Client) Groups() jira.GroupsClient {
	return c.groups
}

// Boards implements jira.Client.Boards.
func (c *Client) Boards() jira.BoardsClient {
	return c.boards
}

// Sprints implements jira.Client.Sprints.
func (c *Client) Sprints() jira.SprintsClient {
	return c.sprints
}

// Fields implements jira.Client.Fields.
func (c *Client) Fields() jira.FieldsClient {
	return c.fields
}

// Filters implements jira.Client.Filters.
func (c *Client) Filters() jira.FiltersClient {
	return c.filters
}

// Hydrator implements jira.Client.Hydrator.
func (c *Client) Hydrator() *jira.Hydrator {
	return c.hydrator
}

// ServerInfo implements jira.Client.ServerInfo.
func (c *Client) ServerInfo(ctx context.Context) (*jira.ServerInfo, error) {
	resp, err := c.httpClient.Get(ctx, "serverInfo", nil)
	if err != nil {
		return nil, fmt.Errorf("getting server info: %w", err)
	}

	var info jira.ServerInfo

	err = json.Unmarshal(resp.Body, &info)
	if err != nil {
		return nil, fmt.Errorf("parsing server info response: %w", err)
	}

	return &info, nil
}

// Myself implements jira.Client.Myself.
func (c *Client) Myself(ctx context.Context) (*jira.User, error) {
	resp, err := c.httpClient.Get(ctx, "myself", nil)
	if err != nil {
		return nil, fmt.Errorf("getting current user: %w", err)
	}

	return hydrateUser(c.hydrator, resp.Body)
}

// requesterAdapter exposes the transport to the hydration engine without
// creating a dependency from pkg/jira on transport internals.
type requesterAdapter struct {
	httpClient *http.Client
}

func (r *requesterAdapter) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	resp, err := r.httpClient.Do(ctx, &http.Request{Method: "GET", Path: path, Query: query})
	if err != nil {
		return nil, err
	}

	return resp.Body, nil
}

func (r *requesterAdapter) Put(ctx context.Context, path string, query url.Values, body interface{}) ([]byte, error) {
	resp, err := r.httpClient.Do(ctx, &http.Request{Method: "PUT", Path: path, Query: query, Body: body})
	if err != nil {
		return nil, err
	}

	return resp.Body, nil
}

func (r *requesterAdapter) Delete(ctx context.Context, path string, query url.Values) error {
	_, err := r.httpClient.Do(ctx, &http.Request{Method: "DELETE", Path: path, Query: query})

	return err
}
