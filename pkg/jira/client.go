package jira

import (
	"context"
	"net/url"
	"time"
)

// IssueClients provides access to issue-centric clients.
type IssueClients interface {
	Issues() IssuesClient
	Search() SearchClient
}

// ProjectClients provides access to project and configuration clients.
type ProjectClients interface {
	Projects() ProjectsClient
	Fields() FieldsClient
	Filters() FiltersClient
}

// DirectoryClients provides access to user and group clients.
type DirectoryClients interface {
	Users() UsersClient
	Groups() GroupsClient
}

// AgileClients provides access to agile (board and sprint) clients.
type AgileClients interface {
	Boards() BoardsClient
	Sprints() SprintsClient
}

// Client is the full tracker API surface.
type Client interface {
	// Composite interfaces for related resource groups
	IssueClients
	ProjectClients
	DirectoryClients
	AgileClients

	// ServerInfo returns server metadata.
	ServerInfo(ctx context.Context) (*ServerInfo, error)

	// Myself returns the authenticated user.
	Myself(ctx context.Context) (*User, error)

	// Hydrator exposes the session's hydration engine for callers that work
	// with generic resources.
	Hydrator() *Hydrator
}

// IssuesClient provides access to issue operations.
type IssuesClient interface {
	Get(ctx context.Context, key string, opts *GetIssueOptions) (*Issue, error)
	Create(ctx context.Context, fields map[string]interface{}) (*Issue, error)
	BulkCreate(ctx context.Context, items []map[string]interface{}) ([]BulkResult, error)
	Update(ctx context.Context, key string, fields map[string]interface{}, opts ...UpdateOption) error
	Delete(ctx context.Context, key string, deleteSubtasks bool) error
	Assign(ctx context.Context, key, accountID string) error

	Comments(ctx context.Context, key string) ([]*Comment, error)
	AddComment(ctx context.Context, key, body string) (*Comment, error)
	DeleteComment(ctx context.Context, key, commentID string) error

	Worklogs(ctx context.Context, key string) ([]*Worklog, error)
	AddWorklog(ctx context.Context, key, timeSpent, comment string) (*Worklog, error)

	Transitions(ctx context.Context, key string) ([]Transition, error)
	Transition(ctx context.Context, key, transitionID string, fields map[string]interface{}) error

	Votes(ctx context.Context, key string) (*Resource, error)
	AddVote(ctx context.Context, key string) error
	RemoveVote(ctx context.Context, key string) error

	Watchers(ctx context.Context, key string) ([]*User, error)
	AddWatcher(ctx context.Context, key, accountID string) error
	RemoveWatcher(ctx context.Context, key, accountID string) error
}

// SearchClient provides access to JQL search.
type SearchClient interface {
	// Issues runs one page of a JQL search.
	Issues(ctx context.Context, jql string, opts *SearchOptions) (*SearchResult, error)

	// All follows pagination until the result set is exhausted or the page
	// bound is hit.
	All(ctx context.Context, jql string, opts *SearchOptions) ([]*Issue, error)
}

// ProjectsClient provides access to project operations.
type ProjectsClient interface {
	List(ctx context.Context) ([]*Project, error)
	Get(ctx context.Context, key string) (*Project, error)
	Components(ctx context.Context, key string) ([]*Resource, error)
	Versions(ctx context.Context, key string) ([]*Resource, error)
	Roles(ctx context.Context, key string) (map[string]string, error)
	CreateComponent(ctx context.Context, projectKey, name string) (*Resource, error)
	CreateVersion(ctx context.Context, projectKey, name string) (*Resource, error)
}

// UsersClient provides access to user lookup.
type UsersClient interface {
	Get(ctx context.Context, accountID string) (*User, error)
	Search(ctx context.Context, query string, startAt, maxResults int) ([]*User, error)
}

// GroupsClient provides access to group operations.
type GroupsClient interface {
	Members(ctx context.Context, groupname string) ([]*User, error)
	Create(ctx context.Context, name string) (*Resource, error)
	Delete(ctx context.Context, name string) error
	AddUser(ctx context.Context, groupname, accountID string) error
	RemoveUser(ctx context.Context, groupname, accountID string) error
}

// BoardsClient provides access to agile boards.
type BoardsClient interface {
	List(ctx context.Context, opts *BoardOptions) ([]*Board, error)
	Get(ctx context.Context, boardID string) (*Board, error)
	Sprints(ctx context.Context, boardID string) ([]*Sprint, error)
}

// SprintsClient provides access to agile sprints.
type SprintsClient interface {
	Get(ctx context.Context, sprintID string) (*Sprint, error)
	Create(ctx context.Context, boardID int, name string) (*Sprint, error)
	MoveIssues(ctx context.Context, sprintID string, issueKeys []string) error
}

// FieldsClient provides access to field metadata.
type FieldsClient interface {
	List(ctx context.Context) ([]FieldInfo, error)
}

// FiltersClient provides access to saved filters.
type FiltersClient interface {
	Get(ctx context.Context, filterID string) (*Resource, error)
	Favourite(ctx context.Context) ([]*Resource, error)
	Create(ctx context.Context, name, jql, description string) (*Resource, error)
	Update(ctx context.Context, filterID string, fields map[string]interface{}) (*Resource, error)
}

// GetIssueOptions narrows an issue fetch.
type GetIssueOptions struct {
	// Fields limits the returned field set. Empty means all fields.
	Fields []string
	// Expand names payload sections the server renders on demand.
	Expand []string
}

// SearchOptions controls a JQL search page.
type SearchOptions struct {
	// StartAt is the zero-based index of the first result.
	StartAt int
	// MaxResults caps the page size. Zero means the server default.
	MaxResults int
	// Fields limits the fields returned per issue.
	Fields []string
	// Expand names payload sections to render.
	Expand []string
}

// BoardOptions filters a board listing.
type BoardOptions struct {
	// ProjectKeyOrID limits boards to one project.
	ProjectKeyOrID string
	// Type filters by board type ("scrum", "kanban").
	Type string
}

// Query converts the options to request query parameters.
func (o *BoardOptions) Query() url.Values {
	query := url.Values{}
	if o == nil {
		return query
	}

	if o.ProjectKeyOrID != "" {
		query.Set("projectKeyOrId", o.ProjectKeyOrID)
	}

	if o.Type != "" {
		query.Set("type", o.Type)
	}

	return query
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Config represents client configuration for building a jira.Client.
//
// # Authentication precedence
//
// The following precedence is applied by the concrete client implementation
// (see internal/client and internal/auth):
//  1. Token: if set, it is used directly as a static Bearer token.
//  2. Username + APIToken: HTTP basic authentication, the cloud-style pair.
//  3. ClientID/ClientSecret: OAuth2 client_credentials grant against TokenURL.
//  4. Username + Password with CookieAuth: session login against
//     /rest/auth/1/session; the session cookie is replayed on every request
//     and renewed once on a 401.
//  5. Username + Password without CookieAuth: HTTP basic authentication.
//  6. No credentials: requests are sent anonymously.
//
// # Timeouts and retries
//
// Per-request timeouts should generally be controlled via context passed to
// client methods. Retry behavior can be tuned via RetryMax/RetryWaitMin/
// RetryWaitMax; transient failures (connection errors, 429, 502, 503, 504)
// are retried with exponential backoff, everything else fails immediately.
type Config struct {
	// Required fields
	// BaseURL: base URL of the tracker (e.g., "https://issues.example.com").
	// A trailing slash is trimmed; "https://" is assumed when no scheme is
	// present.
	BaseURL string

	// Authentication options (provide one)
	// Token: static Bearer token used as-is.
	Token string
	// Username: account name for basic or session authentication.
	Username string
	// Password: account password for basic or session authentication.
	Password string
	// APIToken: cloud API token paired with Username for basic auth.
	APIToken string
	// ClientID: OAuth2 client ID for the client_credentials grant.
	ClientID string
	// ClientSecret: OAuth2 client secret used with ClientID.
	ClientSecret string
	// TokenURL: full OAuth2 token endpoint, required with ClientID.
	TokenURL string
	// CookieAuth: when true and Username/Password are set, authenticate via
	// the session endpoint instead of basic auth.
	CookieAuth bool

	// Optional configurations
	// APIVersion: core REST API version segment. Defaults to "2".
	APIVersion string
	// AgileAPIVersion: agile REST API version segment. Defaults to "1.0".
	AgileAPIVersion string
	// HTTPTimeout: optional default HTTP timeout where supported. Most
	// client calls should rely on context timeouts.
	HTTPTimeout time.Duration
	// RetryMax: maximum number of retries for transient failures. If 0, a
	// sensible default is used by the client.
	RetryMax int
	// RetryWaitMin: minimum backoff between retries.
	RetryWaitMin time.Duration
	// RetryWaitMax: maximum backoff between retries.
	RetryWaitMax time.Duration
	// Debug: enables verbose HTTP request/response logging when a Logger is
	// provided.
	Debug bool
	// Logger: optional structured logger used by the HTTP layer and helpers.
	Logger Logger
	// UserAgent: overrides the default User-Agent header sent by the client.
	UserAgent string
	// Registry: optional custom type registry. Defaults to DefaultRegistry.
	Registry *Registry
	// Interceptors: optional request/response interceptor chain run by the
	// transport around every exchange (logging, rate limiting, metrics).
	Interceptors *InterceptorChain
	// Cache: optional response cache configuration. Nil disables caching.
	Cache *CacheConfig
}
