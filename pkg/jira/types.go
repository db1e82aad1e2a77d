package jira

// Typed views over hydrated resources. Each view wraps the generic Resource
// and adds accessors for the handful of fields callers reach for constantly.
// Everything else stays reachable through the embedded Resource.

// Issue is a typed view of an "issue" resource.
type Issue struct {
	*Resource
}

// Key returns the issue key, e.g. "PROJ-42".
func (i *Issue) Key() string {
	key, err := i.StringField("key")
	if err != nil {
		return ""
	}

	return key
}

// Fields returns the issue's fields envelope as a nested resource.
func (i *Issue) Fields() (*Resource, error) {
	value, err := i.Field("fields")
	if err != nil {
		return nil, err
	}

	fields, ok := value.(*Resource)
	if !ok {
		return nil, ErrNoSuchField
	}

	return fields, nil
}

// Summary returns the issue summary, or "" when absent.
func (i *Issue) Summary() string {
	return i.fieldsString("summary")
}

// Status returns the issue's status name, or "" when absent.
func (i *Issue) Status() string {
	return i.fieldsNested("status")
}

// Assignee returns the assignee's display name, or "" when unassigned.
func (i *Issue) Assignee() string {
	return i.fieldsNested("assignee")
}

// IssueType returns the issue type name, or "" when absent.
func (i *Issue) IssueType() string {
	return i.fieldsNested("issuetype")
}

// Priority returns the priority name, or "" when absent.
func (i *Issue) Priority() string {
	return i.fieldsNested("priority")
}

func (i *Issue) fieldsString(name string) string {
	fields, err := i.Fields()
	if err != nil {
		return ""
	}

	value, err := fields.StringField(name)
	if err != nil {
		return ""
	}

	return value
}

// fieldsNested renders a nested resource-valued field through its readable
// identifier.
func (i *Issue) fieldsNested(name string) string {
	fields, err := i.Fields()
	if err != nil {
		return ""
	}

	value, err := fields.Field(name)
	if err != nil {
		return ""
	}

	res, ok := value.(*Resource)
	if !ok {
		return ""
	}

	return res.String()
}

// Project is a typed view of a "project" resource.
type Project struct {
	*Resource
}

// Key returns the project key.
func (p *Project) Key() string {
	key, err := p.StringField("key")
	if err != nil {
		return ""
	}

	return key
}

// Name returns the project name.
func (p *Project) Name() string {
	name, err := p.StringField("name")
	if err != nil {
		return ""
	}

	return name
}

// User is a typed view of a "user" resource.
type User struct {
	*Resource
}

// AccountID returns the user's account identifier.
func (u *User) AccountID() string {
	id, err := u.StringField("accountId")
	if err != nil {
		return ""
	}

	return id
}

// DisplayName returns the user's display name.
func (u *User) DisplayName() string {
	name, err := u.StringField("displayName")
	if err != nil {
		return ""
	}

	return name
}

// EmailAddress returns the user's email address, which servers may redact.
func (u *User) EmailAddress() string {
	email, err := u.StringField("emailAddress")
	if err != nil {
		return ""
	}

	return email
}

// Comment is a typed view of a "comment" resource.
type Comment struct {
	*Resource
}

// Body returns the comment text.
func (c *Comment) Body() string {
	body, err := c.StringField("body")
	if err != nil {
		return ""
	}

	return body
}

// Worklog is a typed view of a "worklog" resource.
type Worklog struct {
	*Resource
}

// TimeSpent returns the logged duration in the server's display form.
func (w *Worklog) TimeSpent() string {
	spent, err := w.StringField("timeSpent")
	if err != nil {
		return ""
	}

	return spent
}

// Board is a typed view of an agile "board" resource.
type Board struct {
	*Resource
}

// Name returns the board name.
func (b *Board) Name() string {
	name, err := b.StringField("name")
	if err != nil {
		return ""
	}

	return name
}

// Sprint is a typed view of an agile "sprint" resource.
type Sprint struct {
	*Resource
}

// Name returns the sprint name.
func (s *Sprint) Name() string {
	name, err := s.StringField("name")
	if err != nil {
		return ""
	}

	return name
}

// State returns the sprint state ("future", "active", "closed").
func (s *Sprint) State() string {
	state, err := s.StringField("state")
	if err != nil {
		return ""
	}

	return state
}

// SearchResult is one page of a JQL search.
type SearchResult struct {
	// StartAt is the zero-based index of the page's first issue.
	StartAt int
	// MaxResults is the page size the server applied.
	MaxResults int
	// Total is the full result count across all pages.
	Total int
	// Issues holds the page's hydrated issues.
	Issues []*Issue
}

// Transition is one workflow transition available on an issue.
type Transition struct {
	ID   string `json:"id"   yaml:"id"`
	Name string `json:"name" yaml:"name"`
	// To names the status the transition leads to.
	To string `json:"to" yaml:"to"`
}

// FieldInfo describes one field definition, built-in or custom.
type FieldInfo struct {
	ID     string `json:"id"     yaml:"id"`
	Name   string `json:"name"   yaml:"name"`
	Custom bool   `json:"custom" yaml:"custom"`
	// Schema is the field's value type, e.g. "string" or "array".
	Schema string `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// ServerInfo represents server metadata.
type ServerInfo struct {
	BaseURL        string `json:"baseUrl"        yaml:"baseUrl"`
	Version        string `json:"version"        yaml:"version"`
	DeploymentType string `json:"deploymentType" yaml:"deploymentType"`
	ServerTitle    string `json:"serverTitle"    yaml:"serverTitle"`
	BuildNumber    int    `json:"buildNumber"    yaml:"buildNumber"`
}

// BulkResult reports the outcome of one item in a bulk operation. Bulk calls
// report partial failure per item instead of failing wholesale.
type BulkResult struct {
	// Index is the item's position in the request.
	Index int
	// Issue is the created issue when Err is nil.
	Issue *Issue
	// Err is the item's failure, nil on success.
	Err error
}
