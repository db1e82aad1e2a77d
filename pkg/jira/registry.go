package jira

import (
	"regexp"
	"sync"
)

// KindUnknown is the fallback kind for resource-worthy objects whose self
// link matches no registered pattern. Unknown resources keep base CRUD
// behavior through their self link and nothing else.
const KindUnknown = "unknown"

// FieldClass decides how the hydration engine treats one named field of a
// resource kind when its JSON value is an object.
type FieldClass int

const (
	// FieldAuto promotes the object to a Resource only when it carries a
	// self link. This is the default for undeclared fields.
	FieldAuto FieldClass = iota

	// FieldResource always promotes the object to a Resource of the rule's
	// kind, even when the server omitted the self link.
	FieldResource

	// FieldValue keeps the object as an opaque value bag. Nothing below a
	// FieldValue field is ever promoted, regardless of shape.
	FieldValue
)

// FieldRule classifies a single field of a resource kind.
type FieldRule struct {
	Class FieldClass
	// Kind names the resource kind to hydrate as when Class is
	// FieldResource. Ignored otherwise.
	Kind string
}

// TypeDescriptor holds the structural rules for one resource kind: how to
// find one by identifier, how to recognize one by self link, and how to
// classify its fields during hydration.
type TypeDescriptor struct {
	// Kind is the logical resource kind name, e.g. "issue".
	Kind string

	// Path is the find template relative to the REST prefix. Placeholders
	// are filled positionally, e.g. "issue/%s" or "issue/%s/comment/%s".
	Path string

	// SelfPattern recognizes self links that denote this kind. Patterns are
	// matched against the path portion of the link.
	SelfPattern *regexp.Regexp

	// Agile marks kinds served by the agile REST prefix instead of the core
	// one.
	Agile bool

	// Fields classifies the kind's object-valued fields. Fields not listed
	// default to FieldAuto.
	Fields map[string]FieldRule
}

// Rule returns the classification rule for the named field.
func (d *TypeDescriptor) Rule(field string) FieldRule {
	if d == nil || d.Fields == nil {
		return FieldRule{Class: FieldAuto}
	}

	rule, ok := d.Fields[field]
	if !ok {
		return FieldRule{Class: FieldAuto}
	}

	return rule
}

// Registry maps resource kind names to their descriptors. A Registry is
// populated once during startup and then frozen; hydration never mutates it,
// which keeps classification deterministic across a session.
type Registry struct {
	mu     sync.RWMutex
	frozen bool
	kinds  map[string]*TypeDescriptor
	// order preserves registration order for self-link matching, since more
	// specific patterns are registered before general ones.
	order []*TypeDescriptor
}

// NewRegistry creates an empty, unfrozen registry.
func NewRegistry() *Registry {
	return &Registry{
		kinds: make(map[string]*TypeDescriptor),
	}
}

// Register adds a descriptor. Registration fails once the registry is frozen
// or when the kind is already present.
func (r *Registry) Register(desc *TypeDescriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return ErrRegistryFrozen
	}

	if _, exists := r.kinds[desc.Kind]; exists {
		return ErrKindAlreadyDefined
	}

	r.kinds[desc.Kind] = desc
	r.order = append(r.order, desc)

	return nil
}

// Freeze makes the registry immutable. Further Register calls fail.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.frozen = true
}

// Lookup returns the descriptor for a kind. The second return is false for
// unregistered kinds; that is not an error for the hydration engine, it is
// the signal to treat the object as a generic value bag.
func (r *Registry) Lookup(kind string) (*TypeDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	desc, ok := r.kinds[kind]

	return desc, ok
}

// MatchSelf infers a resource kind from a self link by matching the
// registered patterns in registration order. It returns KindUnknown when no
// pattern matches; inference never guesses a specific kind without a match.
func (r *Registry) MatchSelf(selfLink string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, desc := range r.order {
		if desc.SelfPattern != nil && desc.SelfPattern.MatchString(selfLink) {
			return desc.Kind
		}
	}

	return KindUnknown
}

//nolint:funlen // the classification table is one deliberate, inspectable block
func buildDefaultRegistry() *Registry {
	registry := NewRegistry()

	descriptors := []*TypeDescriptor{
		{
			Kind:        "issue",
			Path:        "issue/%s",
			SelfPattern: regexp.MustCompile(`/issue/[^/]+$`),
			Fields: map[string]FieldRule{
				// The fields envelope has no self link but callers navigate
				// it like a resource; its children classify per their own
				// self links.
				"fields":       {Class: FieldResource, Kind: "issuefields"},
				"changelog":    {Class: FieldValue},
				"renderedBody": {Class: FieldValue},
			},
		},
		{
			Kind:        "comment",
			Path:        "issue/%s/comment/%s",
			SelfPattern: regexp.MustCompile(`/issue/[^/]+/comment/[^/]+$`),
		},
		{
			Kind:        "votes",
			Path:        "issue/%s/votes",
			SelfPattern: regexp.MustCompile(`/issue/[^/]+/votes$`),
		},
		{
			Kind:        "watchers",
			Path:        "issue/%s/watchers",
			SelfPattern: regexp.MustCompile(`/issue/[^/]+/watchers$`),
		},
		{
			Kind:        "worklog",
			Path:        "issue/%s/worklog/%s",
			SelfPattern: regexp.MustCompile(`/issue/[^/]+/worklog/[^/]+$`),
		},
		{
			Kind:        "remotelink",
			Path:        "issue/%s/remotelink/%s",
			SelfPattern: regexp.MustCompile(`/issue/[^/]+/remotelink/[^/]+$`),
		},
		{
			Kind: "issuefields",
			Path: "issue/%s",
			Fields: map[string]FieldRule{
				// Plain value bags by contract: structurally resource-shaped
				// but never addressable on their own.
				"timetracking":      {Class: FieldValue},
				"progress":          {Class: FieldValue},
				"aggregateprogress": {Class: FieldValue},
			},
		},
		{
			Kind:        "attachment",
			Path:        "attachment/%s",
			SelfPattern: regexp.MustCompile(`/attachment/[^/]+$`),
		},
		{
			Kind:        "component",
			Path:        "component/%s",
			SelfPattern: regexp.MustCompile(`/component/[^/]+$`),
		},
		{
			Kind:        "customfieldoption",
			Path:        "customFieldOption/%s",
			SelfPattern: regexp.MustCompile(`/customFieldOption/[^/]+$`),
		},
		{
			Kind:        "dashboard",
			Path:        "dashboard/%s",
			SelfPattern: regexp.MustCompile(`/dashboard/[^/]+$`),
		},
		{
			Kind:        "filter",
			Path:        "filter/%s",
			SelfPattern: regexp.MustCompile(`/filter/[^/]+$`),
		},
		{
			Kind:        "issuelink",
			Path:        "issueLink/%s",
			SelfPattern: regexp.MustCompile(`/issueLink/[^/]+$`),
		},
		{
			Kind:        "issuelinktype",
			Path:        "issueLinkType/%s",
			SelfPattern: regexp.MustCompile(`/issueLinkType/[^/]+$`),
		},
		{
			Kind:        "issuetype",
			Path:        "issuetype/%s",
			SelfPattern: regexp.MustCompile(`/issuetype/[^/]+$`),
		},
		{
			Kind:        "priority",
			Path:        "priority/%s",
			SelfPattern: regexp.MustCompile(`/priority/[^/]+$`),
		},
		{
			Kind:        "role",
			Path:        "project/%s/role/%s",
			SelfPattern: regexp.MustCompile(`/project/[^/]+/role/[^/]+$`),
		},
		{
			Kind:        "permissionscheme",
			Path:        "project/%s/permissionscheme",
			SelfPattern: regexp.MustCompile(`/project/[^/]+/permissionscheme`),
		},
		{
			Kind:        "project",
			Path:        "project/%s",
			SelfPattern: regexp.MustCompile(`/project/[^/]+$`),
		},
		{
			Kind:        "resolution",
			Path:        "resolution/%s",
			SelfPattern: regexp.MustCompile(`/resolution/[^/]+$`),
		},
		{
			Kind:        "securitylevel",
			Path:        "securitylevel/%s",
			SelfPattern: regexp.MustCompile(`/securitylevel/[^/]+$`),
		},
		{
			Kind:        "status",
			Path:        "status/%s",
			SelfPattern: regexp.MustCompile(`/status/[^/]+$`),
		},
		{
			Kind:        "statuscategory",
			Path:        "statuscategory/%s",
			SelfPattern: regexp.MustCompile(`/statuscategory/[^/]+$`),
		},
		{
			Kind:        "user",
			Path:        "user?accountId=%s",
			SelfPattern: regexp.MustCompile(`/user\?(username|key|accountId)=`),
		},
		{
			Kind:        "group",
			Path:        "group?groupname=%s",
			SelfPattern: regexp.MustCompile(`/group\?groupname=`),
		},
		{
			Kind:        "version",
			Path:        "version/%s",
			SelfPattern: regexp.MustCompile(`/version/[^/]+$`),
		},
		{
			Kind:        "sprint",
			Path:        "sprint/%s",
			SelfPattern: regexp.MustCompile(`/sprint/[^/]+$`),
			Agile:       true,
		},
		{
			Kind:        "board",
			Path:        "board/%s",
			SelfPattern: regexp.MustCompile(`/board/[^/]+$`),
			Agile:       true,
		},
		{
			Kind: KindUnknown,
			Path: "unknown/%s",
		},
	}

	for _, desc := range descriptors {
		// Registration of the built-in table cannot collide.
		_ = registry.Register(desc)
	}

	registry.Freeze()

	return registry
}

var defaultRegistry = buildDefaultRegistry()

// DefaultRegistry returns the process-wide frozen registry holding the
// built-in classification table.
func DefaultRegistry() *Registry {
	return defaultRegistry
}
