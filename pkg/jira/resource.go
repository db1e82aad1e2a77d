package jira

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"sync"
)

// Requester performs HTTP operations on behalf of resources. Paths may be
// absolute URLs (self links) or paths relative to the REST prefix; the
// transport resolves both. The concrete implementation lives in the client
// facade so that resources never depend on transport internals.
type Requester interface {
	// Get issues a GET and returns the response body.
	Get(ctx context.Context, path string, query url.Values) ([]byte, error)

	// Put issues a PUT with a JSON body and returns the response body,
	// which may be empty.
	Put(ctx context.Context, path string, query url.Values, body interface{}) ([]byte, error)

	// Delete issues a DELETE.
	Delete(ctx context.Context, path string, query url.Values) error
}

// readableIDs is the preference order for a resource's human-readable
// identifier, most descriptive first.
var readableIDs = []string{
	"displayName", "key", "name", "accountId", "filename",
	"value", "scope", "votes", "id", "mimeType", "closed",
}

// Resource is a live handle to one server-side entity. It owns the hydrated
// field map, the verbatim payload it was built from, and enough context to
// update, delete and reload itself through its self link.
//
// A Resource is safe for concurrent reads. Update, Delete and Reload
// serialize against each other and against readers.
type Resource struct {
	kind     string
	selfLink string
	id       string

	hydrator *Hydrator

	mu      sync.RWMutex
	raw     map[string]interface{}
	fields  map[string]interface{}
	deleted bool
}

// Kind returns the resource's logical kind, e.g. "issue".
func (r *Resource) Kind() string {
	return r.kind
}

// SelfLink returns the resource's canonical URL, or "" when the payload
// carried none.
func (r *Resource) SelfLink() string {
	return r.selfLink
}

// ID returns the resource's identifier as a string, or "" when the payload
// carried none.
func (r *Resource) ID() string {
	return r.id
}

// Raw returns the verbatim payload the resource was hydrated from. The map
// must be treated as read-only.
func (r *Resource) Raw() (map[string]interface{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	err := r.checkAliveLocked()
	if err != nil {
		return nil, err
	}

	return r.raw, nil
}

// Field returns the hydrated value of the named field. Nested resources come
// back as *Resource, value bags as plain maps.
func (r *Resource) Field(name string) (interface{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	err := r.checkAliveLocked()
	if err != nil {
		return nil, err
	}

	value, ok := r.fields[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q on %s", ErrNoSuchField, name, r.kind)
	}

	return value, nil
}

// StringField returns the named field as a string. Missing fields and fields
// of any other type report ErrNoSuchField.
func (r *Resource) StringField(name string) (string, error) {
	value, err := r.Field(name)
	if err != nil {
		return "", err
	}

	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q on %s is not a string", ErrNoSuchField, name, r.kind)
	}

	return s, nil
}

// FieldNames returns the resource's field names in sorted order.
func (r *Resource) FieldNames() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	err := r.checkAliveLocked()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(r.fields))
	for name := range r.fields {
		names = append(names, name)
	}

	sort.Strings(names)

	return names, nil
}

// String returns the most human-readable identifier the payload offers,
// falling back to the kind and self link. Deleted resources render a stale
// marker rather than erroring, since String is used in logs.
func (r *Resource) String() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.deleted {
		return fmt.Sprintf("<stale %s>", r.kind)
	}

	for _, name := range readableIDs {
		value, ok := r.fields[name]
		if !ok {
			continue
		}

		switch v := value.(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return formatJSONNumber(v)
		case bool:
			return fmt.Sprintf("%t", v)
		}
	}

	if r.selfLink != "" {
		return fmt.Sprintf("<%s %s>", r.kind, r.selfLink)
	}

	return fmt.Sprintf("<%s>", r.kind)
}

// UpdateOption adjusts a single Update call.
type UpdateOption func(*updateOptions)

type updateOptions struct {
	query url.Values
}

// WithoutNotification suppresses server-side notifications for the update
// (notifyUsers=false).
func WithoutNotification() UpdateOption {
	return func(o *updateOptions) {
		o.query.Set("notifyUsers", "false")
	}
}

// WithUpdateParam adds an arbitrary query parameter to the update request.
func WithUpdateParam(key, value string) UpdateOption {
	return func(o *updateOptions) {
		o.query.Set(key, value)
	}
}

// UpdateQuery resolves update options into request query parameters.
func UpdateQuery(opts ...UpdateOption) url.Values {
	options := updateOptions{query: url.Values{}}
	for _, opt := range opts {
		opt(&options)
	}

	return options.query
}

// Update sends the given fields to the server via the resource's self link
// and, on acceptance, merges them into the local field map one field at a
// time. No re-fetch happens; fields the server may have changed as a side
// effect stay at their old values until Reload.
func (r *Resource) Update(ctx context.Context, fields map[string]interface{}, opts ...UpdateOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.checkAliveLocked()
	if err != nil {
		return err
	}

	if r.selfLink == "" {
		return fmt.Errorf("cannot update %s: %w", r.kind, ErrNoSelfLink)
	}

	_, err = r.hydrator.requester.Put(ctx, r.selfLink, UpdateQuery(opts...), fields)
	if err != nil {
		return fmt.Errorf("updating %s: %w", r.kind, err)
	}

	desc, _ := r.hydrator.registry.Lookup(r.kind)

	for name, value := range fields {
		// A delta against an already-hydrated nested resource merges into
		// it key by key instead of replacing the whole subtree.
		if sub, isResource := r.fields[name].(*Resource); isResource {
			if delta, isMap := value.(map[string]interface{}); isMap {
				err = sub.mergeDelta(delta)
				if err != nil {
					return fmt.Errorf("merging accepted field %q: %w", name, err)
				}

				continue
			}
		}

		hydrated, herr := r.hydrator.hydrateField(desc, r.kind, name, value)
		if herr != nil {
			return fmt.Errorf("merging accepted field %q: %w", name, herr)
		}

		r.fields[name] = hydrated
	}

	return nil
}

// mergeDelta folds an accepted update delta into the resource's field map,
// classifying each value exactly like a fetched payload would be.
func (r *Resource) mergeDelta(delta map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	desc, _ := r.hydrator.registry.Lookup(r.kind)

	for name, value := range delta {
		hydrated, err := r.hydrator.hydrateField(desc, r.kind, name, value)
		if err != nil {
			return err
		}

		r.fields[name] = hydrated
	}

	return nil
}

// Delete removes the resource on the server and marks the handle stale.
// Every subsequent access fails with StaleResourceError.
func (r *Resource) Delete(ctx context.Context, params url.Values) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.checkAliveLocked()
	if err != nil {
		return err
	}

	if r.selfLink == "" {
		return fmt.Errorf("cannot delete %s: %w", r.kind, ErrNoSelfLink)
	}

	err = r.hydrator.requester.Delete(ctx, r.selfLink, params)
	if err != nil {
		return fmt.Errorf("deleting %s: %w", r.kind, err)
	}

	r.deleted = true
	r.fields = nil
	r.raw = nil

	return nil
}

// Reload re-fetches the resource through its self link and replaces the
// field map wholesale. This is the only way side-effect field changes on the
// server become visible on an existing handle.
func (r *Resource) Reload(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.checkAliveLocked()
	if err != nil {
		return err
	}

	if r.selfLink == "" {
		return fmt.Errorf("cannot reload %s: %w", r.kind, ErrNoSelfLink)
	}

	body, err := r.hydrator.requester.Get(ctx, r.selfLink, nil)
	if err != nil {
		return fmt.Errorf("reloading %s: %w", r.kind, err)
	}

	fresh, err := r.hydrator.HydrateBody(body, r.kind)
	if err != nil {
		return fmt.Errorf("reloading %s: %w", r.kind, err)
	}

	freshRes, ok := fresh.(*Resource)
	if !ok {
		return fmt.Errorf("reloading %s: %w", r.kind, ErrEmptyResponse)
	}

	r.raw = freshRes.raw
	r.fields = freshRes.fields
	r.id = freshRes.id

	if freshRes.selfLink != "" {
		r.selfLink = freshRes.selfLink
	}

	return nil
}

func (r *Resource) checkAliveLocked() error {
	if r.deleted {
		return &StaleResourceError{Kind: r.kind, SelfLink: r.selfLink}
	}

	return nil
}

// formatJSONNumber renders a decoded JSON number without a trailing ".0" for
// integral values.
func formatJSONNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}

	return fmt.Sprintf("%g", f)
}
