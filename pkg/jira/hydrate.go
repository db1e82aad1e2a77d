package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// hydrateMode controls how an object encountered during hydration may be
// promoted to a Resource.
type hydrateMode int

const (
	// modeAuto promotes an object only when it carries a self link.
	modeAuto hydrateMode = iota

	// modeForce promotes the object regardless of a self link. Set by
	// FieldResource rules and by top-level bodies with a known kind.
	modeForce

	// modeFrozen never promotes, at this object or anywhere below it. Set
	// by FieldValue rules.
	modeFrozen
)

// Hydrator turns decoded JSON into live Resource graphs. Classification is
// driven entirely by the registry and by self links in the payload, never by
// an object's shape. The same Hydrator is shared by every resource of a
// session; it holds no per-call state and is safe for concurrent use.
type Hydrator struct {
	registry  *Registry
	requester Requester
}

// NewHydrator creates a Hydrator over the given registry. The requester is
// handed to every Resource the Hydrator builds.
func NewHydrator(registry *Registry, requester Requester) *Hydrator {
	if registry == nil {
		registry = DefaultRegistry()
	}

	return &Hydrator{registry: registry, requester: requester}
}

// HydrateBody decodes a JSON response body and hydrates it. kindHint names
// the kind the caller expects the top-level object to be; pass "" when the
// body's type is unknown and should be inferred from self links alone.
func (h *Hydrator) HydrateBody(body []byte, kindHint string) (interface{}, error) {
	if len(body) == 0 {
		return nil, ErrEmptyResponse
	}

	var value interface{}

	err := json.Unmarshal(body, &value)
	if err != nil {
		return nil, fmt.Errorf("decoding response body: %w", err)
	}

	return h.Hydrate(value, kindHint)
}

// Hydrate walks an already-decoded JSON value. Scalars pass through
// unchanged, arrays hydrate element-wise with inherited context, and objects
// are promoted to Resources per the classification rules. The input value is
// never mutated; hydration builds fresh maps and slices throughout.
func (h *Hydrator) Hydrate(value interface{}, kindHint string) (interface{}, error) {
	mode := modeAuto
	if kindHint != "" {
		// A caller naming the kind asserts the top level is a resource.
		mode = modeForce
	}

	return h.hydrate(value, kindHint, mode)
}

// Find fetches one resource of the given kind by identifier using the
// kind's path template. Multi-segment kinds (comments, worklogs) take the
// parent identifiers first. The returned Resource is brand new; existing
// handles to the same entity are unaffected.
func (h *Hydrator) Find(ctx context.Context, kind string, params url.Values, ids ...string) (*Resource, error) {
	desc, ok := h.registry.Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("finding %q: %w", kind, ErrNoSuchField)
	}

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	path := fmt.Sprintf(desc.Path, args...)
	if desc.Agile {
		// The requester routes "agile/" paths to the agile REST prefix.
		path = "agile/" + path
	}

	body, err := h.requester.Get(ctx, path, params)
	if err != nil {
		return nil, fmt.Errorf("finding %s %v: %w", kind, ids, err)
	}

	value, err := h.HydrateBody(body, kind)
	if err != nil {
		return nil, fmt.Errorf("finding %s %v: %w", kind, ids, err)
	}

	res, ok := value.(*Resource)
	if !ok {
		return nil, fmt.Errorf("finding %s %v: %w", kind, ids, ErrEmptyResponse)
	}

	return res, nil
}

func (h *Hydrator) hydrate(value interface{}, kindHint string, mode hydrateMode) (interface{}, error) {
	switch v := value.(type) {
	case map[string]interface{}:
		return h.hydrateObject(v, kindHint, mode)
	case []interface{}:
		out := make([]interface{}, len(v))

		for i, elem := range v {
			hydrated, err := h.hydrate(elem, kindHint, mode)
			if err != nil {
				return nil, err
			}

			out[i] = hydrated
		}

		return out, nil
	default:
		return value, nil
	}
}

//nolint:cyclop // the classification ladder reads best as one function
func (h *Hydrator) hydrateObject(obj map[string]interface{}, kindHint string, mode hydrateMode) (interface{}, error) {
	selfLink, hasSelf := obj["self"].(string)

	promote := false

	switch mode {
	case modeForce:
		promote = true
	case modeAuto:
		promote = hasSelf
	case modeFrozen:
	}

	// Kind resolution: explicit hint wins, then self-link inference. An
	// object promoted without either gets the generic unknown kind.
	kind := kindHint
	if kind == "" && hasSelf {
		kind = h.registry.MatchSelf(selfLink)
	}

	if !promote {
		return h.hydrateBag(obj, mode)
	}

	if kind == "" {
		kind = KindUnknown
	}

	err := checkReservedFields(kind, obj)
	if err != nil {
		return nil, err
	}

	desc, _ := h.registry.Lookup(kind)

	fields := make(map[string]interface{}, len(obj))

	for name, fieldValue := range obj {
		hydrated, err := h.hydrateField(desc, kind, name, fieldValue)
		if err != nil {
			return nil, err
		}

		fields[name] = hydrated
	}

	return &Resource{
		kind:     kind,
		selfLink: selfLink,
		id:       extractID(obj),
		hydrator: h,
		raw:      obj,
		fields:   fields,
	}, nil
}

// hydrateField classifies and hydrates one field value of a promoted
// resource. Update uses it too, so locally merged deltas classify exactly
// like fetched payloads.
func (h *Hydrator) hydrateField(desc *TypeDescriptor, kind, name string, value interface{}) (interface{}, error) {
	rule := desc.Rule(name)

	switch rule.Class {
	case FieldValue:
		return h.hydrate(value, "", modeFrozen)
	case FieldResource:
		return h.hydrate(value, rule.Kind, modeForce)
	case FieldAuto:
		return h.hydrate(value, "", modeAuto)
	default:
		return nil, fmt.Errorf("field %q of %s: unknown classification %d: %w",
			name, kind, rule.Class, ErrNoSuchField)
	}
}

// hydrateBag copies an unpromoted object. In frozen mode children stay
// frozen; in auto mode promotion continues below, so a self-linked object
// nested inside a plain envelope still becomes a Resource.
func (h *Hydrator) hydrateBag(obj map[string]interface{}, mode hydrateMode) (interface{}, error) {
	childMode := modeAuto
	if mode == modeFrozen {
		childMode = modeFrozen
	}

	out := make(map[string]interface{}, len(obj))

	for name, value := range obj {
		hydrated, err := h.hydrate(value, "", childMode)
		if err != nil {
			return nil, err
		}

		out[name] = hydrated
	}

	return out, nil
}

// checkReservedFields rejects payloads whose keys would shadow the
// Resource's own accessors. "self" must be a string and "id" a scalar; a
// literal "raw" key always collides.
func checkReservedFields(kind string, obj map[string]interface{}) error {
	if _, ok := obj["raw"]; ok {
		return &ReservedFieldCollisionError{Kind: kind, Field: "raw"}
	}

	if value, ok := obj["self"]; ok {
		if _, isString := value.(string); !isString {
			return &ReservedFieldCollisionError{Kind: kind, Field: "self"}
		}
	}

	if value, ok := obj["id"]; ok && !isScalar(value) {
		return &ReservedFieldCollisionError{Kind: kind, Field: "id"}
	}

	return nil
}

func isScalar(value interface{}) bool {
	switch value.(type) {
	case string, float64, bool, nil:
		return true
	default:
		return false
	}
}

func extractID(obj map[string]interface{}) string {
	switch id := obj["id"].(type) {
	case string:
		return id
	case float64:
		return formatJSONNumber(id)
	default:
		return ""
	}
}
