package jira_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/jira-client/pkg/jira"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	t.Parallel()

	registry := jira.NewRegistry()

	err := registry.Register(&jira.TypeDescriptor{
		Kind:        "widget",
		Path:        "widget/%s",
		SelfPattern: regexp.MustCompile(`/widget/[^/]+$`),
	})
	require.NoError(t, err)

	desc, ok := registry.Lookup("widget")
	require.True(t, ok)
	assert.Equal(t, "widget", desc.Kind)

	_, ok = registry.Lookup("gadget")
	assert.False(t, ok)
}

func TestRegistry_DuplicateKind(t *testing.T) {
	t.Parallel()

	registry := jira.NewRegistry()

	err := registry.Register(&jira.TypeDescriptor{Kind: "widget", Path: "widget/%s"})
	require.NoError(t, err)

	err = registry.Register(&jira.TypeDescriptor{Kind: "widget", Path: "widget/%s"})
	require.ErrorIs(t, err, jira.ErrKindAlreadyDefined)
}

func TestRegistry_Freeze(t *testing.T) {
	t.Parallel()

	registry := jira.NewRegistry()
	registry.Freeze()

	err := registry.Register(&jira.TypeDescriptor{Kind: "widget", Path: "widget/%s"})
	require.ErrorIs(t, err, jira.ErrRegistryFrozen)
}

func TestRegistry_MatchSelfRegistrationOrder(t *testing.T) {
	t.Parallel()

	registry := jira.NewRegistry()

	// More specific pattern registered first wins.
	require.NoError(t, registry.Register(&jira.TypeDescriptor{
		Kind:        "comment",
		Path:        "issue/%s/comment/%s",
		SelfPattern: regexp.MustCompile(`/issue/[^/]+/comment/[^/]+$`),
	}))
	require.NoError(t, registry.Register(&jira.TypeDescriptor{
		Kind:        "issue",
		Path:        "issue/%s",
		SelfPattern: regexp.MustCompile(`/issue/[^/]+$`),
	}))

	assert.Equal(t, "comment",
		registry.MatchSelf("https://x/rest/api/2/issue/TEST-1/comment/200"))
	assert.Equal(t, "issue",
		registry.MatchSelf("https://x/rest/api/2/issue/TEST-1"))
	assert.Equal(t, jira.KindUnknown,
		registry.MatchSelf("https://x/rest/api/2/webhook/7"))
}

func TestDefaultRegistry_KnownKinds(t *testing.T) {
	t.Parallel()

	registry := jira.DefaultRegistry()

	for _, kind := range []string{
		"issue", "comment", "project", "user", "group", "status",
		"priority", "version", "component", "filter", "sprint", "board",
		"issuefields", jira.KindUnknown,
	} {
		_, ok := registry.Lookup(kind)
		assert.True(t, ok, "kind %s should be registered", kind)
	}
}

func TestDefaultRegistry_SelfLinkInference(t *testing.T) {
	t.Parallel()

	registry := jira.DefaultRegistry()

	tests := []struct {
		link string
		kind string
	}{
		{"https://x/rest/api/2/issue/10001", "issue"},
		{"https://x/rest/api/2/issue/TEST-1/comment/200", "comment"},
		{"https://x/rest/api/2/issue/TEST-1/votes", "votes"},
		{"https://x/rest/api/2/issue/TEST-1/watchers", "watchers"},
		{"https://x/rest/api/2/user?accountId=abc123", "user"},
		{"https://x/rest/api/2/user?username=fred", "user"},
		{"https://x/rest/api/2/group?groupname=admins", "group"},
		{"https://x/rest/api/2/project/TEST", "project"},
		{"https://x/rest/agile/1.0/sprint/7", "sprint"},
		{"https://x/rest/agile/1.0/board/3", "board"},
		{"https://x/rest/api/2/something/else/entirely", jira.KindUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.kind, registry.MatchSelf(tt.link), "link %s", tt.link)
	}
}

func TestDefaultRegistry_IsFrozen(t *testing.T) {
	t.Parallel()

	err := jira.DefaultRegistry().Register(&jira.TypeDescriptor{Kind: "widget"})
	require.ErrorIs(t, err, jira.ErrRegistryFrozen)
}

func TestTypeDescriptor_RuleDefaultsToAuto(t *testing.T) {
	t.Parallel()

	desc := &jira.TypeDescriptor{
		Kind: "issue",
		Fields: map[string]jira.FieldRule{
			"fields":    {Class: jira.FieldResource, Kind: "issuefields"},
			"changelog": {Class: jira.FieldValue},
		},
	}

	assert.Equal(t, jira.FieldResource, desc.Rule("fields").Class)
	assert.Equal(t, jira.FieldValue, desc.Rule("changelog").Class)
	assert.Equal(t, jira.FieldAuto, desc.Rule("anythingelse").Class)

	var nilDesc *jira.TypeDescriptor

	assert.Equal(t, jira.FieldAuto, nilDesc.Rule("fields").Class)
}
