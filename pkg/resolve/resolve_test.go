package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newstack-cloud/celerity-core/pkg/handler"
)

func TestResolve_ByIdentifier(t *testing.T) {
	reg := &handler.Registry{Handlers: []*handler.ResolvedHandler{
		{ID: "create-user", Path: "/users", Method: "POST"},
	}}
	r := New(reg)

	h := r.ByIdentifier("create-user")
	require.NotNil(t, h)
	assert.Equal(t, "/users", h.Path)

	assert.Nil(t, r.ByIdentifier("missing"))
}

func TestResolve_ByIdentifierDefaultExportFallback(t *testing.T) {
	reg := &handler.Registry{Handlers: []*handler.ResolvedHandler{
		{ID: "widgets.default", Path: "/widgets", Method: "GET"},
	}}
	r := New(reg)

	h := r.ByIdentifier("widgets")
	require.NotNil(t, h)
	assert.Equal(t, "/widgets", h.Path)
}

func TestResolve_ByRoute(t *testing.T) {
	reg := &handler.Registry{Handlers: []*handler.ResolvedHandler{
		{Path: "/users/{id}", Method: "GET"},
	}}
	r := New(reg)

	h := r.ByRoute("/users/42", "GET")
	require.NotNil(t, h)
	assert.Equal(t, "/users/{id}", h.Path)
}

func TestResolve_FullChainPrefersIdentifier(t *testing.T) {
	reg := &handler.Registry{Handlers: []*handler.ResolvedHandler{
		{ID: "by-id", Path: "/by-id-path", Method: "GET"},
		{Path: "/by-route-path", Method: "GET"},
	}}
	r := New(reg)

	h := r.Resolve("by-id", "/by-route-path", "GET")
	require.NotNil(t, h)
	assert.Equal(t, "/by-id-path", h.Path)
}

func TestResolve_CachesFirstNonNilResult(t *testing.T) {
	reg := &handler.Registry{Handlers: []*handler.ResolvedHandler{
		{ID: "x", Path: "/x", Method: "GET"},
	}}
	r := New(reg)

	first := r.ByIdentifier("x")
	reg.Handlers = nil // mutate registry; cached call must not re-query it
	second := r.ByIdentifier("x")

	assert.Same(t, first, second)
}
