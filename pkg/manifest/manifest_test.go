package manifest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/newstack-cloud/celerity-core/pkg/graph"
	"github.com/newstack-cloud/celerity-core/pkg/module"
	"github.com/newstack-cloud/celerity-core/pkg/provider"
	"github.com/newstack-cloud/celerity-core/pkg/token"
)

type usersController struct{}

func TestExtract_ClassHandlerEntry(t *testing.T) {
	ctrl := &module.Controller{
		Token:      token.ForClass[*usersController](),
		Ctor:       provider.NewConstructor(func() *usersController { return &usersController{} }),
		Name:       "UsersController",
		PathPrefix: "/users",
		Methods: []*module.ControllerMethod{
			{Name: "List", HTTPMethod: "GET", Path: "/", IsPublic: true, Custom: map[string]any{"team": "core"}},
		},
	}
	mod := &module.Descriptor{Name: "UsersModule", Controllers: []*module.Controller{ctrl}}

	g, err := graph.Build(mod)
	require.NoError(t, err)

	m, err := Extract(g)
	require.NoError(t, err)
	require.Len(t, m.Handlers, 1)

	h := m.Handlers[0]
	assert.Equal(t, "1.0.0", m.Version)
	assert.Equal(t, "usersController_List", h.ResourceName)
	assert.Equal(t, "UsersController-List", h.Spec.HandlerName)
	assert.Equal(t, "UsersModule.UsersController.List", h.Spec.Handler)
	assert.Equal(t, "./usersmodule", h.Spec.CodeLocation)
	assert.Equal(t, true, h.Annotations["celerity.public"])
	assert.Equal(t, "core", h.Annotations["celerity.metadata.team"])
}

func TestExtract_FunctionHandlerEntry(t *testing.T) {
	fh := &module.FunctionHandlerDefinition{Name: "listWidgets", Type: module.HandlerHTTP, Path: "/widgets", Method: "GET"}
	mod := &module.Descriptor{Name: "WidgetsModule", FunctionHandlers: []*module.FunctionHandlerDefinition{fh}}

	g, err := graph.Build(mod)
	require.NoError(t, err)

	m, err := Extract(g)
	require.NoError(t, err)
	require.Len(t, m.FunctionHandlers, 1)

	e := m.FunctionHandlers[0]
	assert.Equal(t, "listWidgets", e.ResourceName)
	assert.Equal(t, "WidgetsModule.listWidgets", e.Spec.Handler)
}

func TestExtract_DependencyGraphNode(t *testing.T) {
	dbTok := token.ForClass[struct{ N int }]()
	mod := &module.Descriptor{
		Name: "Root",
		Providers: []provider.Provider{
			provider.NewFactoryProvider(dbTok, nil, func(args []any) (any, error) { return nil, nil }, nil),
		},
	}

	g, err := graph.Build(mod)
	require.NoError(t, err)

	m, err := Extract(g)
	require.NoError(t, err)
	require.Len(t, m.DependencyGraph.Nodes, 1)
	assert.Equal(t, "factory", m.DependencyGraph.Nodes[0].ProviderType)
	assert.Equal(t, "class", m.DependencyGraph.Nodes[0].TokenType)
}

func TestAnnotationValue_NonPrimitiveBecomesJSONString(t *testing.T) {
	out := annotationValue(map[string]int{"x": 1})
	s, ok := out.(string)
	require.True(t, ok)
	var decoded map[string]int
	require.NoError(t, json.Unmarshal([]byte(s), &decoded))
	assert.Equal(t, 1, decoded["x"])
}

func TestManifest_JSONAndYAMLRoundTrip(t *testing.T) {
	mod := &module.Descriptor{Name: "Empty"}
	g, err := graph.Build(mod)
	require.NoError(t, err)

	m, err := Extract(g)
	require.NoError(t, err)

	jsonBytes, err := m.JSON()
	require.NoError(t, err)
	assert.Contains(t, string(jsonBytes), `"version": "1.0.0"`)
	var fromJSON Manifest
	require.NoError(t, json.Unmarshal(jsonBytes, &fromJSON))
	assert.Equal(t, m.Version, fromJSON.Version)

	yamlBytes, err := m.YAML()
	require.NoError(t, err)
	assert.Contains(t, string(yamlBytes), "version: 1.0.0")
	var fromYAML Manifest
	require.NoError(t, yaml.Unmarshal(yamlBytes, &fromYAML))
	assert.Equal(t, m.Version, fromYAML.Version)
}
