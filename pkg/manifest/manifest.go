// Package manifest implements the manifest extractor: a walk
// of the same module graph the handler registry walks, but without
// instantiating any controller or provider, producing a serialisable
// deployment descriptor.
package manifest

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/newstack-cloud/celerity-core/pkg/graph"
	"github.com/newstack-cloud/celerity-core/pkg/module"
	"github.com/newstack-cloud/celerity-core/pkg/provider"
	"github.com/newstack-cloud/celerity-core/pkg/token"
)

const SchemaVersion = "1.0.0"

// HandlerSpec is the nested `spec` object common to both handler entry
// kinds.
type HandlerSpec struct {
	HandlerName string `json:"handlerName" yaml:"handlerName"`
	CodeLocation string `json:"codeLocation" yaml:"codeLocation"`
	Handler     string `json:"handler" yaml:"handler"`
	Timeout     *int   `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// ClassHandlerEntry describes one routable controller method.
type ClassHandlerEntry struct {
	ResourceName string            `json:"resourceName" yaml:"resourceName"`
	ClassName    string            `json:"className" yaml:"className"`
	MethodName   string            `json:"methodName" yaml:"methodName"`
	SourceFile   string            `json:"sourceFile" yaml:"sourceFile"`
	HandlerType  string            `json:"handlerType" yaml:"handlerType"`
	Annotations  map[string]any    `json:"annotations" yaml:"annotations"`
	Spec         HandlerSpec       `json:"spec" yaml:"spec"`
}

// FunctionHandlerEntry describes one function-handler definition.
type FunctionHandlerEntry struct {
	ResourceName string         `json:"resourceName" yaml:"resourceName"`
	ExportName   string         `json:"exportName" yaml:"exportName"`
	SourceFile   string         `json:"sourceFile" yaml:"sourceFile"`
	Annotations  map[string]any `json:"annotations,omitempty" yaml:"annotations,omitempty"`
	Spec         HandlerSpec    `json:"spec" yaml:"spec"`
}

// DependencyNode describes one token in the dependency graph.
type DependencyNode struct {
	Token        string   `json:"token" yaml:"token"`
	TokenType    string   `json:"tokenType" yaml:"tokenType"`
	ProviderType string   `json:"providerType" yaml:"providerType"`
	Dependencies []string `json:"dependencies" yaml:"dependencies"`
}

// DependencyGraph wraps the node list, the manifest's nested
// `dependencyGraph` object.
type DependencyGraph struct {
	Nodes []DependencyNode `json:"nodes" yaml:"nodes"`
}

// Manifest is the full deployment descriptor.
type Manifest struct {
	Version          string                  `json:"version" yaml:"version"`
	Handlers         []ClassHandlerEntry     `json:"handlers" yaml:"handlers"`
	FunctionHandlers []FunctionHandlerEntry  `json:"functionHandlers" yaml:"functionHandlers"`
	DependencyGraph  DependencyGraph         `json:"dependencyGraph" yaml:"dependencyGraph"`
}

// JSON serialises the manifest to its schema-version-1.0.0 JSON document.
func (m *Manifest) JSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// YAML is an additive encoding alongside JSON, for deployment tooling in
// this ecosystem that prefers YAML blueprints over JSON.
func (m *Manifest) YAML() ([]byte, error) {
	return yaml.Marshal(m)
}

// Extract walks g (built by pkg/graph.Build, without ever resolving
// anything through a container) and produces the manifest
func Extract(g *graph.Graph) (*Manifest, error) {
	m := &Manifest{Version: SchemaVersion}

	for _, mod := range g.Order {
		base := moduleBaseName(mod)
		codeLocation := "./" + strings.ToLower(base)

		for _, ctrl := range mod.Controllers {
			for _, method := range ctrl.Methods {
				resourceName := camel(ctrl.Name) + "_" + method.Name
				handlerName := ctrl.Name + "-" + method.Name
				handlerRef := fmt.Sprintf("%s.%s.%s", base, ctrl.Name, method.Name)

				m.Handlers = append(m.Handlers, ClassHandlerEntry{
					ResourceName: resourceName,
					ClassName:    ctrl.Name,
					MethodName:   method.Name,
					SourceFile:   base,
					HandlerType:  "http",
					Annotations:  classAnnotations(ctrl, method),
					Spec: HandlerSpec{
						HandlerName:  handlerName,
						CodeLocation: codeLocation,
						Handler:      handlerRef,
					},
				})
			}

			m.DependencyGraph.Nodes = append(m.DependencyGraph.Nodes, classDependencyNode(ctrl.Token, ctrl.Ctor))
		}

		for _, fh := range mod.FunctionHandlers {
			if fh.Type != module.HandlerHTTP {
				continue
			}
			resourceName := fh.Name
			handlerRef := fmt.Sprintf("%s.%s", base, fh.Name)

			m.FunctionHandlers = append(m.FunctionHandlers, FunctionHandlerEntry{
				ResourceName: resourceName,
				ExportName:   fh.Name,
				SourceFile:   base,
				Annotations:  functionAnnotations(fh),
				Spec: HandlerSpec{
					HandlerName:  fh.Name,
					CodeLocation: codeLocation,
					Handler:      handlerRef,
				},
			})
		}

		for _, p := range mod.Providers {
			m.DependencyGraph.Nodes = append(m.DependencyGraph.Nodes, providerDependencyNode(p))
		}
	}

	return m, nil
}

func moduleBaseName(m *module.Descriptor) string {
	if m.Name != "" {
		return m.Name
	}
	return "module"
}

func camel(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func classAnnotations(ctrl *module.Controller, method *module.ControllerMethod) map[string]any {
	out := map[string]any{
		"celerity.handler.http":        true,
		"celerity.handler.http.method":  method.HTTPMethod,
		"celerity.handler.http.path":    method.Path,
		"celerity.public":               method.IsPublic,
	}
	protectedBy := append(append([]string{}, ctrl.ProtectedBy...), method.ProtectedBy...)
	if len(protectedBy) > 0 {
		out["celerity.guard.protectedBy"] = protectedBy
	}

	custom := mergeCustom(ctrl.Custom, method.Custom)
	for k, v := range custom {
		out["celerity.metadata."+k] = annotationValue(v)
	}
	if len(custom) > 0 {
		out["celerity.guard.custom"] = true
	}
	return out
}

func functionAnnotations(fh *module.FunctionHandlerDefinition) map[string]any {
	out := map[string]any{
		"celerity.handler.http":       true,
		"celerity.handler.http.path":  fh.Path,
	}
	if fh.Method != "" {
		out["celerity.handler.http.method"] = fh.Method
	}
	for k, v := range fh.Custom {
		out["celerity.metadata."+k] = annotationValue(v)
	}
	return out
}

// annotationValue coerces a custom metadata value into an annotation:
// strings, string arrays, and booleans pass through; anything else is
// serialised to a compact JSON string.
func annotationValue(v any) any {
	switch val := v.(type) {
	case string, bool, []string:
		return val
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	}
}

func mergeCustom(class, method map[string]any) map[string]any {
	merged := make(map[string]any, len(class)+len(method))
	for k, v := range class {
		merged[k] = v
	}
	for k, v := range method {
		merged[k] = v
	}
	return merged
}

func classDependencyNode(tok token.Token, ctor *provider.Constructor) DependencyNode {
	var deps []string
	if ctor != nil {
		deps = tokenStrings(ctor.Deps)
	}
	return DependencyNode{
		Token:        tok.String(),
		TokenType:    tokenType(tok),
		ProviderType: "class",
		Dependencies: deps,
	}
}

func providerDependencyNode(p provider.Provider) DependencyNode {
	return DependencyNode{
		Token:        p.ProvidesToken().String(),
		TokenType:    tokenType(p.ProvidesToken()),
		ProviderType: p.Kind().String(),
		Dependencies: tokenStrings(p.Dependencies()),
	}
}

func tokenStrings(toks []token.Token) []string {
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.String()
	}
	return out
}

func tokenType(t token.Token) string {
	switch t.(type) {
	case token.ClassToken:
		return "class"
	case token.NameToken:
		return "string"
	case token.SymbolToken:
		return "symbol"
	default:
		return "unknown"
	}
}
