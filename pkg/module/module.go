// Package module defines the declarative data model the graph builder,
// handler registry, and manifest extractor all walk: modules, controllers,
// and function-handler definitions.
package module

import (
	"github.com/newstack-cloud/celerity-core/pkg/provider"
	"github.com/newstack-cloud/celerity-core/pkg/token"
)

// LayerRef is an attached layer reference: either a class identity
// (instantiated with a zero-argument constructor when the handler registry
// flattens the handler; that one instance then serves every request, no
// fresh instance is made per pipeline run) or an already-built instance
// (reused as-is)
type LayerRef struct {
	Class    token.ClassToken
	Instance any
}

// ClassLayerRef attaches a layer by class identity.
func ClassLayerRef(t token.ClassToken) LayerRef { return LayerRef{Class: t} }

// InstanceLayerRef attaches an already-constructed layer instance.
func InstanceLayerRef(instance any) LayerRef { return LayerRef{Instance: instance} }

// IsClass reports whether this reference names a class rather than
// carrying a concrete instance.
func (r LayerRef) IsClass() bool { return r.Instance == nil }

// Descriptor is a module node: the unit the graph builder walks. A
// *Descriptor's pointer identity stands in for the "module class" identity
// of the source ecosystem -- two imports of the same *Descriptor dedupe by
// pointer equality exactly as two imports of the same class would.
type Descriptor struct {
	// Name is used for diagnostics and for the manifest's derived
	// `moduleBaseName`.
	Name string

	// Providers are this module's own class/factory/value providers.
	Providers []provider.Provider

	// Controllers are this module's own controllers.
	Controllers []*Controller

	// FunctionHandlers are this module's own function-handler definitions.
	FunctionHandlers []*FunctionHandlerDefinition

	// Imports are the modules this module's own tokens may depend on.
	Imports []*Descriptor

	// Exports is the subset of own-tokens visible to importers.
	Exports []token.Token
}

// OwnTokens returns the union of this module's providers' tokens and its
// controllers' tokens.
func (d *Descriptor) OwnTokens() []token.Token {
	toks := make([]token.Token, 0, len(d.Providers)+len(d.Controllers))
	for _, p := range d.Providers {
		toks = append(toks, p.ProvidesToken())
	}
	for _, c := range d.Controllers {
		toks = append(toks, c.Token)
	}
	return toks
}

// Controller is a class annotated with a routing prefix plus per-method
// routing metadata.
type Controller struct {
	Token       token.ClassToken
	Ctor        *provider.Constructor
	Name        string
	PathPrefix  string
	ProtectedBy []string
	Layers      []LayerRef
	Custom      map[string]any
	Methods     []*ControllerMethod
}

// ParamLocation names where a controller-method or function-handler
// parameter is extracted from.
type ParamLocation int

const (
	ParamBody ParamLocation = iota
	ParamQuery
	ParamParams
	ParamHeaders
	ParamAuth
	ParamRequestID
	ParamRequest
	ParamCookies
	ParamHandlerContext
)

// ParamDescriptor is a per-method parameter-extraction descriptor.
type ParamDescriptor struct {
	Index    int
	Location ParamLocation
	// Key, when non-empty, extracts a single property out of the located
	// value instead of passing the whole thing.
	Key string
	// Schema, when non-nil, marks this parameter for validation-layer
	// prepending.
	Schema any
}

// ControllerMethodFunc is the callable shape of a bound controller method:
// receiver is the controller instance resolved from the container, args
// are already-extracted and ordered by parameter index.
type ControllerMethodFunc func(receiver any, args []any) (any, error)

// ControllerMethod carries one routable method's metadata.
type ControllerMethod struct {
	Name        string
	HTTPMethod  string
	Path        string
	ProtectedBy []string
	Layers      []LayerRef
	Custom      map[string]any
	IsPublic    bool
	Params      []ParamDescriptor
	Invoke      ControllerMethodFunc
}

// HandlerType discriminates a function-handler definition's wire
// protocol. Only HandlerHTTP is in scope.
type HandlerType string

const HandlerHTTP HandlerType = "http"

// SchemaSet holds the optional per-location validation schemas a function
// handler's metadata bag may declare.
type SchemaSet struct {
	Body    any
	Query   any
	Params  any
	Headers any
}

// HasAny reports whether at least one location carries a schema, the
// trigger for validation-layer prepending.
func (s SchemaSet) HasAny() bool {
	return s.Body != nil || s.Query != nil || s.Params != nil || s.Headers != nil
}

// FunctionHandlerDefinition is the tagged record: an invocable
// function plus a metadata bag.
type FunctionHandlerDefinition struct {
	Name    string
	Type    HandlerType
	Path    string
	Method  string
	Schemas SchemaSet
	Layers  []LayerRef
	Inject  []token.Token
	Custom  map[string]any
	ID      string
	Fn      any // httpmodel.FunctionHandlerFunc; held as `any` to avoid an import cycle.
}
