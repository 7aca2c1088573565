// Package handler implements the handler registry:
// materialising controllers and function-handler definitions from a
// module graph into dispatch-ready resolved handlers.
package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/newstack-cloud/celerity-core/pkg/container"
	"github.com/newstack-cloud/celerity-core/pkg/layer"
	"github.com/newstack-cloud/celerity-core/pkg/module"
	"github.com/newstack-cloud/celerity-core/pkg/token"
)

// ResolvedHandler is the dispatch-ready record flattened from either a
// controller method or a function-handler definition.
type ResolvedHandler struct {
	Path           string
	Method         string
	ID             string
	ProtectedBy    []string
	Layers         []layer.Layer
	IsPublic       bool
	CustomMetadata map[string]any
	Params         []module.ParamDescriptor

	// IsFunction discriminates the two origins below.
	IsFunction bool

	// Controller-handler fields.
	Receiver any
	Invoke   module.ControllerMethodFunc

	// Function-handler fields.
	Fn     any // httpmodel.FunctionHandlerFunc
	Inject []token.Token
}

// Registry holds every resolved handler materialised from a module graph.
type Registry struct {
	Handlers []*ResolvedHandler
}

// Populate walks every module node in the graph, resolving each
// controller's instance through c and flattening its routable methods plus
// every function-handler definition into the registry.
func Populate(ctx context.Context, modules []*module.Descriptor, c *container.Container) (*Registry, error) {
	reg := &Registry{}

	for _, m := range modules {
		for _, ctrl := range m.Controllers {
			instance, err := c.Resolve(ctx, ctrl.Token)
			if err != nil {
				return nil, fmt.Errorf("handler: resolving controller %s: %w", ctrl.Token, err)
			}
			for _, method := range ctrl.Methods {
				rh, err := flattenControllerMethod(ctrl, method, instance)
				if err != nil {
					return nil, err
				}
				reg.Handlers = append(reg.Handlers, rh)
			}
		}
		for _, fh := range m.FunctionHandlers {
			if fh.Type != module.HandlerHTTP {
				continue
			}
			rh, err := flattenFunctionHandler(fh)
			if err != nil {
				return nil, err
			}
			reg.Handlers = append(reg.Handlers, rh)
		}
	}

	return reg, nil
}

func flattenControllerMethod(ctrl *module.Controller, method *module.ControllerMethod, instance any) (*ResolvedHandler, error) {
	fullPath, err := joinPath(ctrl.PathPrefix, method.Path)
	if err != nil {
		return nil, err
	}

	protectedBy := append(append([]string{}, ctrl.ProtectedBy...), method.ProtectedBy...)
	custom := mergeCustom(ctrl.Custom, method.Custom)

	layerRefs := append(append([]module.LayerRef{}, ctrl.Layers...), method.Layers...)
	layers, err := resolveHandlerLayers(layerRefs, paramSchemas(method.Params))
	if err != nil {
		return nil, err
	}

	return &ResolvedHandler{
		Path:           fullPath,
		Method:         method.HTTPMethod,
		ProtectedBy:    protectedBy,
		Layers:         layers,
		IsPublic:       method.IsPublic,
		CustomMetadata: custom,
		Params:         method.Params,
		Receiver:       instance,
		Invoke:         method.Invoke,
	}, nil
}

func flattenFunctionHandler(fh *module.FunctionHandlerDefinition) (*ResolvedHandler, error) {
	layers, err := resolveHandlerLayers(fh.Layers, schemaSetRefs(fh.Schemas))
	if err != nil {
		return nil, err
	}

	return &ResolvedHandler{
		Path:           fh.Path,
		Method:         fh.Method,
		ID:             fh.ID,
		CustomMetadata: fh.Custom,
		Layers:         layers,
		IsFunction:     true,
		Fn:             fh.Fn,
		Inject:         fh.Inject,
	}, nil
}

// paramSchemas collects validation schemas from parameter descriptors
// (controller case), keyed by location.
func paramSchemas(params []module.ParamDescriptor) *layer.ValidationLayer {
	v := &layer.ValidationLayer{}
	for _, p := range params {
		if p.Schema == nil {
			continue
		}
		validator, ok := p.Schema.(interface {
			Parse(raw any) (any, error)
		})
		if !ok {
			continue
		}
		switch p.Location {
		case module.ParamBody:
			v.Body = validator
		case module.ParamQuery:
			v.Query = validator
		case module.ParamParams:
			v.Params = validator
		case module.ParamHeaders:
			v.Headers = validator
		}
	}
	return v
}

func schemaSetRefs(s module.SchemaSet) *layer.ValidationLayer {
	v := &layer.ValidationLayer{}
	if val, ok := s.Body.(interface{ Parse(raw any) (any, error) }); ok {
		v.Body = val
	}
	if val, ok := s.Query.(interface{ Parse(raw any) (any, error) }); ok {
		v.Query = val
	}
	if val, ok := s.Params.(interface{ Parse(raw any) (any, error) }); ok {
		v.Params = val
	}
	if val, ok := s.Headers.(interface{ Parse(raw any) (any, error) }); ok {
		v.Headers = val
	}
	return v
}

// resolveHandlerLayers resolves refs into concrete layers and, if
// validation prepends, the validation layer.
func resolveHandlerLayers(refs []module.LayerRef, validation *layer.ValidationLayer) ([]layer.Layer, error) {
	resolved, err := layer.ResolveAll(refs)
	if err != nil {
		return nil, err
	}
	if validation != nil && validation.HasAny() {
		return append([]layer.Layer{validation}, resolved...), nil
	}
	return resolved, nil
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

// joinPath implements the normalisation rule: strip repeated
// separators, ensure a leading slash, strip a trailing slash unless the
// result would be empty.
func joinPath(prefix, sub string) (string, error) {
	joined := strings.TrimSuffix(prefix, "/") + "/" + strings.TrimPrefix(sub, "/")

	var b strings.Builder
	lastWasSlash := false
	for _, r := range joined {
		if r == '/' {
			if lastWasSlash {
				continue
			}
			lastWasSlash = true
		} else {
			lastWasSlash = false
		}
		b.WriteRune(r)
	}
	out := b.String()

	if !strings.HasPrefix(out, "/") {
		out = "/" + out
	}
	if len(out) > 1 {
		out = strings.TrimSuffix(out, "/")
	}
	if out == "" {
		out = "/"
	}
	return out, nil
}

// GetHandler implements the route-matching rule: split
// pattern and actual path into non-empty segments, require equal count,
// match `{param}` segments against any actual segment, otherwise require
// literal equality; method compared exactly.
func (r *Registry) GetHandler(path, method string) *ResolvedHandler {
	actual := segments(path)
	for _, h := range r.Handlers {
		if h.Method != method || h.Path == "" {
			continue
		}
		pattern := segments(h.Path)
		if len(pattern) != len(actual) {
			continue
		}
		if matchesSegments(pattern, actual) {
			return h
		}
	}
	return nil
}

func matchesSegments(pattern, actual []string) bool {
	for i, p := range pattern {
		if strings.HasPrefix(p, "{") {
			continue
		}
		if p != actual[i] {
			return false
		}
	}
	return true
}

func segments(path string) []string {
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// GetByID performs the linear by-id lookup
func (r *Registry) GetByID(id string) *ResolvedHandler {
	for _, h := range r.Handlers {
		if h.ID == id {
			return h
		}
	}
	return nil
}
