// Package resolve implements the three-tier handler resolver:
// by identifier, by dynamic module reference, by route. Compiled Go
// targets have no dynamic module loader, so the "by dynamic module
// reference" tier here works purely off handlers pre-registered at build
// time under their export-qualified identifiers, instead of importing a
// file at runtime.
package resolve

import (
	"strings"
	"sync"

	"github.com/newstack-cloud/celerity-core/pkg/handler"
)

// Resolver is the three-tier lookup used by the serverless adapter and
// runtime host to map a blueprint route or identifier to a registry entry.
type Resolver struct {
	registry *handler.Registry

	mu    sync.Mutex
	cache map[string]*handler.ResolvedHandler
}

// New builds a Resolver over a populated registry.
func New(registry *handler.Registry) *Resolver {
	return &Resolver{registry: registry, cache: make(map[string]*handler.ResolvedHandler)}
}

// ByIdentifier implements tiers 1 and 2. Tier 2 (dynamic module reference)
// is reduced, for a compiled target, to a plain by-id lookup of the already
// `moduleName.exportName`-qualified identifier, falling back to a bare
// identifier qualified with `.default`.
func (r *Resolver) ByIdentifier(id string) *handler.ResolvedHandler {
	if cached, ok := r.cachedByKey("id:" + id); ok {
		return cached
	}

	if h := r.registry.GetByID(id); h != nil {
		return r.remember("id:"+id, h)
	}

	// A bare identifier (no moduleName.exportName qualification) is tried
	// once more under the `.default` export name before giving up.
	if !strings.Contains(id, ".") {
		if h := r.registry.GetByID(id + ".default"); h != nil {
			return r.remember("id:"+id, h)
		}
	}

	return nil
}

// ByRoute implements tier 3: the standard registry lookup by path and
// method.
func (r *Resolver) ByRoute(path, method string) *handler.ResolvedHandler {
	key := "route:" + method + ":" + path
	if cached, ok := r.cachedByKey(key); ok {
		return cached
	}
	if h := r.registry.GetHandler(path, method); h != nil {
		return r.remember(key, h)
	}
	return nil
}

// Resolve runs the full chain: by identifier (if id is non-empty), then by
// route, caching the first non-null result
func (r *Resolver) Resolve(id, path, method string) *handler.ResolvedHandler {
	if id != "" {
		if h := r.ByIdentifier(id); h != nil {
			return h
		}
	}
	return r.ByRoute(path, method)
}

func (r *Resolver) cachedByKey(key string) (*handler.ResolvedHandler, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.cache[key]
	return h, ok
}

func (r *Resolver) remember(key string, h *handler.ResolvedHandler) *handler.ResolvedHandler {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[key] = h
	return h
}
