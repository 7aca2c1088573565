// Package container implements the dependency-injection container: lazy,
// singleton-cached resolution with cycle detection and LIFO teardown.
package container

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/newstack-cloud/celerity-core/pkg/provider"
	"github.com/newstack-cloud/celerity-core/pkg/token"
)

// classRegistry is the process-global, build-time-populated table of class
// constructors -- the Go equivalent of the reflect-metadata a decorator
// would attach to a class declaration. RegisterClassDescriptor populates it
// once, typically from an init() func next to the class it describes.
var (
	classRegistryMu sync.RWMutex
	classRegistry   = map[reflect.Type]*provider.Constructor{}
)

// RegisterClassDescriptor makes ctor available for implicit class
// resolution and for container.RegisterClass. It is safe to call from
// multiple init() functions; the last registration for a given type wins.
func RegisterClassDescriptor(ctor *provider.Constructor) {
	classRegistryMu.Lock()
	defer classRegistryMu.Unlock()
	classRegistry[ctor.Out] = ctor
}

func lookupClassDescriptor(t reflect.Type) (*provider.Constructor, bool) {
	classRegistryMu.RLock()
	defer classRegistryMu.RUnlock()
	ctor, ok := classRegistry[t]
	return ctor, ok
}

// LookupClassDescriptor exposes the process-global class registry to other
// packages that need the same implicit-construction policy statically --
// the module graph validator's auto-adoption step needs to know
// whether a class token would actually resolve before any container exists.
func LookupClassDescriptor(t reflect.Type) (*provider.Constructor, bool) {
	return lookupClassDescriptor(t)
}

type closeEntry struct {
	token token.Token
	close provider.Closer
}

// Container is the DI container
type Container struct {
	mu         sync.Mutex
	providers  map[token.Token]provider.Provider
	instances  map[token.Token]any
	edges      map[token.Token][]token.Token
	closeStack []closeEntry
	closed     bool

	sf singleflight.Group
}

// New creates an empty container.
func New() *Container {
	return &Container{
		providers: make(map[token.Token]provider.Provider),
		instances: make(map[token.Token]any),
		edges:     make(map[token.Token][]token.Token),
	}
}

// Register stores (or overwrites) the provider bound to token -- idempotent
// in the sense that registering the same pair twice is a no-op in effect,
// and registering a different provider for the same token simply replaces
// the prior one.
func (c *Container) Register(tok token.Token, p provider.Provider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.providers[tok] = p
}

// RegisterClass is shorthand for binding tok (which must be a ClassToken)
// to a class provider built from its registered Constructor. It panics if
// no Constructor was ever registered for that type -- use RegisterClassDescriptor
// first, or register a ClassProvider built by hand.
func (c *Container) RegisterClass(tok token.ClassToken) {
	ctor, ok := lookupClassDescriptor(tok.Type)
	if !ok {
		panic(fmt.Sprintf("container: RegisterClass(%s): no constructor registered; call RegisterClassDescriptor first", tok))
	}
	c.Register(tok, provider.NewClassProvider(tok, ctor, nil))
}

// RegisterValue eagerly enters value into the instance cache under tok and
// tracks it for teardown -- it never goes through resolve().
func (c *Container) RegisterValue(tok token.Token, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.instances[tok] = value
	if closer := provider.DetectCloser(value); closer != nil {
		c.closeStack = append(c.closeStack, closeEntry{token: tok, close: closer})
	}
}

// Has reports whether tok is either registered or already instantiated.
func (c *Container) Has(tok token.Token) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.instances[tok]; ok {
		return true
	}
	_, ok := c.providers[tok]
	return ok
}

// GetDependencies returns the dependency tokens observed the last time tok
// was constructed, for diagnostics (e.g. tooling that wants to draw the
// resolved graph).
func (c *Container) GetDependencies(tok token.Token) []token.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	deps := c.edges[tok]
	out := make([]token.Token, len(deps))
	copy(out, deps)
	return out
}

// Resolve returns the cached singleton for tok, constructing it (and its
// dependencies) on first access.
func (c *Container) Resolve(ctx context.Context, tok token.Token) (any, error) {
	return c.resolve(ctx, tok, nil)
}

// ResolveClass is Resolve for a class token built from a type parameter,
// bypassing any registered provider lookup shortcut concerns -- it is
// exactly Resolve, spelled for call sites that only have a Go type.
func ResolveClass[T any](ctx context.Context, c *Container) (T, error) {
	var zero T
	tok := token.ForClass[T]()
	v, err := c.Resolve(ctx, tok)
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("container: resolved value for %s has unexpected type %T", tok, v)
	}
	return out, nil
}

func (c *Container) resolve(ctx context.Context, tok token.Token, chain []token.Token) (any, error) {
	c.mu.Lock()
	if v, ok := c.instances[tok]; ok {
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	for _, ancestor := range chain {
		if ancestor == tok {
			return nil, &CircularDependencyError{Chain: append(append([]token.Token{}, chain...), tok)}
		}
	}
	nextChain := append(append([]token.Token{}, chain...), tok)

	type result struct {
		value any
		err   error
	}
	v, err, _ := c.sf.Do(token.Key(tok), func() (any, error) {
		// Re-check the cache: a sibling resolution may have completed and
		// populated it while we waited to enter singleflight.
		c.mu.Lock()
		if v, ok := c.instances[tok]; ok {
			c.mu.Unlock()
			return result{value: v}, nil
		}
		c.mu.Unlock()

		built, deps, err := c.construct(ctx, tok, nextChain)
		if err != nil {
			return result{err: err}, nil
		}

		c.mu.Lock()
		c.instances[tok] = built
		c.edges[tok] = deps
		if closer := c.closerFor(tok, built); closer != nil {
			c.closeStack = append(c.closeStack, closeEntry{token: tok, close: closer})
		}
		c.mu.Unlock()

		return result{value: built}, nil
	})
	if err != nil {
		return nil, err
	}
	r := v.(result)
	if r.err != nil {
		return nil, r.err
	}
	return r.value, nil
}

func (c *Container) closerFor(tok token.Token, built any) provider.Closer {
	c.mu.Lock()
	p, hasProvider := c.providers[tok]
	c.mu.Unlock()

	if hasProvider {
		if closer := p.CloseFunc(); closer != nil {
			return closer
		}
	}
	return provider.DetectCloser(built)
}

// construct builds the value for tok (and recursively its dependencies),
// returning the dependency tokens it observed so the caller can record
// them for GetDependencies.
func (c *Container) construct(ctx context.Context, tok token.Token, chain []token.Token) (any, []token.Token, error) {
	c.mu.Lock()
	p, ok := c.providers[tok]
	c.mu.Unlock()

	if !ok {
		return c.constructImplicit(ctx, tok, chain)
	}

	switch p.Kind() {
	case provider.VariantValue:
		vp := p.(*provider.ValueProvider)
		return vp.Value, nil, nil

	case provider.VariantClass:
		cp := p.(*provider.ClassProvider)
		args, deps, err := c.resolveSequential(ctx, cp.Ctor.Deps, chain)
		if err != nil {
			return nil, nil, err
		}
		built, err := cp.Ctor.Build(args)
		if err != nil {
			return nil, nil, err
		}
		return built, deps, nil

	case provider.VariantFactory:
		fp := p.(*provider.FactoryProvider)
		args, deps, err := c.resolveParallel(ctx, fp.Inject, chain)
		if err != nil {
			return nil, nil, err
		}
		built, err := fp.Factory(args)
		if err != nil {
			return nil, nil, err
		}
		return built, deps, nil

	default:
		return nil, nil, fmt.Errorf("container: unknown provider kind %v for %s", p.Kind(), tok)
	}
}

func (c *Container) constructImplicit(ctx context.Context, tok token.Token, chain []token.Token) (any, []token.Token, error) {
	classTok, ok := tok.(token.ClassToken)
	if !ok {
		return nil, nil, &NoProviderError{Token: tok}
	}

	if ctor, found := lookupClassDescriptor(classTok.Type); found {
		if len(ctor.Deps) > 0 && !ctor.Injectable {
			return nil, nil, &NotInjectableError{Token: tok}
		}
		args, deps, err := c.resolveSequential(ctx, ctor.Deps, chain)
		if err != nil {
			return nil, nil, err
		}
		built, err := ctor.Build(args)
		if err != nil {
			return nil, nil, err
		}
		return built, deps, nil
	}

	// No descriptor at all: treat as a zero-constructor-parameter class,
	// always implicitly constructable
	if classTok.Type == nil {
		return nil, nil, &NoProviderError{Token: tok}
	}
	switch classTok.Type.Kind() {
	case reflect.Ptr:
		return reflect.New(classTok.Type.Elem()).Interface(), nil, nil
	case reflect.Struct:
		return reflect.New(classTok.Type).Elem().Interface(), nil, nil
	default:
		return nil, nil, &NoProviderError{Token: tok}
	}
}

func (c *Container) resolveSequential(ctx context.Context, deps []token.Token, chain []token.Token) ([]any, []token.Token, error) {
	args := make([]any, len(deps))
	for i, d := range deps {
		v, err := c.resolve(ctx, d, chain)
		if err != nil {
			return nil, nil, err
		}
		args[i] = v
	}
	return args, deps, nil
}

// resolveParallel resolves factory-provider `inject` tokens concurrently --
// safe because the *resolving* chain already guards against cycles and each
// token is independently singleton-cached.
func (c *Container) resolveParallel(ctx context.Context, deps []token.Token, chain []token.Token) ([]any, []token.Token, error) {
	args := make([]any, len(deps))
	errs := make([]error, len(deps))

	var wg sync.WaitGroup
	for i, d := range deps {
		wg.Add(1)
		go func(i int, d token.Token) {
			defer wg.Done()
			v, err := c.resolve(ctx, d, chain)
			if err != nil {
				errs[i] = err
				return
			}
			args[i] = v
		}(i, d)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, nil, err
		}
	}
	return args, deps, nil
}

// CloseAll releases every tracked resource in LIFO order with respect to
// instance-cache insertion, swallowing individual closer errors so later
// resources still get a chance to release. It is a no-op on subsequent
// calls.
func (c *Container) CloseAll(ctx context.Context) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	stack := c.closeStack
	c.closeStack = nil
	c.instances = make(map[token.Token]any)
	c.edges = make(map[token.Token][]token.Token)
	c.closed = true
	c.mu.Unlock()

	for i := len(stack) - 1; i >= 0; i-- {
		entry := stack[i]
		func() {
			defer func() { _ = recover() }()
			_ = entry.close(ctx)
		}()
	}
}
