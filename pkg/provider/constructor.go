package provider

import (
	"fmt"
	"reflect"

	"github.com/newstack-cloud/celerity-core/pkg/token"
)

// Constructor is the build-time descriptor for a class provider: the
// ordered list of constructor-parameter tokens and the code that builds an
// instance from resolved argument values. The source language reads this
// information off the class declaration itself at load time (decorators +
// reflection); the equivalent here is a static descriptor built once, by
// reflecting over a constructor function's signature.
type Constructor struct {
	Out        reflect.Type
	Deps       []token.Token
	Injectable bool
	fn         reflect.Value
	returnsErr bool
}

// NewConstructor builds a Constructor from a Go constructor function of the
// shape `func(Dep1, Dep2, ...) T` or `func(Dep1, Dep2, ...) (T, error)`. Each
// parameter's ClassToken is its own type -- the implicit injection case
// where no explicit dependency override is given. Use WithInject to
// override a position, the equivalent of an explicit Inject(T) annotation.
func NewConstructor(fn any) *Constructor {
	fv := reflect.ValueOf(fn)
	ft := fv.Type()
	if ft.Kind() != reflect.Func {
		panic(fmt.Sprintf("provider: NewConstructor requires a function, got %s", ft.Kind()))
	}
	if ft.NumOut() != 1 && !(ft.NumOut() == 2 && ft.Out(1) == errType) {
		panic("provider: constructor must return T or (T, error)")
	}

	deps := make([]token.Token, ft.NumIn())
	for i := 0; i < ft.NumIn(); i++ {
		deps[i] = token.ForType(ft.In(i))
	}

	return &Constructor{
		Out:        ft.Out(0),
		Deps:       deps,
		Injectable: true,
		fn:         fv,
		returnsErr: ft.NumOut() == 2,
	}
}

var errType = reflect.TypeOf((*error)(nil)).Elem()

// MarkNotInjectable flags the constructor as deliberately unusable for
// implicit construction -- the equivalent of a class that declares
// constructor parameters but was never decorated as `@Injectable()`. A
// container asked to build it without an explicit provider registration
// returns NotInjectableError instead of guessing at the parameters.
func (c *Constructor) MarkNotInjectable() *Constructor {
	c.Injectable = false
	return c
}

// WithInject overrides the dependency token for a single constructor
// parameter position, the equivalent of an explicit Inject(T) annotation on
// that parameter. It mutates and returns the same Constructor for chaining.
func (c *Constructor) WithInject(position int, tok token.Token) *Constructor {
	if position < 0 || position >= len(c.Deps) {
		panic(fmt.Sprintf("provider: WithInject position %d out of range [0,%d)", position, len(c.Deps)))
	}
	c.Deps[position] = tok
	return c
}

// Build invokes the constructor with resolved dependency values, in the
// declared order.
func (c *Constructor) Build(args []any) (any, error) {
	if len(args) != len(c.Deps) {
		return nil, fmt.Errorf("provider: constructor for %s expects %d args, got %d", c.Out, len(c.Deps), len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, a := range args {
		if a == nil {
			in[i] = reflect.Zero(c.fn.Type().In(i))
			continue
		}
		in[i] = reflect.ValueOf(a)
	}

	out := c.fn.Call(in)
	if c.returnsErr && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}
