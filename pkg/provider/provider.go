// Package provider implements the tagged-variant provider model: a
// description of how to produce a value for a token, as a class provider,
// a factory provider, or a value provider.
package provider

import (
	"context"

	"github.com/newstack-cloud/celerity-core/pkg/token"
)

// Variant discriminates the three provider kinds.
type Variant int

const (
	VariantClass Variant = iota
	VariantFactory
	VariantValue
)

func (v Variant) String() string {
	switch v {
	case VariantClass:
		return "class"
	case VariantFactory:
		return "factory"
	case VariantValue:
		return "value"
	default:
		return "unknown"
	}
}

// Closer releases a resource during container teardown. It is handed a
// context so an implementation may bound how long it waits, though the
// container itself never cancels it.
type Closer func(ctx context.Context) error

// Provider is the tagged-variant interface every provider kind satisfies.
type Provider interface {
	// ProvidesToken is the token this provider supplies a value for.
	ProvidesToken() token.Token
	// Dependencies returns the tokens this provider needs resolved first:
	// constructor-parameter tokens for class providers, the inject list for
	// factory providers, and nothing for value providers.
	Dependencies() []token.Token
	// Kind identifies the provider variant.
	Kind() Variant
	// CloseFunc returns the explicit onClose callback, if any was given.
	CloseFunc() Closer
}

// ClassProvider constructs an instance by invoking Ctor with its resolved
// dependencies, in order.
type ClassProvider struct {
	Token token.Token
	Ctor  *Constructor
	Close Closer
}

func NewClassProvider(tok token.Token, ctor *Constructor, close Closer) *ClassProvider {
	return &ClassProvider{Token: tok, Ctor: ctor, Close: close}
}

func (p *ClassProvider) ProvidesToken() token.Token   { return p.Token }
func (p *ClassProvider) Dependencies() []token.Token  { return p.Ctor.Deps }
func (p *ClassProvider) Kind() Variant                { return VariantClass }
func (p *ClassProvider) CloseFunc() Closer            { return p.Close }

// FactoryProvider invokes Factory with the resolved values of Inject, in
// declaration order.
type FactoryProvider struct {
	Token   token.Token
	Inject  []token.Token
	Factory func(args []any) (any, error)
	Close   Closer
}

func NewFactoryProvider(tok token.Token, inject []token.Token, factory func(args []any) (any, error), close Closer) *FactoryProvider {
	return &FactoryProvider{Token: tok, Inject: inject, Factory: factory, Close: close}
}

func (p *FactoryProvider) ProvidesToken() token.Token  { return p.Token }
func (p *FactoryProvider) Dependencies() []token.Token { return p.Inject }
func (p *FactoryProvider) Kind() Variant               { return VariantFactory }
func (p *FactoryProvider) CloseFunc() Closer           { return p.Close }

// ValueProvider supplies a pre-built value directly; it has no dependencies
// of its own. A container enters the value into its instance cache the
// first time the token is resolved (Container.RegisterValue is the eager
// path).
type ValueProvider struct {
	Token token.Token
	Value any
	Close Closer
}

func NewValueProvider(tok token.Token, value any, close Closer) *ValueProvider {
	return &ValueProvider{Token: tok, Value: value, Close: close}
}

func (p *ValueProvider) ProvidesToken() token.Token  { return p.Token }
func (p *ValueProvider) Dependencies() []token.Token { return nil }
func (p *ValueProvider) Kind() Variant               { return VariantValue }
func (p *ValueProvider) CloseFunc() Closer           { return p.Close }
