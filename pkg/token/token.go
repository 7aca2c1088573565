// Package token implements the identifier model used to look up providers
// in the DI container. A token identifies a slot: a class
// identity, a string name, or a symbolic handle carrying a description.
package token

import (
	"fmt"
	"reflect"
)

// Token identifies a slot in the container. The three concrete
// implementations below are all comparable, so a Token can be used directly
// as a map key -- which is how the container, the module graph and the
// manifest extractor all index by token.
type Token interface {
	isToken()
	// String renders the token the way the manifest extractor serialises
	// it: the class name, the string value, or the symbol's description.
	String() string
}

// ClassToken identifies a slot by Go type identity. Two ClassTokens compare
// equal iff they carry the same reflect.Type.
type ClassToken struct {
	Type reflect.Type
}

func (ClassToken) isToken() {}

func (c ClassToken) String() string {
	if c.Type == nil {
		return "<nil class>"
	}
	return c.Type.String()
}

// ForType builds a ClassToken for a reflect.Type directly.
func ForType(t reflect.Type) ClassToken {
	return ClassToken{Type: t}
}

// ForClass builds a ClassToken for the type parameter T. T is normally an
// interface or a pointer-to-struct, matching how constructors are typed.
func ForClass[T any]() ClassToken {
	return ClassToken{Type: reflect.TypeOf((*T)(nil)).Elem()}
}

// NameToken identifies a slot by a plain string name, compared by value.
type NameToken string

func (NameToken) isToken() {}

func (n NameToken) String() string { return string(n) }

// Name builds a NameToken.
func Name(name string) NameToken { return NameToken(name) }

// symbol is the private identity behind a SymbolToken; two SymbolTokens
// only compare equal if they share the same *symbol, never by description.
type symbol struct {
	description string
}

// SymbolToken identifies a slot by a unique symbolic handle carrying a
// human-readable description, compared by identity.
type SymbolToken struct {
	sym *symbol
}

func (SymbolToken) isToken() {}

func (s SymbolToken) String() string {
	if s.sym == nil {
		return "<empty symbol>"
	}
	return s.sym.description
}

// Symbol mints a new, unique SymbolToken with the given description.
func Symbol(description string) SymbolToken {
	return SymbolToken{sym: &symbol{description: description}}
}

// IsClass reports whether t is a ClassToken, the distinction the module
// graph validator and the DI container both need: unknown class tokens are
// eligible for auto-adoption / implicit construction, unknown non-class
// tokens are not.
func IsClass(t Token) bool {
	_, ok := t.(ClassToken)
	return ok
}

// Key renders a token to a string guaranteed to be unique per distinct
// token identity (not just per description), for callers that need a
// string map key -- e.g. collapsing concurrent first-resolutions of the
// same token in the DI container. Two SymbolTokens with identical
// descriptions still produce different keys.
func Key(t Token) string {
	switch v := t.(type) {
	case ClassToken:
		if v.Type == nil {
			return "class:<nil>"
		}
		return fmt.Sprintf("class:%s@%p", v.Type.String(), v.Type)
	case NameToken:
		return "name:" + string(v)
	case SymbolToken:
		return fmt.Sprintf("symbol:%p", v.sym)
	default:
		return fmt.Sprintf("unknown:%v", t)
	}
}

// Equal reports whether two tokens refer to the same slot. It exists
// alongside plain `==` because callers sometimes hold a Token interface
// value that may be incomparable in theory (never in practice here, since
// all three concrete kinds are comparable) -- Equal documents the intent.
func Equal(a, b Token) bool {
	return a == b
}
