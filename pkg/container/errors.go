package container

import (
	"errors"
	"fmt"
	"strings"

	"github.com/newstack-cloud/celerity-core/pkg/token"
)

// Sentinel errors surfaced at resolve time. Bootstrap and
// request-dispatch callers use errors.Is against these.
var (
	ErrNoProvider         = errors.New("container: no provider for token")
	ErrNotInjectable      = errors.New("container: class is not injectable")
	ErrCircularDependency = errors.New("container: circular dependency")
)

// NoProviderError names the token with no provider and no implicit
// construction path.
type NoProviderError struct {
	Token token.Token
}

func (e *NoProviderError) Error() string {
	return fmt.Sprintf("no provider registered for %q and it is not a constructable class", e.Token)
}

func (e *NoProviderError) Unwrap() error { return ErrNoProvider }

// NotInjectableError names a class with no registered provider whose class
// descriptor declares constructor parameters but is not marked injectable.
type NotInjectableError struct {
	Token token.Token
}

func (e *NotInjectableError) Error() string {
	return fmt.Sprintf("class %q has constructor parameters but is not marked injectable", e.Token)
}

func (e *NotInjectableError) Unwrap() error { return ErrNotInjectable }

// CircularDependencyError carries the resolution chain that closed the
// cycle, in encounter order, ending with the token that re-triggered it.
type CircularDependencyError struct {
	Chain []token.Token
}

func (e *CircularDependencyError) Error() string {
	parts := make([]string, len(e.Chain))
	for i, t := range e.Chain {
		parts[i] = t.String()
	}
	return fmt.Sprintf("circular dependency: %s", strings.Join(parts, " -> "))
}

func (e *CircularDependencyError) Unwrap() error { return ErrCircularDependency }

// ValidationError aggregates every problem `validateDependencies` found, so
// bootstrap reports everything in one failure instead of stopping at the
// first diagnostic.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("dependency validation failed:\n  %s", strings.Join(e.Problems, "\n  "))
}
