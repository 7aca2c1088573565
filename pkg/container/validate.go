package container

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/newstack-cloud/celerity-core/pkg/token"
)

// ValidateDependencies implements the container's "validation mode"
//: a static walk of every registered provider's declared
// dependencies that reports every problem found instead of stopping at the
// first one. It never constructs anything.
//
// A dependency is a problem if it has no registered provider, is not a
// known class descriptor, and is not an implicitly-constructable
// zero-parameter class, or if its only route is a known class descriptor
// with constructor parameters that is not marked injectable. Validation
// also re-detects cycles among the
// registered providers themselves, independent of any particular resolve
// call.
func (c *Container) ValidateDependencies() error {
	c.mu.Lock()
	providers := make(map[token.Token]provider_, len(c.providers))
	for tok, p := range c.providers {
		providers[tok] = p
	}
	c.mu.Unlock()

	var problems []string

	for tok, p := range providers {
		for _, dep := range p.Dependencies() {
			if problem := c.missingReason(dep, providers); problem != "" {
				problems = append(problems, fmt.Sprintf("%s depends on %s: %s", tok, dep, problem))
			}
		}
	}

	for tok := range providers {
		if chain := detectStaticCycle(tok, providers); chain != nil {
			problems = append(problems, (&CircularDependencyError{Chain: chain}).Error())
		}
	}

	if len(problems) == 0 {
		return nil
	}

	sort.Strings(problems)
	return &ValidationError{Problems: dedupe(problems)}
}

type provider_ = interface {
	Dependencies() []token.Token
}

func (c *Container) missingReason(tok token.Token, providers map[token.Token]provider_) string {
	if _, ok := providers[tok]; ok {
		return ""
	}

	classTok, isClass := tok.(token.ClassToken)
	if !isClass {
		return "no provider registered"
	}

	if ctor, found := lookupClassDescriptor(classTok.Type); found {
		if len(ctor.Deps) > 0 && !ctor.Injectable {
			return "class is not injectable and has no provider"
		}
		return ""
	}

	if classTok.Type != nil && (classTok.Type.Kind() == reflect.Ptr || classTok.Type.Kind() == reflect.Struct) {
		return ""
	}
	return "no provider registered and not a constructable class"
}

func detectStaticCycle(start token.Token, providers map[token.Token]provider_) []token.Token {
	var chain []token.Token
	visiting := map[token.Token]bool{}

	var walk func(tok token.Token) []token.Token
	walk = func(tok token.Token) []token.Token {
		if visiting[tok] {
			return append(append([]token.Token{}, chain...), tok)
		}
		p, ok := providers[tok]
		if !ok {
			return nil
		}
		visiting[tok] = true
		chain = append(chain, tok)
		defer func() {
			visiting[tok] = false
			chain = chain[:len(chain)-1]
		}()

		for _, dep := range p.Dependencies() {
			if found := walk(dep); found != nil {
				return found
			}
		}
		return nil
	}

	return walk(start)
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
