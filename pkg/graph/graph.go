// Package graph implements the module graph builder and validator: a
// depth-first walk from a root module that produces a
// dependency-first-ordered graph, followed by an export-boundary and
// missing-dependency check over it.
package graph

import (
	"fmt"
	"strings"

	"github.com/newstack-cloud/celerity-core/pkg/module"
	"github.com/newstack-cloud/celerity-core/pkg/token"
)

// Node is a populated module graph node: a module.Descriptor plus its
// computed visible-token set (filled in during validation).
type Node struct {
	Module  *module.Descriptor
	Visible map[token.Token]bool
}

// Graph is the product of Build: every reachable module, plus the order in
// which they were fully populated (children before parents).
type Graph struct {
	Root  *module.Descriptor
	Nodes map[*module.Descriptor]*Node
	// Order lists modules in dependency-first order: a module never
	// appears before all of its imports.
	Order []*module.Descriptor
}

// CircularModuleImportError is raised when the DFS revisits a module still
// on its own recursion stack.
type CircularModuleImportError struct {
	Chain []string
}

func (e *CircularModuleImportError) Error() string {
	return fmt.Sprintf("circular module import: %s", strings.Join(e.Chain, " -> "))
}

// Build performs the depth-first traversal,
// maintaining a *resolving* stack and a *done* set so that a diamond
// import (two modules importing the same leaf) visits the leaf only once.
func Build(root *module.Descriptor) (*Graph, error) {
	g := &Graph{Root: root, Nodes: make(map[*module.Descriptor]*Node)}

	resolving := map[*module.Descriptor]bool{}
	done := map[*module.Descriptor]bool{}
	var stack []*module.Descriptor

	var visit func(m *module.Descriptor) error
	visit = func(m *module.Descriptor) error {
		if done[m] {
			return nil
		}
		if resolving[m] {
			chain := make([]string, 0, len(stack)+1)
			for _, s := range stack {
				chain = append(chain, displayName(s))
			}
			chain = append(chain, displayName(m))
			return &CircularModuleImportError{Chain: chain}
		}

		resolving[m] = true
		stack = append(stack, m)
		for _, imp := range m.Imports {
			if err := visit(imp); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]

		g.Nodes[m] = &Node{Module: m}
		g.Order = append(g.Order, m)

		resolving[m] = false
		done[m] = true
		return nil
	}

	if err := visit(root); err != nil {
		return nil, err
	}
	return g, nil
}

func displayName(m *module.Descriptor) string {
	if m.Name != "" {
		return m.Name
	}
	return fmt.Sprintf("module@%p", m)
}
