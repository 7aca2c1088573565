// Package layer implements the composable middleware pipeline: a
// cooperative, single-threaded chain of layers wrapped around a terminal
// handler invocation, with one-shot `next()` semantics.
package layer

import (
	"fmt"

	"github.com/newstack-cloud/celerity-core/pkg/httpmodel"
)

// Next invokes the remainder of the pipeline and returns its result. It is
// one-shot: calling it a second time from the same layer fails with
// NextCalledMultipleTimes.
type Next func() (any, error)

// Layer implements a single pipeline operation.
type Layer interface {
	Handle(hctx *httpmodel.HandlerContext, next Next) (any, error)
}

// LayerFunc adapts a plain function to the Layer interface, the way
// http.HandlerFunc adapts a function to http.Handler.
type LayerFunc func(hctx *httpmodel.HandlerContext, next Next) (any, error)

func (f LayerFunc) Handle(hctx *httpmodel.HandlerContext, next Next) (any, error) {
	return f(hctx, next)
}

// NextCalledMultipleTimesError is raised when a layer invokes its next()
// more than once.
type NextCalledMultipleTimesError struct {
	Index int
}

func (e *NextCalledMultipleTimesError) Error() string {
	return fmt.Sprintf("layer at position %d called next() more than once", e.Index)
}

// Terminal is the handler invocation the pipeline ultimately wraps around.
type Terminal func(hctx *httpmodel.HandlerContext) (any, error)

// Run executes layers around terminal, in registration order outside-in.
// A layer may short-circuit by never calling next; its returned value
// becomes the pipeline result.
func Run(layers []Layer, hctx *httpmodel.HandlerContext, terminal Terminal) (any, error) {
	p := &pipeline{layers: layers, hctx: hctx, terminal: terminal, index: -1}
	return p.dispatch(0)
}

type pipeline struct {
	layers   []Layer
	hctx     *httpmodel.HandlerContext
	terminal Terminal
	// index is the position of the furthest dispatch() call so far -- a
	// single mutable cursor shared by the whole chain
	index int
}

func (p *pipeline) dispatch(i int) (any, error) {
	if i <= p.index {
		return nil, &NextCalledMultipleTimesError{Index: i - 1}
	}
	p.index = i

	if i >= len(p.layers) {
		return p.terminal(p.hctx)
	}

	next := func() (any, error) {
		return p.dispatch(i + 1)
	}
	return p.layers[i].Handle(p.hctx, next)
}
