// Package server bridges editor-facing LSP requests (spec.md's expanded
// tooling surface) to the compiler context, directly adapting the
// teacher's server/vm_worker.go single-goroutine-serialization idiom:
// the parsed module and compilectx.Context are not goroutine-safe, so
// every request that touches them is funneled through one worker
// goroutine rather than guarded with a mutex per access.
package server

import (
	"fmt"

	"github.com/chazu/wardlang/compilectx"
)

// compileRequest represents a unit of work to run on the compile worker
// goroutine.
type compileRequest struct {
	fn   func(*compilectx.Context) interface{}
	done chan compileResult
}

// compileResult holds the return value from a compile-context operation.
type compileResult struct {
	value interface{}
	err   error
}

// CompileWorker serializes all access to a shared compilectx.Context
// through a single goroutine, mirroring the teacher's VMWorker.
type CompileWorker struct {
	ctx      *compilectx.Context
	requests chan compileRequest
	quit     chan struct{}
}

// NewCompileWorker creates a CompileWorker wrapping ctx and starts its
// processing goroutine.
func NewCompileWorker(ctx *compilectx.Context) *CompileWorker {
	w := &CompileWorker{
		ctx:      ctx,
		requests: make(chan compileRequest, 64),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *CompileWorker) loop() {
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

func (w *CompileWorker) execute(fn func(*compilectx.Context) interface{}) compileResult {
	var result compileResult
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.err = fmt.Errorf("%v", r)
			}
		}()
		result.value = fn(w.ctx)
	}()
	return result
}

// Do submits fn for execution on the worker goroutine and blocks until it
// completes.
func (w *CompileWorker) Do(fn func(*compilectx.Context) interface{}) (interface{}, error) {
	req := compileRequest{fn: fn, done: make(chan compileResult, 1)}
	w.requests <- req
	result := <-req.done
	return result.value, result.err
}

// Stop shuts down the worker goroutine.
func (w *CompileWorker) Stop() {
	close(w.quit)
}

// Context returns the underlying compilectx.Context, for read-only
// access from the worker goroutine itself.
func (w *CompileWorker) Context() *compilectx.Context {
	return w.ctx
}
