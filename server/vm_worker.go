package server

import (
	"fmt"

	"github.com/loxlang/loxvm/vmi"
)

// vmRequest represents a unit of work to be executed on the VM goroutine.
type vmRequest struct {
	fn   func(*vmi.VM) interface{}
	done chan vmResult
}

// resetRequest asks the worker goroutine to swap in a fresh VM, carrying
// forward the outgoing VM's Stdout and Dispatcher.
type resetRequest struct {
	done chan struct{}
}

// vmResult holds the return value from a VM operation.
type vmResult struct {
	value interface{}
	err   error
}

// VMWorker serializes all access to one interpreter through a single
// goroutine. A *vmi.VM is not safe for concurrent use by itself; every
// HTTP handler must go through the worker to avoid racing the dispatch
// loop against a second request on the same session.
type VMWorker struct {
	vm       *vmi.VM
	requests chan vmRequest
	resets   chan resetRequest
	quit     chan struct{}
}

// NewVMWorker creates a VMWorker and starts the processing goroutine.
func NewVMWorker(v *vmi.VM) *VMWorker {
	w := &VMWorker{
		vm:       v,
		requests: make(chan vmRequest, 64),
		resets:   make(chan resetRequest),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

// loop processes VM requests and resets sequentially on a dedicated
// goroutine, so a reset can never race a request already in flight.
func (w *VMWorker) loop() {
	for {
		select {
		case req := <-w.requests:
			result := w.execute(req.fn)
			req.done <- result
		case req := <-w.resets:
			fresh := vmi.NewVM(w.vm.Stdout)
			fresh.Stdin = w.vm.Stdin
			fresh.Dispatcher = w.vm.Dispatcher
			fresh.StressGC = w.vm.StressGC
			w.vm = fresh
			close(req.done)
		case <-w.quit:
			return
		}
	}
}

// execute runs a function on the VM, recovering from panics.
func (w *VMWorker) execute(fn func(*vmi.VM) interface{}) vmResult {
	var result vmResult
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.err = fmt.Errorf("%v", r)
			}
		}()
		result.value = fn(w.vm)
	}()
	return result
}

// Do submits a function for execution on the VM goroutine and blocks
// until it completes. Returns the result and any error (including panics).
func (w *VMWorker) Do(fn func(*vmi.VM) interface{}) (interface{}, error) {
	req := vmRequest{
		fn:   fn,
		done: make(chan vmResult, 1),
	}
	w.requests <- req
	result := <-req.done
	return result.value, result.err
}

// Reset blocks until the worker goroutine has swapped in a fresh VM.
func (w *VMWorker) Reset() {
	req := resetRequest{done: make(chan struct{})}
	w.resets <- req
	<-req.done
}

// Stop shuts down the worker goroutine.
func (w *VMWorker) Stop() {
	close(w.quit)
}

// VM returns the underlying VM, for read-only metadata access that
// doesn't need serializing through Do.
func (w *VMWorker) VM() *vmi.VM {
	return w.vm
}
