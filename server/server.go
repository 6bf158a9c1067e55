// Package server exposes one interpreter as an HTTP+JSON evaluation
// service: POST /eval runs a program and returns its captured output,
// POST /reset replaces the worker's VM with a fresh one.
package server

import (
	"net/http"

	"github.com/loxlang/loxvm/internal/logging"
	"github.com/loxlang/loxvm/vmi"
)

var logger = logging.For("server")

// Server wraps one pooled *vmi.VM behind the goroutine-owns-VM worker
// pattern and serves it over HTTP.
type Server struct {
	worker *VMWorker
	mux    *http.ServeMux
}

// New creates a Server wrapping v.
func New(v *vmi.VM) *Server {
	s := &Server{
		worker: NewVMWorker(v),
		mux:    http.NewServeMux(),
	}

	evalSvc := NewEvalService(s.worker)
	s.mux.HandleFunc("/eval", postOnly(evalSvc.HandleEval))
	s.mux.HandleFunc("/reset", postOnly(evalSvc.HandleReset))

	return s
}

// postOnly rejects every method but POST with 405 before calling h.
func postOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

// ListenAndServe starts the HTTP server on the given address ("host:port"
// or ":port").
func (s *Server) ListenAndServe(addr string) error {
	logger.Info("lox eval service listening", "addr", addr)
	return http.ListenAndServe(addr, s.mux)
}

// Stop shuts down the server's VM worker.
func (s *Server) Stop() {
	s.worker.Stop()
}
