package server

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/loxlang/loxvm/vmi"
)

// EvalRequest is the POST /eval request body.
type EvalRequest struct {
	Source string `json:"source"`
}

// EvalResponse is the POST /eval response body. Status mirrors the exit
// codes the CLI driver maps InterpretResult to.
type EvalResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Output  string `json:"output"`
	Error   string `json:"error,omitempty"`
}

// EvalService implements the /eval and /reset HTTP handlers.
type EvalService struct {
	worker *VMWorker
}

// NewEvalService creates an EvalService bound to worker.
func NewEvalService(worker *VMWorker) *EvalService {
	return &EvalService{worker: worker}
}

// HandleEval compiles and runs the request's source on the worker's VM,
// writing back the captured stdout and interpretation status as JSON.
func (s *EvalService) HandleEval(w http.ResponseWriter, r *http.Request) {
	var req EvalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Source == "" {
		http.Error(w, "source is required", http.StatusBadRequest)
		return
	}

	result, err := s.worker.Do(func(v *vmi.VM) interface{} {
		return evaluate(v, req.Source)
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, result.(*EvalResponse))
}

// HandleReset replaces the worker's VM with a fresh one, discarding all
// globals and heap state — a new session boundary.
func (s *EvalService) HandleReset(w http.ResponseWriter, r *http.Request) {
	logger.Info("resetting VM session")
	s.worker.Reset()
	writeJSON(w, &EvalResponse{Success: true, Status: "ok"})
}

// evaluate compiles and runs source on v, redirecting its stdout into a
// buffer for the duration of the call so concurrent /eval requests never
// interleave output on a shared writer. Must run on the VM worker
// goroutine.
func evaluate(v *vmi.VM, source string) *EvalResponse {
	var out bytes.Buffer
	prevStdout := v.Stdout
	v.Stdout = &out
	defer func() { v.Stdout = prevStdout }()

	result, err := v.Interpret(source)
	resp := &EvalResponse{Output: out.String()}
	switch result {
	case vmi.InterpretOK:
		resp.Success = true
		resp.Status = "ok"
	case vmi.InterpretCompileError:
		resp.Status = "compile_error"
		resp.Error = err.Error()
	case vmi.InterpretRuntimeError:
		resp.Status = "runtime_error"
		resp.Error = err.Error()
	}
	return resp
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
