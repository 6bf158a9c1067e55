package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/loxlang/loxvm/vmi"
)

func newTestServer() *Server {
	var out bytes.Buffer
	return New(vmi.NewVM(&out))
}

func postEval(t *testing.T, s *Server, source string) EvalResponse {
	t.Helper()
	body, _ := json.Marshal(EvalRequest{Source: source})
	req := httptest.NewRequest(http.MethodPost, "/eval", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	var resp EvalResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestEvalRunsSourceAndCapturesOutput(t *testing.T) {
	s := newTestServer()
	resp := postEval(t, s, `print 3 + 4;`)
	if !resp.Success || resp.Status != "ok" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Output != "7\n" {
		t.Errorf("Output = %q, want %q", resp.Output, "7\n")
	}
}

func TestEvalReportsCompileError(t *testing.T) {
	s := newTestServer()
	resp := postEval(t, s, `var 1 = 2;`)
	if resp.Success {
		t.Fatal("expected Success=false for invalid syntax")
	}
	if resp.Status != "compile_error" {
		t.Errorf("Status = %q, want compile_error", resp.Status)
	}
	if resp.Error == "" {
		t.Error("expected a non-empty compile error message")
	}
}

func TestEvalReportsRuntimeError(t *testing.T) {
	s := newTestServer()
	resp := postEval(t, s, `print undefinedGlobal;`)
	if resp.Success {
		t.Fatal("expected Success=false for undefined global")
	}
	if resp.Status != "runtime_error" {
		t.Errorf("Status = %q, want runtime_error", resp.Status)
	}
}

func TestEvalRejectsEmptySource(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/eval", bytes.NewReader([]byte(`{"source":""}`)))
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestGlobalsPersistAcrossEvalsUntilReset(t *testing.T) {
	s := newTestServer()

	if resp := postEval(t, s, `var counter = 1;`); !resp.Success {
		t.Fatalf("first eval failed: %+v", resp)
	}
	resp := postEval(t, s, `print counter;`)
	if resp.Output != "1\n" {
		t.Fatalf("expected counter to persist across evals, got %q", resp.Output)
	}

	resetReq := httptest.NewRequest(http.MethodPost, "/reset", nil)
	resetRec := httptest.NewRecorder()
	s.mux.ServeHTTP(resetRec, resetReq)
	if resetRec.Code != http.StatusOK {
		t.Fatalf("reset status = %d", resetRec.Code)
	}

	resp = postEval(t, s, `print counter;`)
	if resp.Success {
		t.Fatal("expected counter to be undefined after reset")
	}
	if resp.Status != "runtime_error" {
		t.Errorf("Status = %q, want runtime_error", resp.Status)
	}
}
