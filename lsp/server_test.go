package lsp

import (
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/loxlang/loxvm/compiler"
	"github.com/loxlang/loxvm/table"
)

func TestToDiagnosticsMapsLineAndMessage(t *testing.T) {
	errs := compiler.Errors{{Line: 3, Message: "Expect ';' after value."}}
	diags := toDiagnostics(errs)
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(diags))
	}
	d := diags[0]
	if d.Range.Start.Line != 2 {
		t.Errorf("Start.Line = %d, want 2 (0-based)", d.Range.Start.Line)
	}
	if d.Message != "Expect ';' after value." {
		t.Errorf("Message = %q", d.Message)
	}
	if d.Severity == nil || *d.Severity != protocol.DiagnosticSeverityError {
		t.Errorf("Severity = %v, want Error", d.Severity)
	}
}

func TestToDiagnosticsEmptyForNoErrors(t *testing.T) {
	if diags := toDiagnostics(nil); len(diags) != 0 {
		t.Errorf("got %d diagnostics, want 0", len(diags))
	}
}

func TestSetSourceAndDeleteRoundTrip(t *testing.T) {
	s := New()
	uri := protocol.DocumentUri("file:///scratch.lox")
	s.setSource(uri, "print 1;")

	s.mu.Lock()
	got, ok := s.sources[uri]
	s.mu.Unlock()
	if !ok || got != "print 1;" {
		t.Fatalf("sources[%q] = %q, %v", uri, got, ok)
	}
}

func TestCompileErrorsSurfaceFromRealSource(t *testing.T) {
	interner := table.NewInterner()
	_, err := compiler.Compile("var 1 = 2;", interner)
	errs, ok := err.(compiler.Errors)
	if !ok || len(errs) == 0 {
		t.Fatalf("expected compiler.Errors from invalid source, got %v", err)
	}
	diags := toDiagnostics(errs)
	if len(diags) == 0 {
		t.Fatal("expected at least one diagnostic")
	}
}
