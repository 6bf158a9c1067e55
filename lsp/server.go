// Package lsp implements a minimal Language Server Protocol server:
// on every document change it runs the front half of the pipeline
// (scanner + compiler, never the VM) and publishes compile errors as
// diagnostics. No execution, no debugging.
package lsp

import (
	"sync"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/loxlang/loxvm/compiler"
	"github.com/loxlang/loxvm/internal/logging"
	"github.com/loxlang/loxvm/table"
)

var logger = logging.For("lsp")

const (
	name    = "lox-lsp"
	version = "0.1.0"
)

// Server owns the document store and the glsp protocol handler.
type Server struct {
	mu      sync.Mutex
	sources map[protocol.DocumentUri]string
	handler protocol.Handler
}

// New returns a Server ready to run over stdio via Run.
func New() *Server {
	s := &Server{sources: make(map[protocol.DocumentUri]string)}
	s.handler = protocol.Handler{
		Initialize:            s.initialize,
		TextDocumentDidOpen:   s.didOpen,
		TextDocumentDidChange: s.didChange,
		TextDocumentDidClose:  s.didClose,
	}
	return s
}

// Run starts the server, communicating over stdio until the client
// disconnects.
func (s *Server) Run() error {
	srv := glspserver.NewServer(&s.handler, name, false)
	return srv.RunStdio()
}

func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	commonlog.NewInfoMessage(0, "lox-lsp initializing")

	full := protocol.TextDocumentSyncKindFull
	caps := protocol.ServerCapabilities{
		TextDocumentSync: &protocol.TextDocumentSyncOptions{
			OpenClose: &protocol.True,
			Change:    &full,
		},
	}
	return protocol.InitializeResult{
		Capabilities: caps,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    name,
			Version: ptrString(version),
		},
	}, nil
}

func (s *Server) didOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.setSource(uri, params.TextDocument.Text)
	return s.publishDiagnostics(ctx, uri, params.TextDocument.Text)
}

func (s *Server) didChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) == 0 {
		return nil
	}
	text, ok := extractFullText(params.ContentChanges[len(params.ContentChanges)-1])
	if !ok {
		return nil
	}
	uri := params.TextDocument.URI
	s.setSource(uri, text)
	return s.publishDiagnostics(ctx, uri, text)
}

func (s *Server) didClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.mu.Lock()
	delete(s.sources, params.TextDocument.URI)
	s.mu.Unlock()
	return nil
}

func (s *Server) setSource(uri protocol.DocumentUri, text string) {
	s.mu.Lock()
	s.sources[uri] = text
	s.mu.Unlock()
}

// publishDiagnostics compiles text (a fresh interner per call, since
// diagnostics never need to share interned strings with a live VM) and
// reports every recovered compile error.
func (s *Server) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) error {
	interner := table.NewInterner()
	_, err := compiler.Compile(text, interner)

	var diags []protocol.Diagnostic
	if errs, ok := err.(compiler.Errors); ok {
		diags = toDiagnostics(errs)
	}

	logger.Debug("published diagnostics", "uri", uri, "count", len(diags))
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diags,
	})
	return nil
}

func toDiagnostics(errs compiler.Errors) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(errs))
	for _, e := range errs {
		line := uint32(0)
		if e.Line > 0 {
			line = uint32(e.Line - 1)
		}
		start := protocol.Position{Line: line, Character: 0}
		end := protocol.Position{Line: line, Character: 1}
		severity := protocol.DiagnosticSeverityError
		out = append(out, protocol.Diagnostic{
			Range:    protocol.Range{Start: start, End: end},
			Severity: &severity,
			Source:   ptrString(name),
			Message:  e.Message,
		})
	}
	return out
}

func extractFullText(change any) (string, bool) {
	switch typed := change.(type) {
	case protocol.TextDocumentContentChangeEventWhole:
		return typed.Text, true
	case protocol.TextDocumentContentChangeEvent:
		return typed.Text, true
	default:
		return "", false
	}
}

func ptrString(s string) *string { return &s }
