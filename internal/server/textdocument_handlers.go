package server

import (
	"context"
	"reflect"

	"sitterfeed/internal/parser"
	"sitterfeed/internal/sitteradapter"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func (s *Server) textDocumentDidOpen(
	ctx *glsp.Context,
	params *protocol.DidOpenTextDocumentParams,
) error {
	uri := params.TextDocument.URI
	if err := s.manager.Open(context.Background(), uri, params.TextDocument.Text); err != nil {
		log.Warningf("open %s: %s", uri, err)
		return err
	}
	s.publishDiagnostics(ctx, uri)
	return nil
}

func (s *Server) textDocumentDidChange(
	ctx *glsp.Context,
	params *protocol.DidChangeTextDocumentParams,
) error {
	uri := params.TextDocument.URI
	if err := s.manager.ApplyChanges(context.Background(), uri, params.ContentChanges); err != nil {
		log.Warningf("change %s: %s", uri, err)
		return err
	}
	s.publishDiagnostics(ctx, uri)
	return nil
}

func (s *Server) textDocumentDidClose(
	ctx *glsp.Context,
	params *protocol.DidCloseTextDocumentParams,
) error {
	uri := params.TextDocument.URI
	s.manager.Release(uri)

	s.mu.Lock()
	_, published := s.diagnosticCache[uri]
	delete(s.diagnosticCache, uri)
	s.mu.Unlock()

	if published {
		ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
			URI:         uri,
			Diagnostics: []protocol.Diagnostic{},
		})
	}
	return nil
}

func (s *Server) textDocumentDocumentSymbol(
	ctx *glsp.Context,
	params *protocol.DocumentSymbolParams,
) (any, error) {
	uri := params.TextDocument.URI
	symbols, err := s.manager.Symbols(uri)
	if err != nil {
		return nil, err
	}
	text, _ := s.manager.Text(uri)

	result := make([]protocol.DocumentSymbol, 0, len(symbols))
	for _, sym := range symbols {
		result = append(result, protocol.DocumentSymbol{
			Name:           sym.Name,
			Kind:           symbolKind(sym.Kind),
			Range:          sitteradapter.ToLSPRange(sym.Start, sym.End, text),
			SelectionRange: sitteradapter.ToLSPRange(sym.NameStart, sym.NameEnd, text),
		})
	}
	return result, nil
}

// publishDiagnostics sends the syntax errors of uri unless they equal the
// last set sent for it.
func (s *Server) publishDiagnostics(ctx *glsp.Context, uri string) {
	errs, err := s.manager.Diagnostics(uri, maxDiagnostics)
	if err != nil {
		log.Warningf("diagnostics %s: %s", uri, err)
		return
	}
	text, _ := s.manager.Text(uri)
	diagnostics := syntaxDiagnostics(errs, text)

	s.mu.Lock()
	previous, exists := s.diagnosticCache[uri]
	if exists && reflect.DeepEqual(previous, diagnostics) {
		s.mu.Unlock()
		return
	}
	s.diagnosticCache[uri] = diagnostics
	s.mu.Unlock()

	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

func syntaxDiagnostics(errs []parser.SyntaxError, text []byte) []protocol.Diagnostic {
	severity := protocol.DiagnosticSeverityError
	source := Name

	diagnostics := make([]protocol.Diagnostic, 0, len(errs))
	for _, e := range errs {
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    sitteradapter.ToLSPRange(e.Start, e.End, text),
			Severity: &severity,
			Source:   &source,
			Message:  e.Message,
		})
	}
	return diagnostics
}

func symbolKind(kind string) protocol.SymbolKind {
	switch kind {
	case "function":
		return protocol.SymbolKindFunction
	case "method":
		return protocol.SymbolKindMethod
	case "class":
		return protocol.SymbolKindClass
	case "struct":
		return protocol.SymbolKindStruct
	case "type":
		return protocol.SymbolKindClass
	default:
		return protocol.SymbolKindVariable
	}
}
