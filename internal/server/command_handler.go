package server

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func (s *Server) workspaceExecuteCommand(
	context *glsp.Context,
	params *protocol.ExecuteCommandParams,
) (any, error) {
	switch params.Command {
	case CommandSyntaxTree:
		if len(params.Arguments) != 1 {
			return nil, fmt.Errorf("%s expects a document uri", CommandSyntaxTree)
		}
		uri, ok := params.Arguments[0].(string)
		if !ok {
			return nil, fmt.Errorf("%s expects a document uri, got %T", CommandSyntaxTree, params.Arguments[0])
		}
		return s.manager.SyntaxTree(uri)
	default:
		return nil, fmt.Errorf("unknown command %q", params.Command)
	}
}

// workspaceSymbol answers from the index built by the indexer. Columns are
// stored in bytes, which matches UTF-16 for ASCII identifiers.
func (s *Server) workspaceSymbol(
	context *glsp.Context,
	params *protocol.WorkspaceSymbolParams,
) ([]protocol.SymbolInformation, error) {
	query := strings.TrimSpace(params.Query)
	if query == "" {
		return []protocol.SymbolInformation{}, nil
	}
	found, err := s.cache.FindSymbols(query)
	if err != nil {
		return nil, err
	}

	result := make([]protocol.SymbolInformation, 0, len(found))
	for _, sym := range found {
		start := protocol.Position{Line: sym.Row, Character: sym.Column}
		end := protocol.Position{Line: sym.Row, Character: sym.Column + uint32(len(sym.Name))}
		result = append(result, protocol.SymbolInformation{
			Name: sym.Name,
			Kind: symbolKind(sym.Kind),
			Location: protocol.Location{
				URI:   pathToURI(sym.Path),
				Range: protocol.Range{Start: start, End: end},
			},
		})
	}
	return result, nil
}

// pathToURI converts a filesystem path to a file URI.
func pathToURI(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}
