// Package server exposes the document manager as a language server over
// glsp. It reports syntax errors as diagnostics and answers symbol queries.
package server

import (
	"sync"

	"sitterfeed/internal/cache"
	"sitterfeed/internal/config"
	"sitterfeed/internal/manager"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"
)

var log = commonlog.GetLogger("sitterfeed.server")

const (
	Name = "sitterfeed"

	// CommandSyntaxTree returns the S-expression of an open document.
	CommandSyntaxTree = "sitterfeed.syntaxTree"

	maxDiagnostics = 100
)

type Server struct {
	handler protocol.Handler
	config  config.Config
	manager *manager.DocumentManager
	cache   *cache.Filecache // may be nil

	mu              sync.Mutex
	diagnosticCache map[string][]protocol.Diagnostic
}

// NewServer creates a language server. fc backs workspace symbol lookups
// and may be nil.
func NewServer(cfg config.Config, fc *cache.Filecache) *Server {
	s := &Server{
		config:          cfg,
		manager:         manager.NewDocumentManager(cfg.Timeout(), cfg.Languages),
		cache:           fc,
		diagnosticCache: make(map[string][]protocol.Diagnostic),
	}
	s.handler = protocol.Handler{
		Initialize:                 s.initialize,
		Initialized:                s.initialized,
		Shutdown:                   s.shutdown,
		SetTrace:                   s.setTrace,
		TextDocumentDidOpen:        s.textDocumentDidOpen,
		TextDocumentDidChange:      s.textDocumentDidChange,
		TextDocumentDidClose:       s.textDocumentDidClose,
		TextDocumentDocumentSymbol: s.textDocumentDocumentSymbol,
		WorkspaceExecuteCommand:    s.workspaceExecuteCommand,
	}
	if fc != nil {
		s.handler.WorkspaceSymbol = s.workspaceSymbol
	}
	return s
}

// RunStdio serves the protocol on stdin and stdout until the client exits.
func (s *Server) RunStdio() error {
	defer s.manager.CloseAll()
	return server.NewServer(&s.handler, Name, false).RunStdio()
}
