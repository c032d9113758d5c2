// Package manager keeps the documents an editor has open and their parse
// state.
package manager

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"sitterfeed/internal/parser"
	"sitterfeed/internal/sitteradapter"
	"sitterfeed/internal/source"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

var log = commonlog.GetLogger("sitterfeed.manager")

type entry struct {
	doc     *Document
	session *parser.Session
}

// DocumentManager encapsulates document and parser state for each open URI.
type DocumentManager struct {
	mu        sync.Mutex
	entries   map[string]*entry
	timeout   time.Duration
	overrides map[string]string
}

// NewDocumentManager creates an initialized DocumentManager. overrides maps
// file extensions to language names.
func NewDocumentManager(timeout time.Duration, overrides map[string]string) *DocumentManager {
	return &DocumentManager{
		entries:   make(map[string]*entry),
		timeout:   timeout,
		overrides: overrides,
	}
}

func uriPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Path == "" {
		return uri
	}
	return u.Path
}

// Open registers uri with text and parses it.
func (dm *DocumentManager) Open(ctx context.Context, uri string, text string) error {
	lang, err := parser.ForPath(uriPath(uri), dm.overrides)
	if err != nil {
		return err
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()

	if old, ok := dm.entries[uri]; ok {
		old.session.Close()
	}
	e := &entry{
		doc:     NewDocument(uri, lang, []byte(text)),
		session: parser.NewSession(lang, dm.timeout),
	}
	dm.entries[uri] = e
	return dm.parse(ctx, e)
}

// ApplyChanges applies LSP content changes in order and re-parses. Ranged
// changes are parsed incrementally, a whole-document change from scratch.
func (dm *DocumentManager) ApplyChanges(ctx context.Context, uri string, changes []any) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	e, ok := dm.entries[uri]
	if !ok {
		return fmt.Errorf("no document for %s", uri)
	}

	for _, raw := range changes {
		switch change := raw.(type) {
		case protocol.TextDocumentContentChangeEvent:
			if change.Range == nil {
				e.doc.SetText([]byte(change.Text))
				e.session.Reset()
				continue
			}
			edit := sitteradapter.Edit(change, e.doc.Text())
			e.doc.SetText(sitteradapter.ApplyTextEdit(change, e.doc.Text()))
			if err := e.session.Edit(edit); err != nil {
				log.Debugf("%s: %v; next parse starts over", uri, err)
			}
		case protocol.TextDocumentContentChangeEventWhole:
			e.doc.SetText([]byte(change.Text))
			e.session.Reset()
		default:
			return fmt.Errorf("unexpected change event type %T", raw)
		}
	}
	return dm.parse(ctx, e)
}

// parse runs one parse session over the document.
func (dm *DocumentManager) parse(ctx context.Context, e *entry) error {
	provider := source.NewCallbackProvider(e.doc)
	defer provider.Close()

	if _, err := e.session.Parse(ctx, provider); err != nil {
		return fmt.Errorf("failed to parse %s: %w", e.doc.URI, err)
	}
	stats := provider.Stats()
	log.Debugf("parsed %s: %d reads, %d releases", e.doc, stats.Calls, stats.Releases)
	return nil
}

// tree returns the entry for uri and its current tree.
func (dm *DocumentManager) tree(uri string) (*entry, *sitter.Tree, error) {
	e, ok := dm.entries[uri]
	if !ok {
		return nil, nil, fmt.Errorf("no document for %s", uri)
	}
	tree, err := e.session.Tree()
	if err != nil {
		return nil, nil, err
	}
	return e, tree, nil
}

// Symbols returns the declarations found in the document.
func (dm *DocumentManager) Symbols(uri string) ([]parser.Symbol, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	e, tree, err := dm.tree(uri)
	if err != nil {
		return nil, err
	}

	provider := source.NewCallbackProvider(e.doc)
	defer provider.Close()
	return parser.Symbols(tree.RootNode(), e.doc.Language, provider)
}

// Diagnostics returns at most limit syntax errors of the document.
func (dm *DocumentManager) Diagnostics(uri string, limit int) ([]parser.SyntaxError, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	_, tree, err := dm.tree(uri)
	if err != nil {
		return nil, err
	}
	return parser.SyntaxErrors(tree.RootNode(), limit), nil
}

// SyntaxTree renders the document's tree as an S-expression.
func (dm *DocumentManager) SyntaxTree(uri string) (string, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	_, tree, err := dm.tree(uri)
	if err != nil {
		return "", err
	}
	return tree.RootNode().String(), nil
}

// Text returns a copy of the document's current content.
func (dm *DocumentManager) Text(uri string) ([]byte, bool) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	e, ok := dm.entries[uri]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), e.doc.Text()...), true
}

// Release frees parser and document for a URI.
func (dm *DocumentManager) Release(uri string) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if e, ok := dm.entries[uri]; ok {
		e.session.Close()
		delete(dm.entries, uri)
	}
}

// CloseAll cleans up all parsers.
func (dm *DocumentManager) CloseAll() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	for uri, e := range dm.entries {
		if err := e.session.Close(); err != nil {
			return fmt.Errorf("error closing parser for %s: %w", uri, err)
		}
	}
	dm.entries = make(map[string]*entry)
	return nil
}
