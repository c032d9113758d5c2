// Package parser drives tree-sitter over a source.Provider.
package parser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sitterfeed/internal/source"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("sitterfeed.parser")

// Edit describes a text change already applied to the source, in the
// terms tree-sitter needs to adjust the previous tree.
type Edit sitter.EditInput

// input binds p to the parser's read callback. Once ctx is done the
// parser sees end of input without p being asked again.
func input(ctx context.Context, p source.Provider) sitter.Input {
	return sitter.Input{
		Encoding: sitter.InputEncodingUTF8,
		Read: func(offset uint32, pt sitter.Point) []byte {
			if ctx.Err() != nil {
				return nil
			}
			return p.Read(offset, source.Position{Row: pt.Row, Column: pt.Column})
		},
	}
}

// parseInput runs one parse, giving up once timeout has passed. The
// deadline is only observed between reads.
func parseInput(
	ctx context.Context,
	p *sitter.Parser,
	old *sitter.Tree,
	provider source.Provider,
	timeout time.Duration,
) (*sitter.Tree, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	tree, err := p.ParseInputCtx(ctx, old, input(ctx, provider))
	if ctxErr := ctx.Err(); ctxErr != nil {
		if tree != nil {
			tree.Close()
		}
		return nil, fmt.Errorf("%w: %w", ErrCancelled, ctxErr)
	}
	if err != nil {
		return nil, err
	}
	if tree == nil {
		return nil, errors.New("parser returned no tree")
	}
	return tree, nil
}

// Session is one parser bound to one language, keeping the last tree so
// that later parses can be incremental.
type Session struct {
	parser  *sitter.Parser
	lang    *Language
	tree    *sitter.Tree
	timeout time.Duration
	mu      sync.Mutex
}

// NewSession creates a session for lang. A zero timeout disables the
// deadline.
func NewSession(lang *Language, timeout time.Duration) *Session {
	p := sitter.NewParser()
	p.SetLanguage(lang.Grammar)
	return &Session{
		parser:  p,
		lang:    lang,
		timeout: timeout,
	}
}

// Language returns the language the session parses.
func (s *Session) Language() *Language {
	return s.lang
}

// Parse reads the whole input through provider and replaces the session's
// tree. If edits were recorded since the last parse, unchanged parts of the
// previous tree are reused.
func (s *Session) Parse(ctx context.Context, provider source.Provider) (*sitter.Tree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.parser == nil {
		return nil, errors.New("session is closed")
	}

	start := time.Now()
	tree, err := parseInput(ctx, s.parser, s.tree, provider, s.timeout)
	if err != nil {
		// A halted parse would otherwise resume on the next call.
		s.parser.Reset()
		return nil, fmt.Errorf("failed to parse %s input: %w", s.lang.Name, err)
	}
	log.Debugf("parsed %s input in %s (incremental: %t)", s.lang.Name, time.Since(start), s.tree != nil)

	if s.tree != nil {
		s.tree.Close()
	}
	s.tree = tree
	return tree, nil
}

// Edit adjusts the current tree for changes made to the source.
func (s *Session) Edit(edits ...Edit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tree == nil {
		return ErrNoTree
	}
	for _, e := range edits {
		s.tree.Edit(sitter.EditInput(e))
	}
	return nil
}

// Tree returns the last parsed tree. It stays owned by the session.
func (s *Session) Tree() (*sitter.Tree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tree == nil {
		return nil, ErrNoTree
	}
	return s.tree, nil
}

// Reset drops the current tree so the next parse starts from scratch.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tree != nil {
		s.tree.Close()
		s.tree = nil
	}
	if s.parser != nil {
		s.parser.Reset()
	}
}

// Close frees the tree and the parser.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree != nil {
		s.tree.Close()
		s.tree = nil
	}
	if s.parser != nil {
		s.parser.Close()
		s.parser = nil
	}
	return nil
}
