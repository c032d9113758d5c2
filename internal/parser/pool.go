package parser

import (
	"context"
	"time"

	"sitterfeed/internal/source"

	sitter "github.com/smacker/go-tree-sitter"
)

// Pool hands out parsers for one-time parses from any number of goroutines.
type Pool struct {
	pool    chan *sitter.Parser
	timeout time.Duration
}

// NewPool creates a pool holding n parsers.
func NewPool(n int, timeout time.Duration) *Pool {
	if n < 1 {
		n = 1
	}
	pp := &Pool{
		pool:    make(chan *sitter.Parser, n),
		timeout: timeout,
	}
	for i := 0; i < n; i++ {
		pp.pool <- sitter.NewParser()
	}
	return pp
}

// Parse performs a one-time parse of provider as lang. The caller owns the
// returned tree and must close it.
func (pp *Pool) Parse(ctx context.Context, lang *Language, provider source.Provider) (*sitter.Tree, error) {
	var p *sitter.Parser
	select {
	case p = <-pp.pool:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { pp.pool <- p }()

	p.SetLanguage(lang.Grammar)
	tree, err := parseInput(ctx, p, nil, provider, pp.timeout)
	if err != nil {
		p.Reset()
		return nil, err
	}
	return tree, nil
}

// Close frees all parsers in the pool. The pool must not be used afterwards.
func (pp *Pool) Close() error {
	close(pp.pool)
	for p := range pp.pool {
		p.Close()
	}
	return nil
}
