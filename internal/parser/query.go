package parser

import (
	"fmt"

	"sitterfeed/internal/source"

	sitter "github.com/smacker/go-tree-sitter"
)

// Symbol is a named declaration found in a tree.
type Symbol struct {
	Name      string
	Kind      string
	Start     source.Position
	End       source.Position
	NameStart source.Position
	NameEnd   source.Position
}

func position(pt sitter.Point) source.Position {
	return source.Position{Row: pt.Row, Column: pt.Column}
}

// Symbols runs the language's symbol query against root. Identifier text
// is read back through provider, which must still be open and must be
// the one the tree was parsed from.
func Symbols(root *sitter.Node, lang *Language, provider source.Provider) ([]Symbol, error) {
	q, err := sitter.NewQuery([]byte(lang.SymbolQuery), lang.Grammar)
	if err != nil {
		return nil, fmt.Errorf("invalid symbol query for %s: %w", lang.Name, err)
	}
	defer q.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, root)

	var symbols []Symbol
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}

		var sym Symbol
		var name *sitter.Node
		for _, c := range m.Captures {
			if q.CaptureNameForId(c.Index) == "name" {
				name = c.Node
				continue
			}
			sym.Kind = q.CaptureNameForId(c.Index)
			sym.Start = position(c.Node.StartPoint())
			sym.End = position(c.Node.EndPoint())
		}
		if name == nil || sym.Kind == "" {
			continue
		}

		sym.NameStart = position(name.StartPoint())
		sym.NameEnd = position(name.EndPoint())
		sym.Name = string(source.Slice(provider, name.StartByte(), sym.NameStart, name.EndByte()))
		symbols = append(symbols, sym)
	}
	return symbols, nil
}
