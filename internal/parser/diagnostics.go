package parser

import (
	"sitterfeed/internal/source"

	sitter "github.com/smacker/go-tree-sitter"
)

// SyntaxError is an ERROR or MISSING node in a tree.
type SyntaxError struct {
	Start   source.Position
	End     source.Position
	Missing bool
	Message string
}

// SyntaxErrors collects up to limit syntax errors below root, in document
// order. A limit of zero or less means no limit.
func SyntaxErrors(root *sitter.Node, limit int) []SyntaxError {
	var errs []SyntaxError
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if limit > 0 && len(errs) >= limit {
			return
		}
		switch {
		case n.IsMissing():
			errs = append(errs, SyntaxError{
				Start:   position(n.StartPoint()),
				End:     position(n.EndPoint()),
				Missing: true,
				Message: "missing " + n.Type(),
			})
			return
		case n.Type() == "ERROR":
			errs = append(errs, SyntaxError{
				Start:   position(n.StartPoint()),
				End:     position(n.EndPoint()),
				Message: "syntax error",
			})
			return
		case !n.HasError():
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if child := n.Child(i); child != nil {
				walk(child)
			}
		}
	}
	if root != nil {
		walk(root)
	}
	return errs
}
