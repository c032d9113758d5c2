package parser_test

import sitter "github.com/smacker/go-tree-sitter"

func sitterPoint(row, column uint32) sitter.Point {
	return sitter.Point{Row: row, Column: column}
}
