// Package sitteradapter translates between LSP positions and edits and the
// byte-oriented points tree-sitter works with.
package sitteradapter

import (
	"bytes"
	"unicode/utf8"

	"sitterfeed/internal/parser"
	"sitterfeed/internal/source"

	sitter "github.com/smacker/go-tree-sitter"
	lsp "github.com/tliron/glsp/protocol_3_16"
)

// lineBounds returns the start and end (excluding the newline) of line
// row in document, clamping row to the last line.
func lineBounds(document []byte, row uint32) (start, end int, clamped uint32) {
	for clamped < row {
		i := bytes.IndexByte(document[start:], '\n')
		if i < 0 {
			break
		}
		start += i + 1
		clamped++
	}
	end = len(document)
	if i := bytes.IndexByte(document[start:], '\n'); i >= 0 {
		end = start + i
	}
	return start, end, clamped
}

// positionToOffset computes the byte offset and tree-sitter point of an
// LSP position, whose character counts UTF-16 code units.
func positionToOffset(document []byte, pos lsp.Position) (int, sitter.Point) {
	start, end, row := lineBounds(document, pos.Line)
	line := document[start:end]

	var units uint32
	col := 0
	for col < len(line) {
		r, size := utf8.DecodeRune(line[col:])
		n := uint32(1)
		if r > 0xFFFF {
			n = 2
		}
		if units+n > pos.Character {
			break
		}
		units += n
		col += size
	}
	return start + col, sitter.Point{Row: row, Column: uint32(col)}
}

// endPoint is the point reached after inserting text at start.
func endPoint(start sitter.Point, text string) sitter.Point {
	i := bytes.LastIndexByte([]byte(text), '\n')
	if i < 0 {
		return sitter.Point{Row: start.Row, Column: start.Column + uint32(len(text))}
	}
	return sitter.Point{
		Row:    start.Row + uint32(bytes.Count([]byte(text), []byte{'\n'})),
		Column: uint32(len(text) - i - 1),
	}
}

// Edit converts an incremental LSP change against document into the edit
// tree-sitter expects.
func Edit(change lsp.TextDocumentContentChangeEvent, document []byte) parser.Edit {
	startByte, startPoint := positionToOffset(document, change.Range.Start)
	oldEndByte, oldEndPoint := positionToOffset(document, change.Range.End)

	return parser.Edit{
		StartIndex:  uint32(startByte),
		OldEndIndex: uint32(oldEndByte),
		NewEndIndex: uint32(startByte + len(change.Text)),
		StartPoint:  startPoint,
		OldEndPoint: oldEndPoint,
		NewEndPoint: endPoint(startPoint, change.Text),
	}
}

// ApplyTextEdit splices change into document using the same offsets Edit
// computes.
func ApplyTextEdit(change lsp.TextDocumentContentChangeEvent, document []byte) []byte {
	start, _ := positionToOffset(document, change.Range.Start)
	end, _ := positionToOffset(document, change.Range.End)
	if end < start {
		end = start
	}

	out := make([]byte, 0, len(document)-(end-start)+len(change.Text))
	out = append(out, document[:start]...)
	out = append(out, change.Text...)
	return append(out, document[end:]...)
}

// ToLSPPosition converts a byte-based position within document to an LSP
// position counting UTF-16 code units.
func ToLSPPosition(pos source.Position, document []byte) lsp.Position {
	start, end, row := lineBounds(document, pos.Row)
	line := document[start:end]
	if int(pos.Column) < len(line) {
		line = line[:pos.Column]
	}

	var units uint32
	for _, r := range string(line) {
		if r > 0xFFFF {
			units += 2
		} else {
			units++
		}
	}
	return lsp.Position{Line: row, Character: units}
}

// ToLSPRange converts a byte-based span within document to an LSP range.
func ToLSPRange(start, end source.Position, document []byte) lsp.Range {
	return lsp.Range{
		Start: ToLSPPosition(start, document),
		End:   ToLSPPosition(end, document),
	}
}
