package manager

import (
	"fmt"
	"io"

	"sitterfeed/internal/parser"
	"sitterfeed/internal/source"
)

// Document is the text of one open file. It lends its lines to the parser
// as chunks and keeps count of the ones not yet handed back.
type Document struct {
	URI      string
	Language *parser.Language

	text        []byte
	lineStarts  []int
	version     int32
	outstanding int
	handle      int
}

// NewDocument creates a document holding text.
func NewDocument(uri string, lang *parser.Language, text []byte) *Document {
	d := &Document{URI: uri, Language: lang}
	d.SetText(text)
	return d
}

// SetText replaces the document's content.
func (d *Document) SetText(text []byte) {
	d.text = text
	d.lineStarts = d.lineStarts[:0]
	d.lineStarts = append(d.lineStarts, 0)
	for i, b := range text {
		if b == '\n' {
			d.lineStarts = append(d.lineStarts, i+1)
		}
	}
	d.version++
}

// Text returns the current content. It must not be modified.
func (d *Document) Text() []byte {
	return d.text
}

// Version counts content replacements.
func (d *Document) Version() int32 {
	return d.version
}

// LineCount returns the number of lines, counting a final unterminated one.
func (d *Document) LineCount() int {
	return len(d.lineStarts)
}

// Outstanding returns the number of chunks lent and not yet released.
func (d *Document) Outstanding() int {
	return d.outstanding
}

// Produce lends the rest of line pos.Row starting at pos.Column.
func (d *Document) Produce(offset uint32, pos source.Position) (source.Chunk, error) {
	if int(pos.Row) >= len(d.lineStarts) {
		return source.Chunk{}, io.EOF
	}
	start := d.lineStarts[pos.Row] + int(pos.Column)
	end := len(d.text)
	if int(pos.Row)+1 < len(d.lineStarts) {
		end = d.lineStarts[pos.Row+1]
	}
	if start >= end {
		return source.Chunk{}, io.EOF
	}
	if start != int(offset) {
		log.Debugf("%s: offset %d disagrees with %d:%d, serving by position", d.URI, offset, pos.Row, pos.Column)
	}

	d.handle++
	d.outstanding++
	return source.Chunk{Data: d.text[start:end], Handle: d.handle}, nil
}

// Release takes back a chunk lent by Produce.
func (d *Document) Release(c source.Chunk) {
	if d.outstanding == 0 {
		log.Errorf("%s: release of chunk %v that is not outstanding", d.URI, c.Handle)
		return
	}
	d.outstanding--
}

func (d *Document) String() string {
	return fmt.Sprintf("%s (v%d, %d lines)", d.URI, d.version, d.LineCount())
}
