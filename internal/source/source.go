// Package source feeds text to an incremental parser through its pull protocol.
//
// A Provider is invoked with an absolute byte offset and a row/column position
// and answers with the bytes that start there. An empty answer means end of
// input. Providers are bound to a single parse session and must not be shared
// between sessions or called concurrently.
package source

import (
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("sitterfeed.source")

// Position is a zero-based row/column pair. Columns count bytes.
type Position struct {
	Row    uint32
	Column uint32
}

// Provider serves chunks of source text. The returned slice is only valid
// until the next call to Read or Close.
type Provider interface {
	Read(offset uint32, pos Position) []byte
	Close() error
}

// Advance returns the position reached after consuming chunk from pos.
func Advance(pos Position, chunk []byte) Position {
	for _, b := range chunk {
		if b == '\n' {
			pos.Row++
			pos.Column = 0
		} else {
			pos.Column++
		}
	}
	return pos
}

// Slice re-reads the bytes in [start, end) through p, starting at pos.
// It stops early if the provider runs out of input.
func Slice(p Provider, start uint32, pos Position, end uint32) []byte {
	if end <= start {
		return nil
	}
	out := make([]byte, 0, end-start)
	offset := start
	for offset < end {
		chunk := p.Read(offset, pos)
		if len(chunk) == 0 {
			break
		}
		if need := end - offset; uint32(len(chunk)) > need {
			chunk = chunk[:need]
		}
		out = append(out, chunk...)
		offset += uint32(len(chunk))
		pos = Advance(pos, chunk)
	}
	return out
}
