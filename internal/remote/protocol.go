// Package remote carries the chunk producer protocol over a websocket, so
// the text a parser reads can live in another process.
package remote

import (
	"errors"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("sitterfeed.remote")

const (
	OpProduce = "produce"
	OpChunk   = "chunk"
	OpRelease = "release"
	OpError   = "error"
)

// ErrRemote wraps failures reported by the far side.
var ErrRemote = errors.New("remote producer error")

// Message is the single frame type exchanged in both directions.
type Message struct {
	Op     string `json:"op"`
	ID     uint64 `json:"id,omitempty"`
	Offset uint32 `json:"offset,omitempty"`
	Row    uint32 `json:"row,omitempty"`
	Column uint32 `json:"column,omitempty"`
	Handle uint64 `json:"handle,omitempty"`
	Data   []byte `json:"data,omitempty"`
	EOF    bool   `json:"eof,omitempty"`
	Error  string `json:"error,omitempty"`
}
