package source

import "errors"

var (
	// ErrUnreachable reports a producer that can no longer serve chunks.
	ErrUnreachable = errors.New("source: producer unreachable")

	// ErrBufferLifetime reports a second chunk being leased while one is
	// still outstanding.
	ErrBufferLifetime = errors.New("source: chunk requested while another is outstanding")
)
