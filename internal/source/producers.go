package source

import (
	"fmt"
	"io"
)

// LinesProducer serves text that is already split into lines, each line
// carrying its own terminator. Handles are the row numbers served.
type LinesProducer struct {
	Lines []string

	// Outstanding counts chunks produced but not yet released.
	Outstanding int
}

func (l *LinesProducer) Produce(offset uint32, pos Position) (Chunk, error) {
	if int(pos.Row) >= len(l.Lines) {
		return Chunk{}, io.EOF
	}
	line := l.Lines[pos.Row]
	if int(pos.Column) >= len(line) {
		return Chunk{}, io.EOF
	}
	l.Outstanding++
	return Chunk{Data: []byte(line[pos.Column:]), Handle: pos.Row}, nil
}

func (l *LinesProducer) Release(c Chunk) {
	if l.Outstanding == 0 {
		panic(fmt.Sprintf("release of row %v with nothing outstanding", c.Handle))
	}
	l.Outstanding--
}

// ProviderProducer exposes a Provider as a Producer. Chunks are copied out
// of the provider, so releasing them is a no-op.
type ProviderProducer struct {
	Provider Provider
}

func (pp ProviderProducer) Produce(offset uint32, pos Position) (Chunk, error) {
	data := pp.Provider.Read(offset, pos)
	if len(data) == 0 {
		return Chunk{}, io.EOF
	}
	return Chunk{Data: append([]byte(nil), data...)}, nil
}

func (pp ProviderProducer) Release(Chunk) {}

// Close closes the underlying provider.
func (pp ProviderProducer) Close() error {
	return pp.Provider.Close()
}
