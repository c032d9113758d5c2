package source

import (
	"errors"
	"fmt"
	"io"
)

// Producer is a foreign source of chunks. Produce returns io.EOF once there
// is no more data. Every chunk returned by Produce is handed back through
// Release exactly once, and always before the next call to Produce.
type Producer interface {
	Produce(offset uint32, pos Position) (Chunk, error)
	Release(Chunk)
}

// Funcs adapts a pair of functions to the Producer interface. A nil
// OnRelease means the producer has nothing to reclaim.
type Funcs struct {
	OnProduce func(offset uint32, pos Position) (Chunk, error)
	OnRelease func(Chunk)
}

func (f Funcs) Produce(offset uint32, pos Position) (Chunk, error) {
	if f.OnProduce == nil {
		return Chunk{}, ErrUnreachable
	}
	return f.OnProduce(offset, pos)
}

func (f Funcs) Release(c Chunk) {
	if f.OnRelease != nil {
		f.OnRelease(c)
	}
}

// CallbackProvider forwards every read to a Producer and keeps at most one
// of its chunks outstanding.
type CallbackProvider struct {
	producer Producer
	lease    lease
	stats    Stats
	closed   bool
}

// NewCallbackProvider binds a provider to producer for one parse session.
func NewCallbackProvider(producer Producer) *CallbackProvider {
	p := &CallbackProvider{producer: producer}
	p.lease = lease{owner: producer, stats: &p.stats}
	return p
}

// Read releases the previous chunk, then asks the producer for the next one.
// Any failure of the producer reads as end of input.
func (p *CallbackProvider) Read(offset uint32, pos Position) []byte {
	p.stats.Calls++
	p.lease.release()

	if p.closed || p.producer == nil {
		p.stats.Failures++
		log.Debugf("read at %d (%d:%d): %s", offset, pos.Row, pos.Column, ErrUnreachable)
		return nil
	}

	chunk, err := p.produce(offset, pos)
	if err != nil {
		if errors.Is(err, io.EOF) {
			p.stats.EOFs++
		} else {
			p.stats.Failures++
			log.Warningf("read at %d (%d:%d): %v", offset, pos.Row, pos.Column, err)
		}
		return nil
	}

	p.lease.hold(chunk)
	if len(chunk.Data) == 0 {
		p.stats.EOFs++
		p.lease.release()
		return nil
	}
	return chunk.Data
}

// produce calls the producer exactly once, turning a panic into an error.
func (p *CallbackProvider) produce(offset uint32, pos Position) (chunk Chunk, err error) {
	defer func() {
		if r := recover(); r != nil {
			chunk = Chunk{}
			err = fmt.Errorf("%w: producer panicked: %v", ErrUnreachable, r)
		}
	}()
	return p.producer.Produce(offset, pos)
}

// Outstanding reports whether a chunk is currently borrowed from the producer.
func (p *CallbackProvider) Outstanding() bool {
	return p.lease.outstanding()
}

// Stats returns the counters collected so far.
func (p *CallbackProvider) Stats() Stats {
	return p.stats
}

// Close releases the outstanding chunk. Reads after Close return end of input.
func (p *CallbackProvider) Close() error {
	p.lease.release()
	p.closed = true
	return nil
}
