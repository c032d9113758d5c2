package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"sitterfeed/internal/source"

	"github.com/gorilla/websocket"
)

// OpenFunc opens the producer serving one connection. If the producer
// also implements io.Closer it is closed when the connection ends.
type OpenFunc func(r *http.Request) (source.Producer, error)

// Handler serves producers to remote clients, one per connection, and
// holds at most one of each producer's chunks outstanding.
type Handler struct {
	open     OpenFunc
	upgrader websocket.Upgrader

	mu    sync.Mutex
	stats source.Stats
}

// NewHandler creates a Handler that opens producers with open.
func NewHandler(open OpenFunc) *Handler {
	return &Handler{
		open:     open,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

// Stats returns the counters summed over every connection served so far.
func (h *Handler) Stats() source.Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats
}

func (h *Handler) count(f func(s *source.Stats)) {
	h.mu.Lock()
	f(&h.stats)
	h.mu.Unlock()
}

// connection is the per-client state of a Handler.
type connection struct {
	handler     *Handler
	conn        *websocket.Conn
	producer    source.Producer
	outstanding *source.Chunk
	handle      uint64
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	producer, err := h.open(r)
	if err != nil {
		log.Errorf("failed to open producer for %s: %v", r.URL, err)
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if closer, ok := producer.(io.Closer); ok {
		defer closer.Close()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	c := &connection{handler: h, conn: conn, producer: producer}
	defer c.release()
	log.Infof("serving %s to %s", r.URL.Path, conn.RemoteAddr())

	for {
		var m Message
		if err := conn.ReadJSON(&m); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debugf("connection from %s ended: %v", conn.RemoteAddr(), err)
			}
			return
		}

		switch m.Op {
		case OpProduce:
			if err := conn.WriteJSON(c.produce(m)); err != nil {
				log.Warningf("write to %s failed: %v", conn.RemoteAddr(), err)
				return
			}
		case OpRelease:
			if c.outstanding == nil || m.Handle != c.handle {
				log.Warningf("release of unknown chunk %d", m.Handle)
				continue
			}
			c.release()
		default:
			log.Warningf("unexpected %q message", m.Op)
		}
	}
}

func (c *connection) release() {
	if c.outstanding == nil {
		return
	}
	chunk := *c.outstanding
	c.outstanding = nil
	c.handler.count(func(s *source.Stats) { s.Releases++ })

	defer func() {
		if r := recover(); r != nil {
			log.Warningf("release panicked: %v", r)
		}
	}()
	c.producer.Release(chunk)
}

// call runs the producer once, turning a panic into an error.
func (c *connection) call(m Message) (chunk source.Chunk, err error) {
	defer func() {
		if r := recover(); r != nil {
			chunk = source.Chunk{}
			err = fmt.Errorf("%w: producer panicked: %v", source.ErrUnreachable, r)
		}
	}()
	return c.producer.Produce(m.Offset, source.Position{Row: m.Row, Column: m.Column})
}

func (c *connection) produce(m Message) Message {
	c.handler.count(func(s *source.Stats) { s.Calls++ })
	if c.outstanding != nil {
		c.handler.count(func(s *source.Stats) { s.Violations++ })
		source.LifetimeViolation(fmt.Sprintf("client requested more while chunk %d is lent", c.handle))
		c.release()
	}

	chunk, err := c.call(m)
	switch {
	case errors.Is(err, io.EOF):
		c.handler.count(func(s *source.Stats) { s.EOFs++ })
		return Message{Op: OpChunk, ID: m.ID, EOF: true}
	case err != nil:
		c.handler.count(func(s *source.Stats) { s.Failures++ })
		return Message{Op: OpError, ID: m.ID, Error: err.Error()}
	}

	if len(chunk.Data) == 0 {
		c.handler.count(func(s *source.Stats) { s.EOFs++ })
		c.outstanding = &chunk
		c.release()
		return Message{Op: OpChunk, ID: m.ID, EOF: true}
	}

	c.handle++
	c.outstanding = &chunk
	return Message{Op: OpChunk, ID: m.ID, Handle: c.handle, Data: chunk.Data}
}

// ListenAndServe serves h on addr until ctx is done. ready, if not nil,
// receives the bound address once the listener is up and is closed when
// ListenAndServe returns, so a listen failure never leaves a reader waiting.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, ready chan<- string) error {
	if ready != nil {
		defer close(ready)
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("could not start listener: %w", err)
	}
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}

	if ready != nil {
		ready <- l.Addr().String()
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(l) }()

	select {
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
