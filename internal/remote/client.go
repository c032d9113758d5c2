package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"sitterfeed/internal/source"

	"github.com/gorilla/websocket"
)

var errClosed = errors.New("client closed")

// Client is a source.Producer backed by a remote Handler. Every Produce is
// one request/response round trip bounded by the client's timeout. Once
// the connection fails the client stays unreachable.
type Client struct {
	conn    *websocket.Conn
	timeout time.Duration
	nextID  uint64
	broken  error
}

// DefaultTimeout bounds each round trip when Dial is given no timeout.
const DefaultTimeout = 2 * time.Second

// Dial connects to a Handler at url. A timeout of zero or less means
// DefaultTimeout; round trips are never unbounded.
func Dial(ctx context.Context, url string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	return &Client{conn: conn, timeout: timeout}, nil
}

func (c *Client) deadline() time.Time {
	return time.Now().Add(c.timeout)
}

func (c *Client) fail(err error) error {
	if c.broken == nil {
		c.broken = err
		log.Warningf("connection lost: %v", err)
	}
	return fmt.Errorf("%w: %v", source.ErrUnreachable, err)
}

func (c *Client) send(m Message) error {
	c.conn.SetWriteDeadline(c.deadline())
	return c.conn.WriteJSON(m)
}

// Produce asks the remote side for the chunk at offset/pos.
func (c *Client) Produce(offset uint32, pos source.Position) (source.Chunk, error) {
	if c.broken != nil {
		return source.Chunk{}, fmt.Errorf("%w: %v", source.ErrUnreachable, c.broken)
	}

	c.nextID++
	id := c.nextID
	if err := c.send(Message{Op: OpProduce, ID: id, Offset: offset, Row: pos.Row, Column: pos.Column}); err != nil {
		return source.Chunk{}, c.fail(err)
	}

	var reply Message
	c.conn.SetReadDeadline(c.deadline())
	if err := c.conn.ReadJSON(&reply); err != nil {
		return source.Chunk{}, c.fail(err)
	}
	if reply.ID != id {
		return source.Chunk{}, c.fail(fmt.Errorf("reply %d to request %d", reply.ID, id))
	}

	switch reply.Op {
	case OpChunk:
		if reply.EOF {
			return source.Chunk{}, io.EOF
		}
		return source.Chunk{Data: reply.Data, Handle: reply.Handle}, nil
	case OpError:
		return source.Chunk{}, fmt.Errorf("%w: %s", ErrRemote, reply.Error)
	default:
		return source.Chunk{}, c.fail(fmt.Errorf("unexpected %q reply", reply.Op))
	}
}

// Release tells the remote side it may reclaim the chunk.
func (c *Client) Release(chunk source.Chunk) {
	handle, ok := chunk.Handle.(uint64)
	if !ok || c.broken != nil {
		return
	}
	if err := c.send(Message{Op: OpRelease, Handle: handle}); err != nil {
		c.fail(err)
	}
}

// Close ends the connection.
func (c *Client) Close() error {
	if c.broken == errClosed {
		return nil
	}
	if c.broken == nil {
		c.conn.SetWriteDeadline(c.deadline())
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}
	c.broken = errClosed
	return c.conn.Close()
}
