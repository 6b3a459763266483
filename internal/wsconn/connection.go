// Package wsconn wraps a gorilla/websocket connection behind a single
// writer goroutine, since *websocket.Conn forbids concurrent writes
// from multiple goroutines. Grounded on the teacher's
// internal/websocket/connection.go outbound-channel pattern.
package wsconn

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrClosed is returned by WriteJSON once the connection has been
// closed and its writer goroutine has exited.
var ErrClosed = errors.New("connection closed")

const outboundBufferSize = 64

// Conn is a single client socket. All data writes flow through the
// outbound channel, drained by a single writePump goroutine, so the
// underlying *websocket.Conn never sees concurrent WriteMessage calls.
type Conn struct {
	id   string
	ws   *websocket.Conn
	out  chan []byte
	done chan struct{}

	closeOnce sync.Once

	writeTimeout time.Duration
}

// New wraps a raw websocket connection and starts its writer pump.
func New(id string, ws *websocket.Conn, writeTimeout time.Duration) *Conn {
	c := &Conn{
		id:           id,
		ws:           ws,
		out:          make(chan []byte, outboundBufferSize),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
	}
	go c.writePump()
	return c
}

// ID returns the connection's stable identifier.
func (c *Conn) ID() string {
	return c.id
}

// Raw exposes the underlying websocket connection for the read loop,
// which must stay single-reader but is otherwise outside this type's
// responsibility.
func (c *Conn) Raw() *websocket.Conn {
	return c.ws
}

func (c *Conn) writePump() {
	for {
		select {
		case msg, ok := <-c.out:
			if !ok {
				return
			}
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// WriteJSON marshals v and enqueues it for the writer goroutine. It
// never blocks the caller on network I/O; a full outbound buffer
// indicates a stalled client and is treated as a send failure rather
// than backpressure on the whole broker.
func (c *Conn) WriteJSON(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case c.out <- b:
		return nil
	case <-c.done:
		return ErrClosed
	default:
		return errors.New("outbound buffer full")
	}
}

// WritePing sends an RFC 6455 control-frame ping directly on the
// underlying socket. Gorilla permits WriteControl concurrently with the
// writer goroutine's WriteMessage calls, so this bypasses the out
// channel the same way CloseWithCode does.
func (c *Conn) WritePing() error {
	deadline := time.Now().Add(c.writeTimeout)
	return c.ws.WriteControl(websocket.PingMessage, nil, deadline)
}

// Close shuts the connection down with the normal close code.
func (c *Conn) Close() error {
	return c.CloseWithCode(websocket.CloseNormalClosure, "")
}

// CloseWithCode sends a close frame with the given code/reason, then
// tears down the writer goroutine and underlying socket.
func (c *Conn) CloseWithCode(code int, reason string) error {
	var err error
	c.closeOnce.Do(func() {
		deadline := time.Now().Add(c.writeTimeout)
		closeMsg := websocket.FormatCloseMessage(code, reason)
		_ = c.ws.WriteControl(websocket.CloseMessage, closeMsg, deadline)
		close(c.done)
		err = c.ws.Close()
	})
	return err
}
