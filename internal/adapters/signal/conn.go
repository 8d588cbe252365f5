package signal

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/edpulse/presence/internal/core"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

// WsConn adapts a gorilla websocket to core.SignalConnection. Writes go
// through a buffered channel drained by the write pump; TrySend never blocks
// on the network, a full buffer is a dropped send.
type WsConn struct {
	conn         *websocket.Conn
	send         chan core.Frame
	writeTimeout time.Duration

	mu     sync.RWMutex
	closed bool
}

func newWsConn(ws *websocket.Conn, buffer int, writeTimeout time.Duration) *WsConn {
	return &WsConn{
		conn:         ws,
		send:         make(chan core.Frame, buffer),
		writeTimeout: writeTimeout,
	}
}

func (c *WsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

// Ping writes a control frame directly; gorilla allows WriteControl
// concurrently with the write pump's WriteMessage.
func (c *WsConn) Ping() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout))
}

func (c *WsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}
