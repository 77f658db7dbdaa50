// Package ws implements the live delivery channel over WebSocket:
// handshake authentication, the connection handle registered with the
// registry, and the read/write pumps.
package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Dmann24/quantina-core/internal/observability/logging"
)

const (
	// writeWait is the deadline for one outbound frame.
	writeWait = 10 * time.Second

	// pongWait is how long the peer has to answer a ping.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// maxInboundBytes bounds one inbound frame.
	maxInboundBytes = 64 * 1024

	// sendBuffer is the per-connection outbound queue. Deliver fails
	// rather than blocks when the peer cannot drain it.
	sendBuffer = 32
)

var errConnClosed = errors.New("ws: connection closed")

// Connection is one live WebSocket session. It implements
// registry.Conn: Deliver hands the event to the write pump without
// blocking fan-out.
type Connection struct {
	id     string
	userID string
	conn   *websocket.Conn

	send chan any
	done chan struct{}
	once sync.Once
}

func newConnection(userID string, conn *websocket.Conn) *Connection {
	return &Connection{
		id:     uuid.NewString(),
		userID: userID,
		conn:   conn,
		send:   make(chan any, sendBuffer),
		done:   make(chan struct{}),
	}
}

// ID returns the connection's unique handle identity.
func (c *Connection) ID() string { return c.id }

// UserID returns the identity the connection was established with.
func (c *Connection) UserID() string { return c.userID }

// Deliver queues the event for the write pump. A closed connection or a
// full queue fails the delivery; the caller treats that as a miss on
// this handle, not a pipeline error.
func (c *Connection) Deliver(event any) error {
	select {
	case <-c.done:
		return errConnClosed
	default:
	}

	select {
	case c.send <- event:
		return nil
	case <-c.done:
		return errConnClosed
	default:
		return errors.New("ws: send buffer full")
	}
}

// close shuts the connection down once; safe to call from both pumps.
func (c *Connection) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// writePump serializes all writes to the peer and keeps it alive with
// pings. One writer per connection: gorilla connections do not allow
// concurrent writers.
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case event := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(event); err != nil {
				logger := logging.WithConnection(c.userID, c.id)
				logger.Debug().
					Err(err).
					Msg("Write to peer failed")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
