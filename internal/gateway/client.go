package gateway

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/stride-hr/presence-gateway/internal/model"
)

// Client wraps one live WebSocket connection. Outbound events go through a
// buffered send channel drained by the write pump, so a slow peer never
// blocks the sender; messages for the same recipient keep their accepted
// order.
type Client struct {
	conn     *websocket.Conn
	id       string
	identity model.Identity
	send     chan []byte
	mu       sync.Mutex
	closed   bool
}

// NewClient creates a client for a registered connection.
func NewClient(conn *websocket.Conn, id string, identity model.Identity, sendBuffer int) *Client {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	return &Client{
		conn:     conn,
		id:       id,
		identity: identity,
		send:     make(chan []byte, sendBuffer),
	}
}

// ID returns the connection id.
func (c *Client) ID() string {
	return c.id
}

// Identity returns the identity claims supplied at connect time.
func (c *Client) Identity() model.Identity {
	return c.identity
}

// Send queues a message for delivery. If the buffer is full the client is
// closed; the read pump then tears the connection down.
func (c *Client) Send(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.send <- data:
	default:
		// Buffer full, close the client
		c.closeLocked()
	}
}

// Close closes the send channel. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// IsClosed returns true if the client is closed.
func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Conn returns the underlying WebSocket connection; nil for test clients.
func (c *Client) Conn() *websocket.Conn {
	return c.conn
}

// SendChan returns the send channel for the client.
func (c *Client) SendChan() <-chan []byte {
	return c.send
}
