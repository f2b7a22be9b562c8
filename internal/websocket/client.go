package websocket

import (
	"context"
	"time"

	ws "github.com/coder/websocket"
	"github.com/google/uuid"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
	pingTimeout    = 10 * time.Second
	writeTimeout   = 10 * time.Second
)

// Client is one listener on the connectivity channel. Each connection gets
// its own id, reported in its hello so a reconnect is distinguishable from
// the connection it replaces.
type Client struct {
	hub    *Hub
	conn   *ws.Conn
	send   chan []byte
	id     string
	remote string
}

func NewClient(hub *Hub, conn *ws.Conn, remote string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		id:     uuid.NewString(),
		remote: remote,
	}
}

// Run writes the hello before the client joins the hub, so no broadcast can
// overtake it, then pumps frames until the connection ends.
func (c *Client) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hello, err := c.hub.hello(c.id)
	if err == nil {
		err = c.write(ctx, hello)
	}
	if err != nil {
		c.hub.logger.Debug("websocket hello", "client", c.id, "remote", c.remote, "error", err)
		c.conn.CloseNow()
		return
	}

	c.hub.Register(c)
	defer c.hub.Unregister(c)

	// Clients only listen. A data frame from one closes the connection.
	c.writePump(c.conn.CloseRead(ctx))
}

func (c *Client) write(ctx context.Context, msg []byte) error {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(wctx, ws.MessageText, msg)
}

// writePump drains the send channel and pings to detect stale connections.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.Close(ws.StatusGoingAway, "")
				return
			}
			if err := c.write(ctx, msg); err != nil {
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
