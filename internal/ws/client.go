package ws

import (
	"context"
	"encoding/json"
	"time"

	"boostclics/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second
	readLimit  = 4096
)

type outbound struct {
	data  []byte
	close bool
}

// Client is one feed subscriber. Only writePump writes to the connection.
type Client struct {
	conn    *websocket.Conn
	send    chan outbound
	refresh chan struct{}
	// done is closed when writePump exits.
	done chan struct{}
}

func newClient(conn *websocket.Conn) *Client {
	return &Client{
		conn:    conn,
		send:    make(chan outbound, 16),
		refresh: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// queue hands msg to the writer; it gives up once ctx is done or the
// writer has exited.
func (c *Client) queue(ctx context.Context, msg Message) {
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- outbound{data: b}:
	case <-c.done:
	case <-ctx.Done():
	}
}

// closeAfter queues msg followed by a close frame.
func (c *Client) closeAfter(ctx context.Context, msg Message) {
	c.queue(ctx, msg)
	select {
	case c.send <- outbound{close: true}:
	case <-c.done:
	case <-ctx.Done():
	}
}

//read
func (c *Client) readPump(ctx context.Context) {
	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("ws read error", "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.queue(ctx, Message{Type: MsgError, Error: "invalid message"})
			continue
		}

		switch msg.Type {
		case MsgPing:
			c.queue(ctx, Message{Type: MsgPong})
		case MsgRefresh:
			select {
			case c.refresh <- struct{}{}:
			default:
			}
		default:
			c.queue(ctx, Message{Type: MsgError, Error: "unknown message type"})
		}
	}
}

//write
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(c.done)
		c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return

		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if msg.close {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session expired"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg.data); err != nil {
				logger.Debug("ws write error", "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
