package ws

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Conn is a Channel over a gorilla websocket. Writes are serialized; Close is idempotent.
type Conn struct {
	conn    *websocket.Conn
	partyID uuid.UUID

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func NewConn(partyID uuid.UUID, conn *websocket.Conn) *Conn {
	return &Conn{
		conn:    conn,
		partyID: partyID,
		done:    make(chan struct{}),
	}
}

func (c *Conn) PartyID() uuid.UUID {
	return c.partyID
}

// Done is closed once the connection is closed.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Send writes msg as JSON. The write deadline is the earlier of ctx's deadline and writeWait.
func (c *Conn) Send(ctx context.Context, msg any) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}

	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	return nil
}

// Listen reads frames until the peer goes away, ctx is done or handle fails. It
// keeps the connection alive with pings while it runs.
func (c *Conn) Listen(ctx context.Context, handle func(ctx context.Context, data []byte) error) error {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go c.keepAlive(ctx)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read failed: %w", err)
		}
		if err := handle(ctx, data); err != nil {
			return fmt.Errorf("handler failed: %w", err)
		}
	}
}

func (c *Conn) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = c.Close()
			return
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				_ = c.Close()
				return
			}
		}
	}
}

func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)

		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()

		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
