package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/laibaTLD/logic-camp-messaging/internal/domain"
)

var errSessionGone = errors.New("session closed or send buffer full")

// Client is one live websocket session. It satisfies registry.Session; Push
// is non-blocking and fails fast when the session is closed or the buffer is
// full, so one slow consumer never stalls fan-out.
type Client struct {
	id       string
	userID   string
	userName string
	conn     *websocket.Conn
	send     chan []byte

	mu     sync.Mutex
	closed bool
}

func NewClient(id, userID, userName string, conn *websocket.Conn) *Client {
	return &Client{
		id:       id,
		userID:   userID,
		userName: userName,
		conn:     conn,
		send:     make(chan []byte, 256),
	}
}

func (c *Client) ID() string     { return c.id }
func (c *Client) UserID() string { return c.userID }

func (c *Client) Push(evt domain.Event) error {
	b, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errSessionGone
	}
	select {
	case c.send <- b:
		return nil
	default:
		return errSessionGone
	}
}

// Close is safe to call more than once; transport close events can race.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// writePump drains the send buffer onto the socket and keeps the connection
// alive with pings. Runs in its own goroutine per session.
func (c *Client) writePump(pingInterval, writeDeadline time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case b, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(time.Second))
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				return
			}
		}
	}
}
