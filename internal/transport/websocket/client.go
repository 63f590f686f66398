package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

var errQueueFull = errors.New("send queue full")

// client is one connected socket. Only writeLoop writes to conn.
type client struct {
	id     string
	conn   *ws.Conn
	sendCh chan []byte
	done   chan struct{} // closed on disconnect

	closeOnce sync.Once
	logger    *slog.Logger
}

func newClient(id string, conn *ws.Conn, queueSize int, logger *slog.Logger) *client {
	return &client{
		id:     id,
		conn:   conn,
		sendCh: make(chan []byte, queueSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// enqueue encodes v and hands it to the write goroutine without blocking.
func (c *client) enqueue(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}
	select {
	case <-c.done:
		return ErrClientNotConnected
	default:
	}
	select {
	case c.sendCh <- data:
		return nil
	default:
		return fmt.Errorf("%w: client %s", errQueueFull, c.id)
	}
}

// writeLoop drains sendCh and pings the client every period.
func (c *client) writeLoop(period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(ws.CloseMessage,
				ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case data := <-c.sendCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Warn("WebSocket SetWriteDeadline error", "client", c.id, "error", err)
				c.close()
				return
			}
			if err := c.conn.WriteMessage(ws.TextMessage, data); err != nil {
				c.logger.Warn("WebSocket write error", "client", c.id, "error", err)
				c.close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(ws.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.logger.Debug("WebSocket ping failed", "client", c.id, "error", err)
				c.close()
				return
			}
		}
	}
}

// close stops the write goroutine and closes the socket, which ends the
// read loop.
func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		// give writeLoop a moment to send the close frame
		time.AfterFunc(100*time.Millisecond, func() { _ = c.conn.Close() })
	})
}

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
