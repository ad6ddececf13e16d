package ws

import (
	"sync"
	"time"

	"github.com/cwrk-planet/chat-service/internal/realtime"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
)

// wsConn оборачивает одно WebSocket-соединение. Запись идёт только из writeLoop,
// поэтому порядок кадров для получателя совпадает с порядком Send.
type wsConn struct {
	id   string
	conn *websocket.Conn

	send      chan realtime.Message
	closed    chan struct{}
	closeOnce sync.Once
}

func newWsConn(c *websocket.Conn, queue int) *wsConn {
	return &wsConn{
		id:     ulid.Make().String(),
		conn:   c,
		send:   make(chan realtime.Message, queue),
		closed: make(chan struct{}),
	}
}

func (c *wsConn) ID() string { return c.id }

// Send кладёт кадр в очередь. Переполненная очередь, медленный клиент: закрываем его.
func (c *wsConn) Send(msg realtime.Message) error {
	select {
	case <-c.closed:
		return realtime.ErrConnClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	case <-c.closed:
		return realtime.ErrConnClosed
	default:
		_ = c.Close()
		return realtime.ErrQueueFull
	}
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}

func (c *wsConn) writeLoop(pingEvery, writeTimeout time.Duration) {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()
	defer func() { _ = c.Close() }()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}
