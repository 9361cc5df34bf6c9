package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
)

const (
	sendBuffer = 16
	writeWait  = 10 * time.Second
)

var (
	errConnClosed   = errors.New("connection already closed")
	errSlowConsumer = errors.New("send buffer full")
)

// wsConn adapts a websocket to the Connection interface. Outbound payloads
// go through a bounded queue drained by writeLoop, so Send never blocks the
// broadcaster on a slow client.
type wsConn struct {
	id   string
	sock *websocket.Conn
	send chan []byte
	once sync.Once
	done chan struct{}
}

func newWSConn(sock *websocket.Conn) *wsConn {
	return &wsConn{
		id:   uuid.NewString(),
		sock: sock,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Send(data []byte) error {
	select {
	case <-c.done:
		return errConnClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		return errSlowConsumer
	}
}

func (c *wsConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return c.sock.Close(websocket.StatusNormalClosure, "server closing")
}

func (c *wsConn) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case data := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.sock.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
