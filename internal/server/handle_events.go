package server

import (
	"log/slog"
	"net/http"

	"nhooyr.io/websocket"
)

// handleEvents upgrades the request to a WebSocket and keeps the connection
// registered with the dispatcher until the peer goes away. Clients only
// listen on this channel; inbound frames are drained and discarded.
func handleEvents(logger *slog.Logger, dispatcher *Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sock, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer sock.CloseNow()

		conn := newWSConn(sock)
		dispatcher.Register(conn)
		defer func() {
			dispatcher.Unregister(conn)
			conn.Close()
		}()

		go conn.writeLoop(r.Context())

		for {
			if _, _, err := sock.Read(r.Context()); err != nil {
				logger.Debug("websocket read ended", "connId", conn.ID(), "error", err)
				return
			}
		}
	}
}
