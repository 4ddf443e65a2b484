package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"farmwatch/internal/logger"
)

const pongWait = 60 * time.Second

var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ViewerHub is the part of the websocket hub the view handler needs.
type ViewerHub interface {
	Register(conn *websocket.Conn)
	Unregister(conn *websocket.Conn)
}

// ViewWebsocketHandler upgrades the request and keeps the viewer registered
// until the browser goes away.
func ViewWebsocketHandler(hub ViewerHub, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}
		connection.SetReadLimit(512)
		connection.SetReadDeadline(time.Now().Add(pongWait))
		connection.SetPongHandler(func(string) error {
			connection.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})

		hub.Register(connection)
		defer hub.Unregister(connection)

		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				logger.Debug("Viewer disconnected: %v", err)
				return
			}
		}
	}
}
