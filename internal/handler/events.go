package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/kuldeep456789/VisionIQ/internal/logger"
	hub "github.com/kuldeep456789/VisionIQ/internal/service/websocket"
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all
// origins since access is controlled by the bearer token.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// EventsHandler registers a viewer with the hub so it receives every
// detection event. Messages sent by the viewer are discarded.
func EventsHandler(h *hub.Hub, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		if err := h.Register(connection); err != nil {
			return
		}
		defer h.Unregister(connection)

		connection.SetReadLimit(512)
		for {
			_, _, err := connection.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Debug("Viewer disconnected normally")
				} else {
					logger.Debug("Viewer disconnected with error: %v", err)
				}
				break
			}
		}
	}
}
