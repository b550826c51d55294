package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/hospiq/queue-backend/internal/models"
	"github.com/hospiq/queue-backend/internal/queue"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Viewers are served from arbitrary origins on the LAN.
		return true
	},
}

// ServeWS upgrades the connection and subscribes it through the engine, so
// the snapshot frame is enqueued and the client added to the hub atomically
// with respect to concurrent registrations. The snapshot is always the first
// frame the viewer receives; everything after is an incremental event.
func ServeWS(hub *Hub, engine *queue.Engine, log *slog.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			return err
		}
		client := NewClient(conn)

		err = engine.Subscribe(c.Request().Context(), func(snapshot models.Event) {
			payload, err := json.Marshal(snapshot)
			if err != nil {
				log.Error("failed to marshal snapshot frame", "error", err)
				return
			}
			// The send buffer is empty here, so this cannot block.
			client.send <- payload
			hub.Add(client)
		})
		if err != nil {
			log.Error("subscription failed", "client_id", client.id, "error", err)
			conn.Close()
			return err
		}

		go client.writePump()
		go client.readPump(hub)
		return nil
	}
}
