package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs registers the connection and pumps until either side closes.
func ServeWs(hub *Hub, conn *websocket.Conn, userID string) {
	client := NewClient(hub, conn, userID)
	if !hub.Register(client) {
		_ = conn.Close()
		return
	}

	go client.writePump()
	client.readPump()
}
