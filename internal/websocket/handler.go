package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs registers the connection and blocks until the peer goes away.
func ServeWs(hub *Hub, c *websocket.Conn, segmentID string) {
	client := &Client{Hub: hub, Conn: c, SegmentID: segmentID, Send: make(chan []byte, 256)}
	if !hub.join(client) {
		return
	}

	go client.writePump()
	client.readPump()
}
