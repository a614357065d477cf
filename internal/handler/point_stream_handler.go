package handler

import (
	"confusion-engine-be/internal/constant"
	"confusion-engine-be/internal/pkg/logger"
	internalWS "confusion-engine-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type PointStreamHandler struct {
	hub    *internalWS.Hub
	logger logger.ILogger
}

func NewPointStreamHandler(hub *internalWS.Hub, log logger.ILogger) *PointStreamHandler {
	return &PointStreamHandler{hub: hub, logger: log}
}

func (h *PointStreamHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/ws/points", h.ServeWs)
}

// ServeWs streams confusion points live. ?segment_id= narrows the feed to one segment.
func (h *PointStreamHandler) ServeWs(c *fiber.Ctx) error {
	segmentID := c.Query("segment_id")

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info(constant.ModulePointStream, "Starting WebSocket session", map[string]interface{}{"segment_id": segmentID})
			internalWS.ServeWs(h.hub, conn, segmentID)
			h.logger.Info(constant.ModulePointStream, "WebSocket session ended", map[string]interface{}{"segment_id": segmentID})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}
