package handler

import (
	"doc-assistant-be/internal/pkg/logger"
	"doc-assistant-be/internal/pkg/serverutils"
	internalWS "doc-assistant-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// DeliveryHandler upgrades chat clients to a websocket on which exported
// artifacts are pushed.
type DeliveryHandler struct {
	hub    *internalWS.Hub
	secret string
	logger logger.ILogger
}

func NewDeliveryHandler(hub *internalWS.Hub, jwtSecret string, log logger.ILogger) *DeliveryHandler {
	return &DeliveryHandler{hub: hub, secret: jwtSecret, logger: log}
}

func (h *DeliveryHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/assistant/v1/ws", h.ServeWs)
}

// ServeWs authenticates the handshake. The token must carry a sender_id claim.
func (h *DeliveryHandler) ServeWs(c *fiber.Ctx) error {
	if h.secret == "" {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Live delivery disabled: JWT_SECRET not set")
	}

	tokenStr := serverutils.BearerToken(c)
	if tokenStr == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "Missing token (query 'token' or header 'Authorization')")
	}

	claims, err := serverutils.ParseToken(h.secret, tokenStr)
	if err != nil {
		h.logger.Warn("DELIVERY", "Invalid token in WS handshake", map[string]interface{}{"error": err.Error()})
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
	}

	senderID, _ := claims["sender_id"].(string)
	if senderID == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "Token missing sender_id")
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("DELIVERY", "Starting WebSocket session", map[string]interface{}{"user_id": senderID})
		internalWS.ServeWs(h.hub, conn, senderID)
		h.logger.Info("DELIVERY", "WebSocket session ended", map[string]interface{}{"user_id": senderID})
	})(c)
}
