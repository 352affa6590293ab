package alert

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/talkcircle/sentinel/internal/alert"
	"github.com/talkcircle/sentinel/internal/identity"
)

const localsUserID = "alert_user_id"

// WebSocketHandler upgrades observer connections and attaches them to the
// alert hub.
type WebSocketHandler struct {
	hub      *alert.Hub
	resolver identity.Resolver
}

func NewWebSocketHandler(hub *alert.Hub, resolver identity.Resolver) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, resolver: resolver}
}

// Middleware authenticates the caller before the websocket upgrade so a bad
// token is rejected with a plain HTTP status instead of a dropped socket.
// The token comes from the Authorization header or, for browser clients that
// cannot set headers on websocket dials, the token query parameter.
func (h *WebSocketHandler) Middleware(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	token := strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	if token == "" {
		token = c.Query("token")
	}
	id, err := h.resolver.Resolve(c.UserContext(), token)
	if err != nil {
		if errors.Is(err, identity.ErrUnauthenticated) {
			return fiber.ErrUnauthorized
		}
		slog.Error("identity resolution failed", "error", err)
		return fiber.ErrBadGateway
	}
	c.Locals(localsUserID, id.UserID)
	return c.Next()
}

// Handle registers the upgraded connection with the hub and then blocks on
// reads. Observers send nothing meaningful; the read loop only notices
// close/error so the connection can be reaped promptly instead of waiting
// for a failed broadcast write.
func (h *WebSocketHandler) Handle(c *websocket.Conn) {
	userID, _ := c.Locals(localsUserID).(string)

	unregister, err := h.hub.Register(userID, c)
	if err != nil {
		slog.Warn("observer registration failed", "error", err, "user_id", userID)
		_ = c.Close()
		return
	}
	defer unregister()

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}
