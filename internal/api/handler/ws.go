package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"supportchat/backend/internal/chathub"
	"supportchat/backend/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allows connections from any origin. Tighten in production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the connection and hands the client to the hub.
// AuthMiddleware has already attached the principal.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	p := CurrentPrincipal(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to upgrade connection"})
		return
	}

	client := &chathub.WebSocketClient{
		ID:       uuid.New().String(),
		User:     p.ID,
		UserMail: p.Email,
		UserRole: p.Role,
		Hub:      h.Hub,
		Conn:     conn,
		Send:     make(chan models.OutboundEvent, 256),
	}

	h.Hub.RegisterCh <- client
	client.Run()
}
