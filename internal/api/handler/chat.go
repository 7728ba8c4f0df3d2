package handler

import (
	"errors"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"supportchat/backend/internal/config"
	"supportchat/backend/internal/models"
	"supportchat/backend/internal/storage"
)

// RegisterRoutes mounts the chat HTTP surface under /api/chat.
func (h *Handler) RegisterRoutes(r *gin.Engine, secret string) {
	auth := AuthMiddleware(secret, h.Storage)

	r.GET("/ws", auth, h.ServeWebSocket)

	// Downloads authenticate by signature, not by token: the signed URL
	// is handed to the browser as-is.
	r.GET("/files/:fileKey", h.DownloadFile)

	chat := r.Group("/api/chat", auth)
	{
		chat.GET("/my-room", h.GetMyRoom)
		chat.GET("/history/:roomId", h.GetHistory)
		chat.POST("/messages/read", h.MarkRead)
		chat.POST("/clear/:roomId", h.ClearChat)
		chat.GET("/unread-count", h.UnreadCount)
		chat.GET("/file-url/:fileKey", h.FileURL)

		admin := chat.Group("", RequireAdmin())
		{
			admin.GET("/admin/rooms", h.AdminRooms)
			admin.DELETE("/admin/room/:roomId", h.AdminCloseRoom)
		}
	}
}

// GetMyRoom returns the caller's room, creating it on first contact. It
// follows the same admin-assignment policy as the hub's resolver but
// works against the store only; the hub caches participants on its own
// when the customer's socket connects.
func (h *Handler) GetMyRoom(c *gin.Context) {
	p := CurrentPrincipal(c)

	room, err := h.Storage.FindRoomByCustomer(p.ID)
	if err != nil {
		serverError(c)
		return
	}
	if room == nil {
		adminID := ""
		admin, err := h.Storage.FindActiveAdmin()
		if err != nil {
			serverError(c)
			return
		}
		if admin != nil {
			adminID = admin.ID
		} else if h.FallbackAdminID != "" {
			adminID = h.FallbackAdminID
		} else {
			c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "No admin available"})
			return
		}

		room = &models.ChatRoom{
			CustomerID: p.ID,
			AdminID:    &adminID,
			RoomName:   models.RoomNameFor(p.ID),
			IsActive:   true,
		}
		if err := h.Storage.CreateRoom(room); err != nil {
			// Lost a creation race against the socket path; the winner's
			// row is the customer's room.
			room, err = h.Storage.FindRoomByCustomer(p.ID)
			if err != nil || room == nil {
				serverError(c)
				return
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "room": room})
}

// GetHistory returns a marker-filtered page of the room's messages.
func (h *Handler) GetHistory(c *gin.Context) {
	p := CurrentPrincipal(c)
	roomID := c.Param("roomId")

	room, err := h.Storage.GetRoomByID(roomID)
	if err != nil {
		if errors.Is(err, storage.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Chat room not found"})
			return
		}
		serverError(c)
		return
	}

	if p.Role != models.RoleAdmin && room.CustomerID != p.ID {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Access denied to this chat room"})
		return
	}

	limit := intQuery(c, "limit", config.DefaultHistoryLimit)
	offset := intQuery(c, "offset", 0)

	messages, err := h.Storage.GetChatHistory(roomID, p.ID, limit, offset)
	if err != nil {
		serverError(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "messages": messages})
}

type markReadRequest struct {
	MessageIDs []string `json:"messageIds" binding:"required,min=1"`
}

// MarkRead flips the read flag on the caller's messages.
func (h *Handler) MarkRead(c *gin.Context) {
	var req markReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Message IDs array is required"})
		return
	}

	p := CurrentPrincipal(c)
	if err := h.Storage.MarkMessagesRead(req.MessageIDs, p.ID); err != nil {
		serverError(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Messages marked as read"})
}

// ClearChat upserts the caller's deletion marker for the room.
func (h *Handler) ClearChat(c *gin.Context) {
	p := CurrentPrincipal(c)
	roomID := c.Param("roomId")

	if err := h.Storage.UpsertDeletedChat(p.ID, roomID, time.Now()); err != nil {
		serverError(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Chat cleared successfully"})
}

// UnreadCount returns the caller's unread message count.
func (h *Handler) UnreadCount(c *gin.Context) {
	p := CurrentPrincipal(c)

	count, err := h.Storage.CachedUnreadCount(p.ID)
	if err != nil {
		serverError(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "count": count})
}

// FileURL resolves an opaque file key to a time-limited download link.
func (h *Handler) FileURL(c *gin.Context) {
	url, err := h.Signer.SignedURL(c.Param("fileKey"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid file key"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "url": url})
}

// DownloadFile serves a stored file after checking the link signature
// produced by FileURL. Expired or tampered links are rejected.
func (h *Handler) DownloadFile(c *gin.Context) {
	fileKey := c.Param("fileKey")

	expires, err := strconv.ParseInt(c.Query("expires"), 10, 64)
	if err != nil || !h.Signer.Verify(fileKey, expires, c.Query("sig")) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Link invalid or expired"})
		return
	}

	c.File(filepath.Join(h.FileDir, filepath.Base(fileKey)))
}

// AdminRooms lists the active rooms for the admin dashboard.
func (h *Handler) AdminRooms(c *gin.Context) {
	rooms, err := h.Storage.GetActiveRooms()
	if err != nil {
		serverError(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "rooms": rooms})
}

// AdminCloseRoom transactionally deletes the room with all its messages
// and markers. A mid-deletion failure leaves everything intact.
func (h *Handler) AdminCloseRoom(c *gin.Context) {
	roomID := c.Param("roomId")

	if err := h.Storage.CloseRoom(roomID); err != nil {
		if errors.Is(err, storage.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Chat room not found"})
			return
		}
		log.Printf("ERROR: closing room %s failed: %v", roomID, err)
		serverError(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Chat room closed"})
}

func serverError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
