package models

import (
	"encoding/json"
	"time"
)

// Wire event names. These are the compatibility contract with existing
// clients and must not be renamed.
const (
	// Client -> server.
	EventSendMessage = "send_message"
	EventTyping      = "typing"
	EventMarkAsRead  = "mark_as_read"
	EventClearChat   = "clear_chat"
	EventJoinRoom    = "join_room"

	// Server -> client.
	EventChatHistory        = "chat_history"
	EventReceiveMessage     = "receive_message"
	EventMessageSent        = "message_sent"
	EventUserTyping         = "user_typing"
	EventMessageRead        = "message_read"
	EventAdminOnline        = "admin_online"
	EventCustomerOnline     = "customer_online"
	EventCustomerConnected  = "customer_connected"
	EventChatCleared        = "chat_cleared"
	EventChatClearedByOther = "chat_cleared_by_other"
	EventRoomJoined         = "room_joined"
	EventError              = "error"
	EventAck                = "ack"
)

// EventEnvelope is one inbound frame: a named event with a raw payload.
// AckID, when non-zero, asks the server to answer with an "ack" frame
// carrying the same id.
type EventEnvelope struct {
	Event string          `json:"event"`
	AckID int64           `json:"ackId,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// OutboundEvent is one frame queued for delivery to a client.
type OutboundEvent struct {
	Event string `json:"event"`
	AckID int64  `json:"ackId,omitempty"`
	Data  any    `json:"data,omitempty"`
}

// SendMessagePayload is the body of a send_message frame. RoomID is only
// honoured for admin senders; customers always post into their own room.
type SendMessagePayload struct {
	RoomID      string `json:"roomId,omitempty"`
	Message     string `json:"message"`
	MessageType string `json:"messageType"`
	ReceiverID  string `json:"receiverId,omitempty"`
	FileKey     string `json:"fileKey,omitempty"`
	FileName    string `json:"fileName,omitempty"`
	FileSize    int64  `json:"fileSize,omitempty"`
	FileType    string `json:"fileType,omitempty"`
}

// TypingPayload is the body of a typing frame.
type TypingPayload struct {
	RoomID   string `json:"roomId"`
	IsTyping bool   `json:"isTyping"`
}

// MarkAsReadPayload is the body of a mark_as_read frame.
type MarkAsReadPayload struct {
	MessageIDs []string `json:"messageIds"`
	RoomID     string   `json:"roomId"`
}

// MessagePayload is the full message envelope sent to clients, both as the
// sender's message_sent confirmation and as receive_message fan-out.
// Clients deduplicate by ID: the same logical message may arrive over two
// physical paths.
type MessagePayload struct {
	ID          string     `json:"id"`
	RoomID      string     `json:"roomId"`
	SenderID    string     `json:"senderId"`
	SenderEmail string     `json:"senderEmail,omitempty"`
	ReceiverID  string     `json:"receiverId"`
	Message     string     `json:"message"`
	MessageType string     `json:"messageType"`
	FileKey     string     `json:"fileKey,omitempty"`
	FileName    string     `json:"fileName,omitempty"`
	FileSize    int64      `json:"fileSize,omitempty"`
	FileType    string     `json:"fileType,omitempty"`
	IsRead      bool       `json:"isRead"`
	ReadAt      *time.Time `json:"readAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// NewMessagePayload builds the wire envelope for a persisted message.
func NewMessagePayload(m *Message) MessagePayload {
	return MessagePayload{
		ID:          m.ID,
		RoomID:      m.RoomID,
		SenderID:    m.SenderID,
		SenderEmail: m.SenderEmail(),
		ReceiverID:  m.ReceiverID,
		Message:     m.Body,
		MessageType: m.Type,
		FileKey:     m.FileKey,
		FileName:    m.FileName,
		FileSize:    m.FileSize,
		FileType:    m.FileType,
		IsRead:      m.IsRead,
		ReadAt:      m.ReadAt,
		CreatedAt:   m.CreatedAt,
	}
}

// ChatHistoryPayload is pushed once to a customer right after connect.
type ChatHistoryPayload struct {
	RoomID   string           `json:"roomId"`
	Messages []MessagePayload `json:"messages"`
}

// UserTypingPayload is the user_typing broadcast.
type UserTypingPayload struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

// MessageReadPayload notifies a sender that some of their messages were read.
type MessageReadPayload struct {
	MessageIDs []string  `json:"messageIds"`
	RoomID     string    `json:"roomId"`
	ReadAt     time.Time `json:"readAt"`
}

// PresencePayload is the admin_online broadcast body.
type PresencePayload struct {
	IsOnline bool `json:"isOnline"`
}

// CustomerPresencePayload is sent to the admin channel when a customer
// connects or disconnects.
type CustomerPresencePayload struct {
	UserID        string `json:"userId"`
	RoomID        string `json:"roomId,omitempty"`
	CustomerEmail string `json:"customerEmail,omitempty"`
	IsOnline      bool   `json:"isOnline"`
}

// ChatClearedPayload is the body of chat_cleared and chat_cleared_by_other.
type ChatClearedPayload struct {
	RoomID    string    `json:"roomId"`
	ClearedBy string    `json:"clearedBy,omitempty"`
	ClearedAt time.Time `json:"clearedAt"`
}

// RoomJoinedPayload confirms an admin join_room.
type RoomJoinedPayload struct {
	RoomID string `json:"roomId"`
}

// ErrorPayload is the body of an error frame.
type ErrorPayload struct {
	Message string `json:"message"`
}

// AckPayload answers a frame that carried an ackId. MessageID is set on a
// successful send_message so the client can reconcile its optimistic copy.
type AckPayload struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}
