package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message kinds carried on the wire.
const (
	MessageTypeText = "text"
	MessageTypeFile = "file"
)

// Message is one persisted chat turn. Sender and receiver are always the
// room's two participants. Rows are mutated only to flip the read flag and
// deleted only as part of room closure.
type Message struct {
	ID         string `gorm:"type:uuid;primaryKey" json:"id"`
	RoomID     string `gorm:"type:uuid;not null;index:idx_room_created" json:"roomId"`
	SenderID   string `gorm:"type:uuid;not null;index" json:"senderId"`
	ReceiverID string `gorm:"type:uuid;not null;index" json:"receiverId"`
	Body       string `gorm:"column:message;type:text;not null" json:"message"`
	Type       string `gorm:"column:message_type;type:text;not null;default:text" json:"messageType"`

	// File attachments are opaque metadata; resolving FileKey to a URL is
	// the object-store collaborator's job.
	FileKey  string `gorm:"type:text" json:"fileKey,omitempty"`
	FileName string `gorm:"type:text" json:"fileName,omitempty"`
	FileSize int64  `json:"fileSize,omitempty"`
	FileType string `gorm:"type:text" json:"fileType,omitempty"`

	IsRead    bool       `gorm:"default:false" json:"isRead"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `gorm:"index:idx_room_created" json:"createdAt"`

	Sender   *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Receiver *User `gorm:"foreignKey:ReceiverID" json:"receiver,omitempty"`
}

// BeforeCreate generates the message id.
func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return
}

// SenderEmail returns the joined sender email when loaded.
func (m *Message) SenderEmail() string {
	if m.Sender == nil {
		return ""
	}
	return m.Sender.Email
}
