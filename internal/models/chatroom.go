package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ChatRoom is the durable pairing of one customer with one admin.
// At most one active room exists per customer; the unique constraint on
// RoomName makes concurrent creation attempts collapse onto one row.
type ChatRoom struct {
	ID         string  `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID string  `gorm:"type:uuid;not null;uniqueIndex" json:"customerId"`
	AdminID    *string `gorm:"type:uuid" json:"adminId"`
	RoomName   string  `gorm:"uniqueIndex;not null" json:"roomName"`
	// Tags are free-form triage labels set by admins ("billing", "vip").
	Tags          pq.StringArray `gorm:"type:text[]" json:"tags"`
	IsActive      bool           `gorm:"default:true" json:"isActive"`
	LastMessageAt *time.Time     `json:"lastMessageAt"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"-"`

	Customer *User `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Admin    *User `gorm:"foreignKey:AdminID" json:"admin,omitempty"`
}

// RoomNameFor derives the stable room name for a customer. Re-creation
// attempts for the same customer always produce the same name, so the
// unique constraint turns a creation race into a conflict instead of a
// duplicate row.
func RoomNameFor(customerID string) string {
	return fmt.Sprintf("room_%s", customerID)
}

// AdminIDString returns the assigned admin id or "" when unassigned.
func (r *ChatRoom) AdminIDString() string {
	if r.AdminID == nil {
		return ""
	}
	return *r.AdminID
}

// OtherParticipant returns the participant that is not userID, or "" when
// the room has no such participant (admin slot still unassigned).
func (r *ChatRoom) OtherParticipant(userID string) string {
	if r.CustomerID == userID {
		return r.AdminIDString()
	}
	return r.CustomerID
}

// HasParticipant reports whether userID is one of the room's two members.
func (r *ChatRoom) HasParticipant(userID string) bool {
	return userID != "" && (r.CustomerID == userID || r.AdminIDString() == userID)
}

// BeforeCreate fills in the generated fields.
func (r *ChatRoom) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.RoomName == "" {
		r.RoomName = RoomNameFor(r.CustomerID)
	}
	return
}
