package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeletedChat records the instant a user cleared their view of a room.
// One row per (user, room); re-clearing updates DeletedAt in place.
// History reads for that user are then filtered to messages created
// strictly after the marker.
type DeletedChat struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_user_room" json:"userId"`
	RoomID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_user_room" json:"roomId"`
	DeletedAt time.Time `gorm:"not null" json:"deletedAt"`
}

// BeforeCreate fills in the generated fields.
func (d *DeletedChat) BeforeCreate(tx *gorm.DB) (err error) {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.DeletedAt.IsZero() {
		d.DeletedAt = time.Now()
	}
	return
}
