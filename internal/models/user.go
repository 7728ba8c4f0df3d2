package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User roles. The chat core trusts the role carried by the authenticated
// principal; it never re-validates credentials.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User represents an account known to the support platform. The chat core
// reads users only to join sender display fields onto messages and to pick
// an active admin during room creation.
type User struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	UserType  string    `gorm:"type:text;not null;default:customer" json:"userType"`
	IsActive  bool      `gorm:"default:true" json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`
}

// IsAdmin reports whether the account is a support agent.
func (u *User) IsAdmin() bool {
	return u.UserType == RoleAdmin
}

// BeforeCreate generates the primary key when the caller did not supply one.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}
