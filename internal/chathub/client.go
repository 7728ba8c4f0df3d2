package chathub

import "supportchat/backend/internal/models"

// Client is the interface for one live transport session of an
// authenticated user. It abstracts the underlying connection so the hub
// can manage WebSocket clients and test doubles uniformly.
type Client interface {
	// ConnID returns the unique identifier of this connection.
	ConnID() string
	// UserID returns the authenticated user behind the connection.
	UserID() string
	// Email returns the principal's email, used for display fields.
	Email() string
	// Role returns models.RoleCustomer or models.RoleAdmin.
	Role() string

	// RoomID returns the room this connection has joined, or "".
	RoomID() string
	// SetRoomID records the joined room on the connection.
	SetRoomID(string)

	// SendChannel returns the channel the hub writes outbound frames to.
	SendChannel() chan<- models.OutboundEvent

	// Run starts the client's read and write pumps.
	Run()
	// Close shuts down the client's connection and send channel.
	Close()
}
