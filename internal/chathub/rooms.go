package chathub

import (
	"log"

	"supportchat/backend/internal/models"
	"supportchat/backend/internal/storage"
)

// Participants is the cached {customer, admin} pair of a room. AdminID is
// "" while the admin slot is unassigned.
type Participants struct {
	CustomerID string
	AdminID    string
}

// RoomResolver finds or creates the one persistent room of a customer and
// keeps a participant cache so typing and routing decisions do not need a
// store round-trip. Like the registry it is confined to the hub goroutine.
type RoomResolver struct {
	storage storage.Storage

	// fallbackAdminID, when non-empty, is assigned to new rooms while no
	// admin account is active. When empty, creation fails with
	// ErrNoAdminAvailable instead. Which policy runs is a deployment
	// decision (FALLBACK_ADMIN_ID).
	fallbackAdminID string

	cache map[string]Participants // roomID -> pair
}

// NewRoomResolver builds a resolver over the given store.
func NewRoomResolver(s storage.Storage, fallbackAdminID string) *RoomResolver {
	return &RoomResolver{
		storage:         s,
		fallbackAdminID: fallbackAdminID,
		cache:           make(map[string]Participants),
	}
}

// GetOrCreate returns the customer's room, creating it on first contact.
// Creation never mutates an existing room's admin assignment; two rapid
// calls for the same customer resolve to the same room.
func (r *RoomResolver) GetOrCreate(customerID string) (*models.ChatRoom, error) {
	room, err := r.storage.FindRoomByCustomer(customerID)
	if err != nil {
		return nil, err
	}
	if room != nil {
		r.CacheRoom(room)
		return room, nil
	}

	adminID, err := r.pickAdmin()
	if err != nil {
		return nil, err
	}

	room = &models.ChatRoom{
		CustomerID: customerID,
		AdminID:    &adminID,
		RoomName:   models.RoomNameFor(customerID),
		IsActive:   true,
	}
	if err := r.storage.CreateRoom(room); err != nil {
		// The deterministic room name carries a unique constraint, so a
		// creation race surfaces as a conflict here. The row the other
		// writer won with is the customer's room; use it.
		existing, lookupErr := r.storage.FindRoomByCustomer(customerID)
		if lookupErr == nil && existing != nil {
			r.CacheRoom(existing)
			return existing, nil
		}
		return nil, err
	}

	log.Printf("Created chat room %s for customer %s (admin %s)", room.ID, customerID, adminID)
	r.CacheRoom(room)
	return room, nil
}

func (r *RoomResolver) pickAdmin() (string, error) {
	admin, err := r.storage.FindActiveAdmin()
	if err != nil {
		return "", err
	}
	if admin != nil {
		return admin.ID, nil
	}
	if r.fallbackAdminID != "" {
		return r.fallbackAdminID, nil
	}
	return "", ErrNoAdminAvailable
}

// CacheRoom stores the room's participant pair.
func (r *RoomResolver) CacheRoom(room *models.ChatRoom) {
	r.cache[room.ID] = Participants{
		CustomerID: room.CustomerID,
		AdminID:    room.AdminIDString(),
	}
}

// Participants returns the cached pair for a room.
func (r *RoomResolver) Participants(roomID string) (Participants, bool) {
	p, ok := r.cache[roomID]
	return p, ok
}

// OtherParticipant subtracts userID from the cached pair. Returns "" when
// the room is not cached or has no other participant; callers treat that
// as a best-effort no-op.
func (r *RoomResolver) OtherParticipant(roomID, userID string) string {
	p, ok := r.cache[roomID]
	if !ok {
		return ""
	}
	if p.CustomerID == userID {
		return p.AdminID
	}
	return p.CustomerID
}

// Evict drops the cache entry for a room. Called when the owning customer
// disconnects.
func (r *RoomResolver) Evict(roomID string) {
	delete(r.cache, roomID)
}

// EvictIfCustomer drops the cache entry only when userID is the cached
// customer of that room.
func (r *RoomResolver) EvictIfCustomer(roomID, userID string) {
	if p, ok := r.cache[roomID]; ok && p.CustomerID == userID {
		delete(r.cache, roomID)
	}
}
