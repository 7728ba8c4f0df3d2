package chathub

import "supportchat/backend/internal/models"

// PresenceRegistry is the in-memory bidirectional index between live
// connections and user identities, plus the room-channel membership used
// for broadcast fan-out. It is owned by the hub goroutine: every method
// is called from the Run loop only, so no locking is needed.
type PresenceRegistry struct {
	clients map[string]Client // connID -> client
	byUser  map[string]string // userID -> connID (delivery target)
	admins  map[string]struct{}
	// member and memberOf track room-channel joins both ways.
	members  map[string]map[string]struct{} // roomID -> set of connIDs
	memberOf map[string]string              // connID -> roomID
}

// NewPresenceRegistry returns an empty registry.
func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		clients:  make(map[string]Client),
		byUser:   make(map[string]string),
		admins:   make(map[string]struct{}),
		members:  make(map[string]map[string]struct{}),
		memberOf: make(map[string]string),
	}
}

// Register records the connection in both directions. Registering a user
// who already has a live connection silently makes the new connection the
// delivery target (last connection wins); the old connection stays
// registered by conn id until its own unregister arrives.
func (p *PresenceRegistry) Register(c Client) {
	p.clients[c.ConnID()] = c
	p.byUser[c.UserID()] = c.ConnID()
	if c.Role() == models.RoleAdmin {
		p.admins[c.ConnID()] = struct{}{}
	}
}

// Unregister removes the connection from both directions and from any
// room channel. Safe to call twice; the second call is a no-op.
func (p *PresenceRegistry) Unregister(connID string) {
	c, ok := p.clients[connID]
	if !ok {
		return
	}
	delete(p.clients, connID)
	delete(p.admins, connID)
	// Only drop the user mapping if it still points at this connection;
	// a newer connection for the same user must keep receiving.
	if p.byUser[c.UserID()] == connID {
		delete(p.byUser, c.UserID())
	}
	p.LeaveRoom(connID)
}

// ClientForUser resolves the live delivery target for a user, or nil.
func (p *PresenceRegistry) ClientForUser(userID string) Client {
	connID, ok := p.byUser[userID]
	if !ok {
		return nil
	}
	return p.clients[connID]
}

// Contains reports whether the connection is still registered.
func (p *PresenceRegistry) Contains(connID string) bool {
	_, ok := p.clients[connID]
	return ok
}

// IsAdminConnection reports whether the connection belongs to the admin pool.
func (p *PresenceRegistry) IsAdminConnection(connID string) bool {
	_, ok := p.admins[connID]
	return ok
}

// JoinRoom subscribes the connection to a room channel, leaving any
// previously joined channel first.
func (p *PresenceRegistry) JoinRoom(connID, roomID string) {
	p.LeaveRoom(connID)
	if p.members[roomID] == nil {
		p.members[roomID] = make(map[string]struct{})
	}
	p.members[roomID][connID] = struct{}{}
	p.memberOf[connID] = roomID
}

// LeaveRoom unsubscribes the connection from its current room channel.
func (p *PresenceRegistry) LeaveRoom(connID string) {
	roomID, ok := p.memberOf[connID]
	if !ok {
		return
	}
	delete(p.memberOf, connID)
	if set := p.members[roomID]; set != nil {
		delete(set, connID)
		if len(set) == 0 {
			delete(p.members, roomID)
		}
	}
}

// IsRoomMember reports whether the connection has joined the room channel.
func (p *PresenceRegistry) IsRoomMember(connID, roomID string) bool {
	return p.memberOf[connID] == roomID
}

// ForEachRoomMember calls fn for every connection joined to the room.
func (p *PresenceRegistry) ForEachRoomMember(roomID string, fn func(Client)) {
	for connID := range p.members[roomID] {
		if c, ok := p.clients[connID]; ok {
			fn(c)
		}
	}
}

// ForEachCustomerConnection calls fn for every non-admin connection.
func (p *PresenceRegistry) ForEachCustomerConnection(fn func(Client)) {
	for connID, c := range p.clients {
		if _, isAdmin := p.admins[connID]; !isAdmin {
			fn(c)
		}
	}
}

// ForEachAdminConnection calls fn for every connection in the admin pool.
func (p *PresenceRegistry) ForEachAdminConnection(fn func(Client)) {
	for connID := range p.admins {
		if c, ok := p.clients[connID]; ok {
			fn(c)
		}
	}
}
