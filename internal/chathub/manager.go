// Package chathub is the real-time core of the support chat: it tracks
// which users are connected, binds each customer to their persistent
// room, routes messages between the room's participants and manages the
// ephemeral typing state.
//
// All in-memory state (presence registry, participant cache, typing
// timers) is owned by the single Run goroutine. Clients talk to the hub
// through channels only, so no state mutation ever interleaves with
// another. Store writes happen inline from the loop; the ones the caller
// does not need an answer for are treated as best-effort bookkeeping.
package chathub

import (
	"errors"
	"log"
	"time"

	"github.com/samber/lo"

	"supportchat/backend/internal/config"
	"supportchat/backend/internal/models"
	"supportchat/backend/internal/storage"
)

// InboundFrame is one parsed client frame handed to the hub loop.
type InboundFrame struct {
	Client Client
	Event  models.EventEnvelope
}

type typingExpiry struct {
	key TypingKey
	gen uint64
}

// OfflineNotifier alerts an operator channel about a message whose
// receiver has no live connection. Implementations must be best-effort.
type OfflineNotifier interface {
	NotifyOffline(receiverID, senderEmail, roomID, preview string)
}

// ManagerService is the hub: the single owner of all connection state.
type ManagerService struct {
	Presence *PresenceRegistry
	Rooms    *RoomResolver
	Typing   *TypingCoordinator
	Storage  storage.Storage
	Notifier OfflineNotifier

	RegisterCh   chan Client
	UnregisterCh chan Client
	IncomingCh   chan InboundFrame

	typingExpiryCh chan typingExpiry
}

// Options tune the hub. The zero value gives production defaults.
type Options struct {
	FallbackAdminID string
	Scheduler       Scheduler
	TypingTimeout   time.Duration
	Notifier        OfflineNotifier
}

// NewManagerService builds a hub over the given store.
func NewManagerService(s storage.Storage, opts Options) *ManagerService {
	if opts.Scheduler == nil {
		opts.Scheduler = NewScheduler()
	}
	if opts.TypingTimeout == 0 {
		opts.TypingTimeout = config.TypingTimeout
	}

	m := &ManagerService{
		Presence:       NewPresenceRegistry(),
		Rooms:          NewRoomResolver(s, opts.FallbackAdminID),
		Storage:        s,
		Notifier:       opts.Notifier,
		RegisterCh:     make(chan Client),
		UnregisterCh:   make(chan Client),
		IncomingCh:     make(chan InboundFrame),
		typingExpiryCh: make(chan typingExpiry, 64),
	}
	m.Typing = NewTypingCoordinator(opts.Scheduler, opts.TypingTimeout, func(key TypingKey, gen uint64) {
		// Runs on a timer goroutine; hand the expiry to the loop.
		m.typingExpiryCh <- typingExpiry{key: key, gen: gen}
	})
	return m
}

// Run is the hub's main loop. It must be the only goroutine touching the
// registry, the participant cache and the typing state.
func (m *ManagerService) Run() {
	for {
		select {
		case c := <-m.RegisterCh:
			m.handleConnect(c)
		case c := <-m.UnregisterCh:
			m.handleDisconnect(c)
		case f := <-m.IncomingCh:
			m.dispatch(f)
		case e := <-m.typingExpiryCh:
			m.handleTypingExpiry(e)
		}
	}
}

func (m *ManagerService) handleConnect(c Client) {
	log.Printf("User connected: %s (%s, %s)", c.UserID(), c.Email(), c.Role())
	m.Presence.Register(c)

	if err := m.Storage.SetUserOnline(c.UserID(), c.Role()); err != nil {
		log.Printf("WARNING: failed to mirror online state for %s: %v", c.UserID(), err)
	}

	if c.Role() == models.RoleAdmin {
		m.broadcastToCustomers(models.EventAdminOnline, models.PresencePayload{IsOnline: true})
		return
	}
	m.handleCustomerConnect(c)
}

func (m *ManagerService) handleCustomerConnect(c Client) {
	room, err := m.Rooms.GetOrCreate(c.UserID())
	if err != nil {
		log.Printf("ERROR: customer connection for %s failed: %v", c.UserID(), err)
		if errors.Is(err, ErrNoAdminAvailable) {
			m.sendError(c, ErrNoAdminAvailable.Error())
		} else {
			m.sendError(c, "Failed to initialize chat")
		}
		return
	}

	m.Presence.JoinRoom(c.ConnID(), room.ID)
	c.SetRoomID(room.ID)

	history, err := m.Storage.GetChatHistory(room.ID, c.UserID(), config.DefaultHistoryLimit, 0)
	if err != nil {
		m.sendError(c, "Failed to initialize chat")
		return
	}

	m.deliver(c, models.OutboundEvent{
		Event: models.EventChatHistory,
		Data: models.ChatHistoryPayload{
			RoomID: room.ID,
			Messages: lo.Map(history, func(msg models.Message, _ int) models.MessagePayload {
				return models.NewMessagePayload(&msg)
			}),
		},
	})

	m.broadcastToAdmins(models.EventCustomerConnected, models.CustomerPresencePayload{
		UserID:        c.UserID(),
		RoomID:        room.ID,
		CustomerEmail: c.Email(),
		IsOnline:      true,
	})
}

// handleDisconnect tears down every piece of per-user ephemeral state.
// Idempotent: a duplicate disconnect for the same connection is a no-op.
func (m *ManagerService) handleDisconnect(c Client) {
	if !m.Presence.Contains(c.ConnID()) {
		return
	}
	log.Printf("User disconnected: %s", c.UserID())
	m.Presence.Unregister(c.ConnID())

	if err := m.Storage.SetUserOffline(c.UserID()); err != nil {
		log.Printf("WARNING: failed to clear online state for %s: %v", c.UserID(), err)
	}

	if c.Role() == models.RoleAdmin {
		m.broadcastToCustomers(models.EventAdminOnline, models.PresencePayload{IsOnline: false})
	} else {
		m.broadcastToAdmins(models.EventCustomerOnline, models.CustomerPresencePayload{
			UserID:   c.UserID(),
			IsOnline: false,
		})
	}

	// Cancel every typing timer the user still holds, across all rooms.
	// Must run before the participant cache is evicted or the withdrawal
	// has nobody to address.
	for _, roomID := range m.Typing.ClearUser(c.UserID()) {
		m.broadcastTyping(roomID, c.UserID(), false)
	}

	if roomID := c.RoomID(); roomID != "" {
		m.Rooms.EvictIfCustomer(roomID, c.UserID())
	}
}

func (m *ManagerService) handleTypingExpiry(e typingExpiry) {
	if m.Typing.Expire(e.key, e.gen) {
		m.broadcastTyping(e.key.RoomID, e.key.UserID, false)
	}
}

// deliver queues a frame on the client's send channel. A client whose
// buffer is full is considered dead and torn down; frames addressed to a
// client that is no longer registered are dropped, so a handler can keep
// delivering to a reference it already holds after the teardown closed
// the channel.
func (m *ManagerService) deliver(c Client, evt models.OutboundEvent) {
	if !m.Presence.Contains(c.ConnID()) {
		return
	}
	select {
	case c.SendChannel() <- evt:
	default:
		log.Printf("Send buffer full for user %s, dropping connection", c.UserID())
		m.handleDisconnect(c)
		c.Close()
	}
}

func (m *ManagerService) deliverToUser(userID string, evt models.OutboundEvent) bool {
	c := m.Presence.ClientForUser(userID)
	if c == nil {
		return false
	}
	m.deliver(c, evt)
	return true
}

func (m *ManagerService) broadcastToCustomers(event string, data any) {
	m.Presence.ForEachCustomerConnection(func(c Client) {
		m.deliver(c, models.OutboundEvent{Event: event, Data: data})
	})
}

func (m *ManagerService) broadcastToAdmins(event string, data any) {
	m.Presence.ForEachAdminConnection(func(c Client) {
		m.deliver(c, models.OutboundEvent{Event: event, Data: data})
	})
}

func (m *ManagerService) sendError(c Client, message string) {
	m.deliver(c, models.OutboundEvent{
		Event: models.EventError,
		Data:  models.ErrorPayload{Message: message},
	})
}

func (m *ManagerService) ack(c Client, ackID int64, payload models.AckPayload) {
	if ackID == 0 {
		return
	}
	m.deliver(c, models.OutboundEvent{Event: models.EventAck, AckID: ackID, Data: payload})
}
