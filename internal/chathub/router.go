package chathub

import (
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"

	"supportchat/backend/internal/config"
	"supportchat/backend/internal/models"
	"supportchat/backend/internal/storage"
)

// dispatch routes one parsed inbound frame to its handler. Malformed
// payloads are answered with an error frame and never reach the core.
func (m *ManagerService) dispatch(f InboundFrame) {
	c := f.Client
	switch f.Event.Event {
	case models.EventSendMessage:
		var p models.SendMessagePayload
		if err := json.Unmarshal(f.Event.Data, &p); err != nil {
			m.sendError(c, ErrEmptyMessage.Error())
			m.ack(c, f.Event.AckID, models.AckPayload{Success: false, Error: ErrEmptyMessage.Error()})
			return
		}
		m.handleSendMessage(c, f.Event.AckID, p)

	case models.EventTyping:
		var p models.TypingPayload
		if err := json.Unmarshal(f.Event.Data, &p); err != nil {
			return
		}
		m.handleTyping(c, p)

	case models.EventMarkAsRead:
		var p models.MarkAsReadPayload
		if err := json.Unmarshal(f.Event.Data, &p); err != nil {
			m.sendError(c, "Invalid message IDs")
			return
		}
		m.handleMarkAsRead(c, p)

	case models.EventClearChat:
		m.handleClearChat(c)

	case models.EventJoinRoom:
		var roomID string
		if err := json.Unmarshal(f.Event.Data, &roomID); err != nil || roomID == "" {
			m.sendError(c, "Failed to join room")
			return
		}
		m.handleJoinRoom(c, roomID)

	default:
		log.Printf("Unknown event %q from user %s", f.Event.Event, c.UserID())
	}
}

func (m *ManagerService) handleSendMessage(c Client, ackID int64, p models.SendMessagePayload) {
	msg, err := m.routeMessage(c, p)
	if err != nil {
		if isValidationError(err) {
			m.sendError(c, err.Error())
			m.ack(c, ackID, models.AckPayload{Success: false, Error: err.Error()})
			return
		}
		// Store failure on the primary write: tell the client so it can
		// roll back its optimistic copy.
		log.Printf("ERROR: sending message for user %s failed: %v", c.UserID(), err)
		m.sendError(c, "Failed to send message. Please try again.")
		m.ack(c, ackID, models.AckPayload{Success: false, Error: "send failed"})
		return
	}
	m.ack(c, ackID, models.AckPayload{Success: true, MessageID: msg.ID})
}

func isValidationError(err error) bool {
	return errors.Is(err, ErrRoomNotFound) ||
		errors.Is(err, ErrAccessDenied) ||
		errors.Is(err, ErrEmptyMessage) ||
		errors.Is(err, ErrMessageTooLong) ||
		errors.Is(err, ErrInvalidMessageType) ||
		errors.Is(err, ErrInvalidReceiver) ||
		errors.Is(err, ErrSelfSend)
}

// routeMessage validates, persists and fans out one chat message. Nothing
// is persisted when validation fails. Delivery happens over two paths
// (room broadcast plus a direct send to the receiver's connection when
// that connection has not joined the room channel); clients deduplicate
// by message id.
func (m *ManagerService) routeMessage(c Client, p models.SendMessagePayload) (*models.Message, error) {
	isAdmin := c.Role() == models.RoleAdmin

	// Admins may address any room explicitly; customers always write
	// into their own joined room.
	roomID := c.RoomID()
	if isAdmin && p.RoomID != "" {
		roomID = p.RoomID
	}

	body := strings.TrimSpace(p.Message)
	if roomID == "" || body == "" {
		return nil, ErrEmptyMessage
	}

	room, err := m.Storage.GetRoomByID(roomID)
	if err != nil {
		if errors.Is(err, storage.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	if !isAdmin && room.CustomerID != c.UserID() {
		return nil, ErrAccessDenied
	}

	msgType := p.MessageType
	if msgType == "" {
		msgType = models.MessageTypeText
	}
	switch msgType {
	case models.MessageTypeText:
		// The limit counts characters, not bytes.
		if utf8.RuneCountInString(body) > config.MaxMessageLength {
			return nil, ErrMessageTooLong
		}
	case models.MessageTypeFile:
		if p.FileKey == "" {
			return nil, ErrEmptyMessage
		}
	default:
		return nil, ErrInvalidMessageType
	}

	// A supplied receiver must be one of the room's two participants;
	// otherwise default to the other participant.
	receiverID := p.ReceiverID
	if receiverID != "" && !room.HasParticipant(receiverID) {
		return nil, ErrInvalidReceiver
	}
	if receiverID == "" {
		if isAdmin {
			receiverID = room.CustomerID
		} else {
			receiverID = room.AdminIDString()
		}
	}
	if receiverID == "" {
		return nil, ErrInvalidReceiver
	}
	if receiverID == c.UserID() {
		return nil, ErrSelfSend
	}

	msg := &models.Message{
		RoomID:     room.ID,
		SenderID:   c.UserID(),
		ReceiverID: receiverID,
		Body:       body,
		Type:       msgType,
		FileKey:    p.FileKey,
		FileName:   p.FileName,
		FileSize:   p.FileSize,
		FileType:   p.FileType,
	}
	if err := m.Storage.SaveMessage(msg); err != nil {
		return nil, err
	}

	// Re-read with the sender joined: the insert does not carry the
	// display fields clients render.
	saved, err := m.Storage.GetMessageByID(msg.ID)
	if err != nil {
		log.Printf("WARNING: failed to reload message %s: %v", msg.ID, err)
		saved = msg
	}
	payload := models.NewMessagePayload(saved)
	if payload.SenderEmail == "" {
		payload.SenderEmail = c.Email()
	}

	m.deliver(c, models.OutboundEvent{Event: models.EventMessageSent, Data: payload})

	m.Presence.ForEachRoomMember(room.ID, func(member Client) {
		m.deliver(member, models.OutboundEvent{Event: models.EventReceiveMessage, Data: payload})
	})

	if rc := m.Presence.ClientForUser(receiverID); rc != nil {
		// Direct path for a stale or missing room join.
		if !m.Presence.IsRoomMember(rc.ConnID(), room.ID) {
			m.deliver(rc, models.OutboundEvent{Event: models.EventReceiveMessage, Data: payload})
		}
	} else if m.Notifier != nil {
		m.Notifier.NotifyOffline(receiverID, payload.SenderEmail, room.ID, body)
	}

	if err := m.Storage.TouchRoomLastMessage(room.ID, saved.CreatedAt); err != nil {
		log.Printf("WARNING: failed to update last-message time for room %s: %v", room.ID, err)
	}

	if m.Typing.Stop(TypingKey{RoomID: room.ID, UserID: c.UserID()}) {
		m.broadcastTyping(room.ID, c.UserID(), false)
	}

	return saved, nil
}

// handleTyping applies one typing signal and relays the current state to
// the other participant. Typing indicators are best-effort UX: when the
// participant cache has no entry for the room the broadcast is dropped.
func (m *ManagerService) handleTyping(c Client, p models.TypingPayload) {
	if p.RoomID == "" {
		return
	}
	key := TypingKey{RoomID: p.RoomID, UserID: c.UserID()}
	if p.IsTyping {
		m.Typing.Start(key)
	} else {
		m.Typing.Stop(key)
	}
	m.broadcastTyping(p.RoomID, c.UserID(), p.IsTyping)
}

func (m *ManagerService) broadcastTyping(roomID, userID string, isTyping bool) {
	other := m.Rooms.OtherParticipant(roomID, userID)
	if other == "" {
		return
	}
	m.deliverToUser(other, models.OutboundEvent{
		Event: models.EventUserTyping,
		Data:  models.UserTypingPayload{RoomID: roomID, UserID: userID, IsTyping: isTyping},
	})
}

// handleMarkAsRead flips the read flag on the reader's messages and
// notifies each distinct sender that is online. Ids that do not belong to
// the reader are silently skipped, which makes the operation idempotent.
func (m *ManagerService) handleMarkAsRead(c Client, p models.MarkAsReadPayload) {
	if len(p.MessageIDs) == 0 {
		m.sendError(c, "Invalid message IDs")
		return
	}

	if err := m.Storage.MarkMessagesRead(p.MessageIDs, c.UserID()); err != nil {
		log.Printf("ERROR: marking messages read for %s failed: %v", c.UserID(), err)
		return
	}

	senders, err := m.Storage.GetMessageSenders(p.MessageIDs)
	if err != nil {
		log.Printf("WARNING: loading senders for read receipt failed: %v", err)
		return
	}

	readAt := time.Now()
	for _, senderID := range lo.Uniq(senders) {
		m.deliverToUser(senderID, models.OutboundEvent{
			Event: models.EventMessageRead,
			Data: models.MessageReadPayload{
				MessageIDs: p.MessageIDs,
				RoomID:     p.RoomID,
				ReadAt:     readAt,
			},
		})
	}
}

// handleClearChat upserts the caller's deletion marker for their room and
// informs both sides. This is a per-user soft delete: no rows are removed,
// the visible history window just moves forward.
func (m *ManagerService) handleClearChat(c Client) {
	roomID := c.RoomID()
	if roomID == "" {
		m.sendError(c, ErrNoActiveRoom.Error())
		return
	}

	clearedAt := time.Now()
	if err := m.Storage.UpsertDeletedChat(c.UserID(), roomID, clearedAt); err != nil {
		log.Printf("ERROR: clearing chat for %s failed: %v", c.UserID(), err)
		m.sendError(c, "Failed to clear chat")
		return
	}

	m.deliver(c, models.OutboundEvent{
		Event: models.EventChatCleared,
		Data:  models.ChatClearedPayload{RoomID: roomID, ClearedAt: clearedAt},
	})

	other := m.Rooms.OtherParticipant(roomID, c.UserID())
	if other == "" {
		if room, err := m.Storage.GetRoomByID(roomID); err == nil {
			other = room.OtherParticipant(c.UserID())
		}
	}
	if other != "" {
		m.deliverToUser(other, models.OutboundEvent{
			Event: models.EventChatClearedByOther,
			Data: models.ChatClearedPayload{
				RoomID:    roomID,
				ClearedBy: c.UserID(),
				ClearedAt: clearedAt,
			},
		})
	}
}

// handleJoinRoom subscribes the connection to a room channel. Admins may
// join any room; a customer can only (re)join their own.
func (m *ManagerService) handleJoinRoom(c Client, roomID string) {
	room, err := m.Storage.GetRoomByID(roomID)
	if err != nil {
		log.Printf("ERROR: join_room %s for user %s failed: %v", roomID, c.UserID(), err)
		m.sendError(c, "Failed to join room")
		return
	}

	if c.Role() != models.RoleAdmin && room.CustomerID != c.UserID() {
		m.sendError(c, ErrAccessDenied.Error())
		return
	}

	m.Presence.JoinRoom(c.ConnID(), room.ID)
	c.SetRoomID(room.ID)
	m.Rooms.CacheRoom(room)

	m.deliver(c, models.OutboundEvent{
		Event: models.EventRoomJoined,
		Data:  models.RoomJoinedPayload{RoomID: room.ID},
	})
}
