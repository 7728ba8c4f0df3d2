package chathub_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"supportchat/backend/internal/chathub"
	"supportchat/backend/internal/models"
	"supportchat/backend/internal/storage"
)

func frame(c chathub.Client, event string, ackID int64, payload any) chathub.InboundFrame {
	data, _ := json.Marshal(payload)
	return chathub.InboundFrame{
		Client: c,
		Event:  models.EventEnvelope{Event: event, AckID: ackID, Data: data},
	}
}

func testRoom() *models.ChatRoom {
	return &models.ChatRoom{
		ID:         "room1",
		CustomerID: "user_A",
		AdminID:    adminPtr("admin_1"),
		RoomName:   models.RoomNameFor("user_A"),
		IsActive:   true,
	}
}

func TestRouter_SendMessage_DualDelivery(t *testing.T) {
	storageMock := new(MockStorage)
	hub := createTestHub(storageMock, chathub.Options{Scheduler: newFakeScheduler()})

	room := testRoom()
	saved := &models.Message{
		ID: "msg1", RoomID: "room1", SenderID: "user_A", ReceiverID: "admin_1",
		Body: "hi", Type: models.MessageTypeText,
		Sender: &models.User{ID: "user_A", Email: "user_A@example.com"},
	}

	storageMock.On("FindRoomByCustomer", "user_A").Return(room, nil)
	storageMock.On("GetChatHistory", "room1", "user_A", mock.Anything, 0).Return([]models.Message{}, nil)
	storageMock.On("GetRoomByID", "room1").Return(room, nil)
	storageMock.On("SaveMessage", mock.AnythingOfType("*models.Message")).Return(nil)
	storageMock.On("GetMessageByID", mock.Anything).Return(saved, nil)
	storageMock.On("TouchRoomLastMessage", "room1", mock.Anything).Return(nil)

	customer := newMockClient("user_A", models.RoleCustomer)
	admin := newMockClient("admin_1", models.RoleAdmin)

	go hub.Run()
	hub.RegisterCh <- admin
	hub.RegisterCh <- customer
	settle()
	admin.collect()
	customer.collect()

	hub.IncomingCh <- frame(customer, models.EventSendMessage, 7, models.SendMessagePayload{
		Message: "hi", MessageType: models.MessageTypeText,
	})
	settle()

	// Sender: exactly one confirmation plus the room broadcast copy and
	// a successful ack.
	got := customer.collect()
	assert.Len(t, got[models.EventMessageSent], 1)
	assert.Len(t, got[models.EventReceiveMessage], 1)
	if assert.Len(t, got[models.EventAck], 1) {
		ack := got[models.EventAck][0].Data.(models.AckPayload)
		assert.True(t, ack.Success)
		assert.Equal(t, "msg1", ack.MessageID)
		assert.EqualValues(t, 7, got[models.EventAck][0].AckID)
	}

	// The admin has not joined the room channel, so the message arrives
	// over the direct path - exactly once.
	assert.Len(t, admin.collect()[models.EventReceiveMessage], 1)

	storageMock.AssertCalled(t, "SaveMessage", mock.AnythingOfType("*models.Message"))
	storageMock.AssertCalled(t, "TouchRoomLastMessage", "room1", mock.Anything)
}

// When the receiver's connection has joined the room channel, only the
// broadcast path delivers: still exactly one copy.
func TestRouter_SendMessage_NoDuplicateForRoomMember(t *testing.T) {
	storageMock := new(MockStorage)
	hub := createTestHub(storageMock, chathub.Options{Scheduler: newFakeScheduler()})

	room := testRoom()
	saved := &models.Message{
		ID: "msg2", RoomID: "room1", SenderID: "admin_1", ReceiverID: "user_A",
		Body: "hello", Type: models.MessageTypeText,
		Sender: &models.User{ID: "admin_1", Email: "admin_1@example.com"},
	}

	storageMock.On("FindRoomByCustomer", "user_A").Return(room, nil)
	storageMock.On("GetChatHistory", "room1", "user_A", mock.Anything, 0).Return([]models.Message{}, nil)
	storageMock.On("GetRoomByID", "room1").Return(room, nil)
	storageMock.On("SaveMessage", mock.AnythingOfType("*models.Message")).Return(nil)
	storageMock.On("GetMessageByID", mock.Anything).Return(saved, nil)
	storageMock.On("TouchRoomLastMessage", "room1", mock.Anything).Return(nil)

	customer := newMockClient("user_A", models.RoleCustomer)
	admin := newMockClient("admin_1", models.RoleAdmin)

	go hub.Run()
	hub.RegisterCh <- customer
	hub.RegisterCh <- admin
	settle()

	// Admin joins the customer's room explicitly.
	hub.IncomingCh <- frame(admin, models.EventJoinRoom, 0, "room1")
	settle()
	customer.collect()
	assert.Len(t, admin.collect()[models.EventRoomJoined], 1)

	hub.IncomingCh <- frame(admin, models.EventSendMessage, 1, models.SendMessagePayload{
		RoomID: "room1", Message: "hello", MessageType: models.MessageTypeText,
	})
	settle()

	assert.Len(t, customer.collect()[models.EventReceiveMessage], 1)
	got := admin.collect()
	assert.Len(t, got[models.EventMessageSent], 1)
	assert.Len(t, got[models.EventReceiveMessage], 1)
}

func TestRouter_SendMessage_ValidationMatrix(t *testing.T) {
	room := testRoom()

	cases := []struct {
		name    string
		payload models.SendMessagePayload
		wantErr string
	}{
		{
			name:    "message too long",
			payload: models.SendMessagePayload{Message: strings.Repeat("a", 2001), MessageType: "text"},
			wantErr: chathub.ErrMessageTooLong.Error(),
		},
		{
			name:    "empty after trimming",
			payload: models.SendMessagePayload{Message: "   ", MessageType: "text"},
			wantErr: chathub.ErrEmptyMessage.Error(),
		},
		{
			name:    "receiver outside the room",
			payload: models.SendMessagePayload{Message: "hi", MessageType: "text", ReceiverID: "stranger"},
			wantErr: chathub.ErrInvalidReceiver.Error(),
		},
		{
			name:    "receiver is the sender",
			payload: models.SendMessagePayload{Message: "hi", MessageType: "text", ReceiverID: "user_A"},
			wantErr: chathub.ErrSelfSend.Error(),
		},
		{
			name:    "multibyte message over the character limit",
			payload: models.SendMessagePayload{Message: strings.Repeat("п", 2001), MessageType: "text"},
			wantErr: chathub.ErrMessageTooLong.Error(),
		},
		{
			name:    "unknown message type",
			payload: models.SendMessagePayload{Message: "hi", MessageType: "sticker"},
			wantErr: chathub.ErrInvalidMessageType.Error(),
		},
		{
			name:    "file message without a file key",
			payload: models.SendMessagePayload{Message: "report.pdf", MessageType: "file"},
			wantErr: chathub.ErrEmptyMessage.Error(),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			storageMock := new(MockStorage)
			hub := createTestHub(storageMock, chathub.Options{Scheduler: newFakeScheduler()})
			storageMock.On("GetRoomByID", "room1").Return(room, nil).Maybe()

			customer := newMockClient("user_A", models.RoleCustomer)
			customer.SetRoomID("room1")
			hub.Presence.Register(customer)

			go hub.Run()
			hub.IncomingCh <- frame(customer, models.EventSendMessage, 3, tc.payload)
			settle()

			got := customer.collect()
			if assert.Len(t, got[models.EventError], 1) {
				assert.Equal(t, tc.wantErr, got[models.EventError][0].Data.(models.ErrorPayload).Message)
			}
			if assert.Len(t, got[models.EventAck], 1) {
				ack := got[models.EventAck][0].Data.(models.AckPayload)
				assert.False(t, ack.Success)
				assert.Equal(t, tc.wantErr, ack.Error)
			}

			// Nothing may be persisted on a validation failure.
			storageMock.AssertNotCalled(t, "SaveMessage", mock.Anything)
		})
	}
}

// A body over 2000 bytes but under 2000 characters is within the limit.
func TestRouter_SendMessage_MultibyteWithinLimit(t *testing.T) {
	storageMock := new(MockStorage)
	hub := createTestHub(storageMock, chathub.Options{Scheduler: newFakeScheduler()})

	body := strings.Repeat("п", 1500)
	room := testRoom()
	saved := &models.Message{
		ID: "msg1", RoomID: "room1", SenderID: "user_A", ReceiverID: "admin_1",
		Body: body, Type: models.MessageTypeText,
		Sender: &models.User{ID: "user_A", Email: "user_A@example.com"},
	}

	storageMock.On("GetRoomByID", "room1").Return(room, nil)
	storageMock.On("SaveMessage", mock.AnythingOfType("*models.Message")).Return(nil)
	storageMock.On("GetMessageByID", mock.Anything).Return(saved, nil)
	storageMock.On("TouchRoomLastMessage", "room1", mock.Anything).Return(nil)

	customer := newMockClient("user_A", models.RoleCustomer)
	customer.SetRoomID("room1")
	hub.Presence.Register(customer)

	go hub.Run()
	hub.IncomingCh <- frame(customer, models.EventSendMessage, 4, models.SendMessagePayload{
		Message: body, MessageType: models.MessageTypeText,
	})
	settle()

	got := customer.collect()
	assert.Empty(t, got[models.EventError])
	if assert.Len(t, got[models.EventAck], 1) {
		assert.True(t, got[models.EventAck][0].Data.(models.AckPayload).Success)
	}
	storageMock.AssertCalled(t, "SaveMessage", mock.AnythingOfType("*models.Message"))
}

func TestRouter_SendMessage_RoomNotFound(t *testing.T) {
	storageMock := new(MockStorage)
	hub := createTestHub(storageMock, chathub.Options{Scheduler: newFakeScheduler()})
	storageMock.On("GetRoomByID", "ghost").Return(nil, storage.ErrRoomNotFound)

	admin := newMockClient("admin_1", models.RoleAdmin)
	hub.Presence.Register(admin)

	go hub.Run()
	hub.IncomingCh <- frame(admin, models.EventSendMessage, 1, models.SendMessagePayload{
		RoomID: "ghost", Message: "hi", MessageType: "text",
	})
	settle()

	got := admin.collect()
	assert.Equal(t, chathub.ErrRoomNotFound.Error(), got[models.EventError][0].Data.(models.ErrorPayload).Message)
	storageMock.AssertNotCalled(t, "SaveMessage", mock.Anything)
}

func TestRouter_SendMessage_CustomerDeniedInForeignRoom(t *testing.T) {
	storageMock := new(MockStorage)
	hub := createTestHub(storageMock, chathub.Options{Scheduler: newFakeScheduler()})

	foreign := &models.ChatRoom{ID: "room9", CustomerID: "user_B", AdminID: adminPtr("admin_1")}
	storageMock.On("GetRoomByID", "room9").Return(foreign, nil)

	intruder := newMockClient("user_A", models.RoleCustomer)
	intruder.SetRoomID("room9")
	hub.Presence.Register(intruder)

	go hub.Run()
	hub.IncomingCh <- frame(intruder, models.EventSendMessage, 1, models.SendMessagePayload{
		Message: "hi", MessageType: "text",
	})
	settle()

	got := intruder.collect()
	assert.Equal(t, chathub.ErrAccessDenied.Error(), got[models.EventError][0].Data.(models.ErrorPayload).Message)
	storageMock.AssertNotCalled(t, "SaveMessage", mock.Anything)
}

func TestRouter_SendMessage_PersistenceFailure(t *testing.T) {
	storageMock := new(MockStorage)
	hub := createTestHub(storageMock, chathub.Options{Scheduler: newFakeScheduler()})

	storageMock.On("GetRoomByID", "room1").Return(testRoom(), nil)
	storageMock.On("SaveMessage", mock.AnythingOfType("*models.Message")).
		Return(assert.AnError)

	customer := newMockClient("user_A", models.RoleCustomer)
	customer.SetRoomID("room1")
	hub.Presence.Register(customer)

	go hub.Run()
	hub.IncomingCh <- frame(customer, models.EventSendMessage, 5, models.SendMessagePayload{
		Message: "hi", MessageType: "text",
	})
	settle()

	got := customer.collect()
	if assert.Len(t, got[models.EventAck], 1) {
		ack := got[models.EventAck][0].Data.(models.AckPayload)
		assert.False(t, ack.Success)
		assert.Equal(t, "send failed", ack.Error)
	}
	assert.Empty(t, got[models.EventMessageSent])
}

func TestRouter_MarkAsRead_NotifiesDistinctSenders(t *testing.T) {
	storageMock := new(MockStorage)
	hub := createTestHub(storageMock, chathub.Options{Scheduler: newFakeScheduler()})

	ids := []string{"msg1", "msg2"}
	storageMock.On("MarkMessagesRead", ids, "admin_1").Return(nil)
	// Both messages came from the same customer.
	storageMock.On("GetMessageSenders", ids).Return([]string{"user_A", "user_A"}, nil)

	customer := newMockClient("user_A", models.RoleCustomer)
	admin := newMockClient("admin_1", models.RoleAdmin)
	hub.Presence.Register(customer)

	go hub.Run()
	hub.IncomingCh <- frame(admin, models.EventMarkAsRead, 0, models.MarkAsReadPayload{
		MessageIDs: ids, RoomID: "room1",
	})
	settle()

	got := customer.collect()
	if assert.Len(t, got[models.EventMessageRead], 1, "one notification per distinct sender") {
		payload := got[models.EventMessageRead][0].Data.(models.MessageReadPayload)
		assert.Equal(t, ids, payload.MessageIDs)
		assert.Equal(t, "room1", payload.RoomID)
		assert.False(t, payload.ReadAt.IsZero())
	}
}

func TestRouter_MarkAsRead_RepeatIsSilent(t *testing.T) {
	storageMock := new(MockStorage)
	hub := createTestHub(storageMock, chathub.Options{Scheduler: newFakeScheduler()})

	ids := []string{"msg1"}
	// The store skips rows that are already read; no error either way.
	storageMock.On("MarkMessagesRead", ids, "admin_1").Return(nil)
	storageMock.On("GetMessageSenders", ids).Return([]string{"user_A"}, nil)

	admin := newMockClient("admin_1", models.RoleAdmin)
	hub.Presence.Register(admin)

	go hub.Run()
	hub.IncomingCh <- frame(admin, models.EventMarkAsRead, 0, models.MarkAsReadPayload{MessageIDs: ids, RoomID: "room1"})
	hub.IncomingCh <- frame(admin, models.EventMarkAsRead, 0, models.MarkAsReadPayload{MessageIDs: ids, RoomID: "room1"})
	settle()

	assert.Empty(t, admin.collect()[models.EventError])
}

func TestRouter_ClearChat(t *testing.T) {
	storageMock := new(MockStorage)
	hub := createTestHub(storageMock, chathub.Options{Scheduler: newFakeScheduler()})

	storageMock.On("UpsertDeletedChat", "user_A", "room1", mock.Anything).Return(nil)

	customer := newMockClient("user_A", models.RoleCustomer)
	customer.SetRoomID("room1")
	hub.Presence.Register(customer)
	admin := newMockClient("admin_1", models.RoleAdmin)
	hub.Presence.Register(admin)
	hub.Rooms.CacheRoom(testRoom())

	go hub.Run()
	hub.IncomingCh <- frame(customer, models.EventClearChat, 0, nil)
	settle()

	got := customer.collect()
	if assert.Len(t, got[models.EventChatCleared], 1) {
		payload := got[models.EventChatCleared][0].Data.(models.ChatClearedPayload)
		assert.Equal(t, "room1", payload.RoomID)
		assert.False(t, payload.ClearedAt.IsZero())
	}

	other := admin.collect()
	if assert.Len(t, other[models.EventChatClearedByOther], 1) {
		payload := other[models.EventChatClearedByOther][0].Data.(models.ChatClearedPayload)
		assert.Equal(t, "user_A", payload.ClearedBy)
	}
}

func TestRouter_ClearChat_WithoutRoom(t *testing.T) {
	storageMock := new(MockStorage)
	hub := createTestHub(storageMock, chathub.Options{Scheduler: newFakeScheduler()})

	customer := newMockClient("user_A", models.RoleCustomer)
	hub.Presence.Register(customer)

	go hub.Run()
	hub.IncomingCh <- frame(customer, models.EventClearChat, 0, nil)
	settle()

	got := customer.collect()
	assert.Equal(t, chathub.ErrNoActiveRoom.Error(), got[models.EventError][0].Data.(models.ErrorPayload).Message)
	storageMock.AssertNotCalled(t, "UpsertDeletedChat", mock.Anything, mock.Anything, mock.Anything)
}
