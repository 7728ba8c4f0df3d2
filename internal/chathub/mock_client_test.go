package chathub_test

import (
	"time"

	"supportchat/backend/internal/models"
)

// MockClient is an in-memory Client whose outbound frames land on
// RecvChannel for assertions.
type MockClient struct {
	connID string
	userID string
	email  string
	role   string
	roomID string

	RecvChannel chan models.OutboundEvent
}

func newMockClient(userID, role string) *MockClient {
	return &MockClient{
		connID:      "conn_" + userID,
		userID:      userID,
		email:       userID + "@example.com",
		role:        role,
		RecvChannel: make(chan models.OutboundEvent, 32),
	}
}

func (c *MockClient) ConnID() string { return c.connID }
func (c *MockClient) UserID() string { return c.userID }
func (c *MockClient) Email() string  { return c.email }
func (c *MockClient) Role() string   { return c.role }

func (c *MockClient) RoomID() string      { return c.roomID }
func (c *MockClient) SetRoomID(id string) { c.roomID = id }

func (c *MockClient) SendChannel() chan<- models.OutboundEvent { return c.RecvChannel }

func (c *MockClient) Run() {}

func (c *MockClient) Close() {}

// collect drains the frames received so far, grouped by event name.
func (c *MockClient) collect() map[string][]models.OutboundEvent {
	got := make(map[string][]models.OutboundEvent)
	for {
		select {
		case evt := <-c.RecvChannel:
			got[evt.Event] = append(got[evt.Event], evt)
		default:
			return got
		}
	}
}

// settle gives the hub goroutine time to process queued events.
func settle() {
	time.Sleep(100 * time.Millisecond)
}
