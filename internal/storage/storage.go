// Package storage is the durable read/write contract of the chat core:
// rooms, messages and deletion markers live in PostgreSQL via GORM, while
// Redis carries best-effort mirrors (online flags, unread-count cache)
// whose loss never affects correctness.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"supportchat/backend/internal/config"
	"supportchat/backend/internal/models"
)

// ErrRoomNotFound is returned when an operation references a room that no
// longer exists.
var ErrRoomNotFound = errors.New("chat room not found")

// Storage is the persistence contract consumed by the chat core and the
// HTTP handlers.
type Storage interface {
	GetUserByID(id string) (*models.User, error)
	FindActiveAdmin() (*models.User, error)

	FindRoomByCustomer(customerID string) (*models.ChatRoom, error)
	CreateRoom(room *models.ChatRoom) error
	GetRoomByID(roomID string) (*models.ChatRoom, error)
	GetActiveRooms() ([]models.ChatRoom, error)
	TouchRoomLastMessage(roomID string, at time.Time) error
	CloseRoom(roomID string) error

	SaveMessage(msg *models.Message) error
	GetMessageByID(id string) (*models.Message, error)
	GetChatHistory(roomID, userID string, limit, offset int) ([]models.Message, error)
	MarkMessagesRead(messageIDs []string, readerID string) error
	GetMessageSenders(messageIDs []string) ([]string, error)
	CountUnread(userID string) (int64, error)

	UpsertDeletedChat(userID, roomID string, at time.Time) error

	SetUserOnline(userID, role string) error
	SetUserOffline(userID string) error
	CachedUnreadCount(userID string) (int64, error)
}

// Service implements Storage on top of GORM and Redis.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

func onlineKey(userID string) string { return "online:" + userID }
func unreadKey(userID string) string { return "unread:" + userID }

// SetUserOnline mirrors a user's online flag into Redis so operator
// tooling can read presence without asking the chat process. The in-memory
// registry stays canonical; this mirror is best-effort.
func (s *Service) SetUserOnline(userID, role string) error {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Set(s.Ctx, onlineKey(userID), role, 0).Err()
}

// SetUserOffline drops the online mirror.
func (s *Service) SetUserOffline(userID string) error {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Del(s.Ctx, onlineKey(userID)).Err()
}

// CachedUnreadCount serves the unread counter through a short-TTL Redis
// cache, falling back to a direct count when the cache is cold or Redis
// is unavailable.
func (s *Service) CachedUnreadCount(userID string) (int64, error) {
	if s.Redis != nil {
		cached, err := s.Redis.Get(s.Ctx, unreadKey(userID)).Result()
		if err == nil {
			if n, perr := strconv.ParseInt(cached, 10, 64); perr == nil {
				return n, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			log.Printf("WARNING: unread cache read for %s failed: %v", userID, err)
		}
	}

	count, err := s.CountUnread(userID)
	if err != nil {
		return 0, err
	}

	if s.Redis != nil {
		if err := s.Redis.Set(s.Ctx, unreadKey(userID), fmt.Sprint(count), config.UnreadCacheTTL).Err(); err != nil {
			log.Printf("WARNING: unread cache write for %s failed: %v", userID, err)
		}
	}
	return count, nil
}

// InvalidateUnreadCount evicts the cached counter after messages change
// read state.
func (s *Service) InvalidateUnreadCount(userID string) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(s.Ctx, unreadKey(userID)).Err(); err != nil {
		log.Printf("WARNING: unread cache invalidation for %s failed: %v", userID, err)
	}
}
