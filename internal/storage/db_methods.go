package storage

import (
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"supportchat/backend/internal/models"
)

// GetUserByID loads a user by primary key. Returns (nil, nil) when the
// user does not exist.
func (s *Service) GetUserByID(id string) (*models.User, error) {
	var user models.User
	err := s.DB.First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindActiveAdmin returns any active admin account, or (nil, nil) when
// none is active.
func (s *Service) FindActiveAdmin() (*models.User, error) {
	var admin models.User
	err := s.DB.Where("user_type = ? AND is_active = ?", models.RoleAdmin, true).
		First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

// FindRoomByCustomer looks up the customer's room, or (nil, nil) when the
// customer has none yet.
func (s *Service) FindRoomByCustomer(customerID string) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := s.DB.Preload("Customer").Preload("Admin").
		Where("customer_id = ?", customerID).
		First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		log.Printf("ERROR: Failed to find room for customer %s: %v", customerID, err)
		return nil, err
	}
	return &room, nil
}

// CreateRoom inserts a new room. The unique constraint on room_name makes
// a concurrent duplicate creation fail instead of producing a second row;
// callers retry the lookup on conflict.
func (s *Service) CreateRoom(room *models.ChatRoom) error {
	return s.DB.Create(room).Error
}

// GetRoomByID loads a room by primary key.
func (s *Service) GetRoomByID(roomID string) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := s.DB.Where("id = ?", roomID).First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		log.Printf("ERROR: Failed to get room %s: %v", roomID, err)
		return nil, err
	}
	return &room, nil
}

// GetActiveRooms lists active rooms with the customer joined, most
// recently active first. Used by the admin dashboard.
func (s *Service) GetActiveRooms() ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	err := s.DB.Preload("Customer").
		Where("is_active = ?", true).
		Order("last_message_at DESC NULLS LAST").
		Find(&rooms).Error
	if err != nil {
		log.Printf("ERROR: Failed to list active rooms: %v", err)
		return nil, err
	}
	return rooms, nil
}

// TouchRoomLastMessage bumps the room's last-message timestamp. Callers
// treat failures as best-effort bookkeeping.
func (s *Service) TouchRoomLastMessage(roomID string, at time.Time) error {
	return s.DB.Model(&models.ChatRoom{}).
		Where("id = ?", roomID).
		Update("last_message_at", at).Error
}

// CloseRoom deletes the room together with all its messages and deletion
// markers in one transaction. Any failure rolls the whole deletion back,
// leaving the room intact.
func (s *Service) CloseRoom(roomID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var room models.ChatRoom
		if err := tx.Where("id = ?", roomID).First(&room).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoomNotFound
			}
			return err
		}

		if err := tx.Where("room_id = ?", roomID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&models.DeletedChat{}).Error; err != nil {
			return err
		}
		return tx.Delete(&room).Error
	})
}

// SaveMessage persists one chat turn. The generated id is written back
// into msg.
func (s *Service) SaveMessage(msg *models.Message) error {
	if err := s.DB.Create(msg).Error; err != nil {
		log.Printf("ERROR: Failed to save message for room %s: %v", msg.RoomID, err)
		return err
	}
	return nil
}

// GetMessageByID re-reads a message with sender and receiver joined. The
// router calls this after SaveMessage because the insert does not carry
// the joined display fields.
func (s *Service) GetMessageByID(id string) (*models.Message, error) {
	var msg models.Message
	err := s.DB.Preload("Sender").Preload("Receiver").
		Where("id = ?", id).
		First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetChatHistory returns the room's messages visible to userID in
// chronological order. When the user has a deletion marker for the room,
// only messages created strictly after the marker are returned.
func (s *Service) GetChatHistory(roomID, userID string, limit, offset int) ([]models.Message, error) {
	query := s.DB.Preload("Sender").
		Where("room_id = ?", roomID).
		Order("created_at asc").
		Limit(limit).Offset(offset)

	var marker models.DeletedChat
	err := s.DB.Where("user_id = ? AND room_id = ?", userID, roomID).First(&marker).Error
	if err == nil {
		query = query.Where("created_at > ?", marker.DeletedAt)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var history []models.Message
	if err := query.Find(&history).Error; err != nil {
		log.Printf("ERROR: Failed to get chat history for room %s: %v", roomID, err)
		return nil, err
	}
	return history, nil
}

// MarkMessagesRead flips the read flag on the given messages, scoped to
// the reader's inbox. Ids that do not match are silently skipped.
func (s *Service) MarkMessagesRead(messageIDs []string, readerID string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	err := s.DB.Model(&models.Message{}).
		Where("id IN ? AND receiver_id = ?", messageIDs, readerID).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": time.Now(),
		}).Error
	if err != nil {
		return err
	}
	s.InvalidateUnreadCount(readerID)
	return nil
}

// GetMessageSenders plucks the sender id of each given message. The result
// may contain duplicates; callers dedupe.
func (s *Service) GetMessageSenders(messageIDs []string) ([]string, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	var senders []string
	err := s.DB.Model(&models.Message{}).
		Where("id IN ?", messageIDs).
		Pluck("sender_id", &senders).Error
	if err != nil {
		return nil, err
	}
	return senders, nil
}

// CountUnread counts unread messages addressed to the user.
func (s *Service) CountUnread(userID string) (int64, error) {
	var count int64
	err := s.DB.Model(&models.Message{}).
		Where("receiver_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// UpsertDeletedChat records or refreshes the user's clear-history marker
// for a room. At most one row per (user, room) pair ever exists.
func (s *Service) UpsertDeletedChat(userID, roomID string, at time.Time) error {
	var marker models.DeletedChat
	err := s.DB.Where("user_id = ? AND room_id = ?", userID, roomID).First(&marker).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.DB.Create(&models.DeletedChat{
			UserID:    userID,
			RoomID:    roomID,
			DeletedAt: at,
		}).Error
	}
	if err != nil {
		return err
	}
	return s.DB.Model(&marker).Update("deleted_at", at).Error
}
