package chat

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agroconnect/agroconnect-backend/internal/repo"
	"github.com/agroconnect/agroconnect-backend/pkg/db/models"
	"github.com/agroconnect/agroconnect-backend/pkg/enums"
)

// Repository persists chat rooms and their messages.
type Repository struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return NewRepository(tx)
}

// FindRoomForPair returns the existing room between the participants for
// the given product, or gorm.ErrRecordNotFound.
func (r *Repository) FindRoomForPair(ctx context.Context, customerID, farmerID uuid.UUID, productID *uuid.UUID) (*models.ChatRoom, error) {
	query := r.DB(ctx).Where("customer_id = ? AND farmer_id = ?", customerID, farmerID)
	if productID != nil {
		query = query.Where("product_id = ?", *productID)
	} else {
		query = query.Where("product_id IS NULL")
	}
	var room models.ChatRoom
	if err := query.First(&room).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

// CreateRoom inserts a fresh room. Callers check FindRoomForPair first so
// first contact reuses the existing conversation.
func (r *Repository) CreateRoom(ctx context.Context, room *models.ChatRoom) (*models.ChatRoom, error) {
	if err := r.DB(ctx).Create(room).Error; err != nil {
		return nil, err
	}
	return room, nil
}

// FindRoom loads the room by id.
func (r *Repository) FindRoom(ctx context.Context, id uuid.UUID) (*models.ChatRoom, error) {
	var room models.ChatRoom
	if err := r.DB(ctx).First(&room, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

// ListRoomsForUser returns every conversation the user participates in,
// most recently active first.
func (r *Repository) ListRoomsForUser(ctx context.Context, userID uuid.UUID) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	err := r.DB(ctx).
		Preload("Customer").
		Preload("Farmer").
		Preload("Product").
		Where("customer_id = ? OR farmer_id = ?", userID, userID).
		Order("last_message_at DESC NULLS LAST, created_at DESC").
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

// CreateMessage appends a message and updates the room's last-message
// summary plus the recipient's unread flag in one transaction.
func (r *Repository) CreateMessage(ctx context.Context, room *models.ChatRoom, msg *models.ChatMessage) (*models.ChatMessage, error) {
	err := r.DB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		updates := map[string]any{
			"last_message_text": msg.Text,
			"last_message_at":   msg.CreatedAt,
		}
		if msg.SenderID == room.CustomerID {
			updates["has_unread_farmer"] = true
		} else {
			updates["has_unread_customer"] = true
		}
		return tx.Model(&models.ChatRoom{}).Where("id = ?", room.ID).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// ListMessages returns the room history oldest first.
func (r *Repository) ListMessages(ctx context.Context, roomID uuid.UUID) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	err := r.DB(ctx).
		Where("room_id = ?", roomID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// MarkRead flags every message the peer sent as read and clears the
// reader's unread flag. Safe to call repeatedly.
func (r *Repository) MarkRead(ctx context.Context, room *models.ChatRoom, readerID uuid.UUID) error {
	if !room.IsParticipant(readerID) {
		return errors.New("reader is not a room participant")
	}
	return r.DB(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.ChatMessage{}).
			Where("room_id = ? AND sender_id <> ? AND is_read = false", room.ID, readerID).
			Update("is_read", true).Error
		if err != nil {
			return err
		}
		column := "has_unread_farmer"
		if readerID == room.CustomerID {
			column = "has_unread_customer"
		}
		return tx.Model(&models.ChatRoom{}).
			Where("id = ?", room.ID).
			Update(column, false).Error
	})
}

// CountUnreadRooms returns how many of the user's rooms carry an unread flag.
func (r *Repository) CountUnreadRooms(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.ChatRoom{}).
		Where("(customer_id = ? AND has_unread_customer = true) OR (farmer_id = ? AND has_unread_farmer = true)", userID, userID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// SetOrderStatus moves the room's coarse order badge and clears the
// new-order marker once the conversation is active.
func (r *Repository) SetOrderStatus(ctx context.Context, roomID uuid.UUID, status enums.RoomOrderStatus) error {
	updates := map[string]any{"order_status": status}
	if status != enums.RoomOrderNew {
		updates["is_new_order"] = false
	}
	return r.DB(ctx).Model(&models.ChatRoom{}).
		Where("id = ?", roomID).
		Updates(updates).Error
}
