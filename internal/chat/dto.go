package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/agroconnect/agroconnect-backend/pkg/db/models"
	"github.com/agroconnect/agroconnect-backend/pkg/enums"
)

// Event is the discriminated frame exchanged over the chat socket. Kind
// selects which payload field is populated.
type Event struct {
	Kind        enums.ChatEventKind `json:"kind"`
	Message     *MessageDTO         `json:"message,omitempty"`
	Typing      *TypingStatus       `json:"typing,omitempty"`
	Presence    *PresenceStatus     `json:"presence,omitempty"`
	OrderStatus *OrderStatusUpdate  `json:"order_status,omitempty"`
}

// MessageDTO is the wire form of a persisted chat message.
type MessageDTO struct {
	ID        uuid.UUID `json:"id"`
	RoomID    uuid.UUID `json:"room_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Text      string    `json:"text"`
	Images    []string  `json:"images,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// TypingStatus announces that a participant started or stopped typing.
// Transient: fanned out to the room, never persisted.
type TypingStatus struct {
	RoomID   uuid.UUID `json:"room_id"`
	UserID   uuid.UUID `json:"user_id"`
	IsTyping bool      `json:"is_typing"`
}

// PresenceStatus announces that a participant went online or offline.
type PresenceStatus struct {
	RoomID uuid.UUID `json:"room_id"`
	UserID uuid.UUID `json:"user_id"`
	Online bool      `json:"online"`
}

// OrderStatusUpdate pushes a room's coarse order badge to both participants.
type OrderStatusUpdate struct {
	RoomID uuid.UUID             `json:"room_id"`
	Status enums.RoomOrderStatus `json:"status"`
}

// SendMessageInput is the payload accepted from a connected client.
type SendMessageInput struct {
	Text   string   `json:"text"`
	Images []string `json:"images,omitempty"`
}

// CreateRoomInput describes a first-contact room request.
type CreateRoomInput struct {
	CustomerID uuid.UUID
	FarmerID   uuid.UUID
	ProductID  *uuid.UUID
	Quantity   int
	OrderID    *uuid.UUID
}

// RoomDTO is the API projection of a chat room.
type RoomDTO struct {
	ID                uuid.UUID             `json:"id"`
	CustomerID        uuid.UUID             `json:"customer_id"`
	FarmerID          uuid.UUID             `json:"farmer_id"`
	ProductID         *uuid.UUID            `json:"product_id,omitempty"`
	Quantity          int                   `json:"quantity"`
	HasUnreadCustomer bool                  `json:"has_unread_customer"`
	HasUnreadFarmer   bool                  `json:"has_unread_farmer"`
	OrderID           *uuid.UUID            `json:"order_id,omitempty"`
	OrderStatus       enums.RoomOrderStatus `json:"order_status"`
	IsNewOrder        bool                  `json:"is_new_order"`
	LastMessageText   *string               `json:"last_message_text,omitempty"`
	LastMessageAt     *time.Time            `json:"last_message_at,omitempty"`
	PeerOnline        bool                  `json:"peer_online"`
	CreatedAt         time.Time             `json:"created_at"`
}

// UnreadSummary backs the badge poll.
type UnreadSummary struct {
	Rooms int `json:"rooms"`
}

func roomFromModel(room *models.ChatRoom) *RoomDTO {
	if room == nil {
		return nil
	}
	return &RoomDTO{
		ID:                room.ID,
		CustomerID:        room.CustomerID,
		FarmerID:          room.FarmerID,
		ProductID:         room.ProductID,
		Quantity:          room.Quantity,
		HasUnreadCustomer: room.HasUnreadCustomer,
		HasUnreadFarmer:   room.HasUnreadFarmer,
		OrderID:           room.OrderID,
		OrderStatus:       room.OrderStatus,
		IsNewOrder:        room.IsNewOrder,
		LastMessageText:   room.LastMessageText,
		LastMessageAt:     room.LastMessageAt,
		CreatedAt:         room.CreatedAt,
	}
}

func messageFromModel(msg *models.ChatMessage) *MessageDTO {
	if msg == nil {
		return nil
	}
	return &MessageDTO{
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		SenderID:  msg.SenderID,
		Text:      msg.Text,
		Images:    []string(msg.Images),
		IsRead:    msg.IsRead,
		CreatedAt: msg.CreatedAt,
	}
}
