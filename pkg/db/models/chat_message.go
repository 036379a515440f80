package models

import (
	"time"

	"github.com/google/uuid"
)

// ImageURLs is stored as a JSON array column.
type ImageURLs []string

// ChatMessage is immutable once created. Ordering inside a room is by
// CreatedAt ascending, matching the history endpoint.
type ChatMessage struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RoomID    uuid.UUID `gorm:"column:room_id;type:uuid;not null;index" json:"room_id"`
	SenderID  uuid.UUID `gorm:"column:sender_id;type:uuid;not null" json:"sender_id"`
	Text      string    `gorm:"column:text;not null;default:''" json:"text"`
	Images    ImageURLs `gorm:"column:images;type:jsonb;serializer:json" json:"images,omitempty"`
	IsRead    bool      `gorm:"column:is_read;not null;default:false" json:"is_read"`
	Sender    *User     `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
