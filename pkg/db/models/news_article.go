package models

import (
	"time"

	"github.com/google/uuid"
)

// NewsArticle backs the public agricultural news feed.
type NewsArticle struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title       string    `gorm:"column:title;not null" json:"title"`
	Body        string    `gorm:"column:body;not null" json:"body"`
	ImageURL    *string   `gorm:"column:image_url" json:"image_url,omitempty"`
	PublishedAt time.Time `gorm:"column:published_at;not null;index" json:"published_at"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
