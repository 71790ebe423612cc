package models

import "time"

// Comment is a reply attached to a message.
type Comment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	MessageID   uint      `gorm:"not null;index" json:"message_id"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	CreatedAt   time.Time `gorm:"not null;index" json:"created_at"`
	Likes       int       `gorm:"not null;default:0" json:"likes"`
	IsAutomated bool      `gorm:"not null;default:false" json:"is_automated"`
	AuthorLabel *string   `gorm:"size:64" json:"author_label,omitempty"`
}
