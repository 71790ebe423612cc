package models

import "time"

// RateLimit stores the last time an origin posted a message.
type RateLimit struct {
	ID            uint      `gorm:"primaryKey"`
	Origin        string    `gorm:"size:128;not null;uniqueIndex"`
	LastMessageAt time.Time `gorm:"not null;index"`
}
