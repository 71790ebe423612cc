// Package models contains the board's persistent records and API error types.
package models

import "time"

// MaxContentLength is the longest message or comment body accepted, in characters.
const MaxContentLength = 500

// Message is a top-level anonymous post.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	Likes     int       `gorm:"not null;default:0" json:"likes"`
	Demoted   bool      `gorm:"not null;default:false" json:"demoted"`
	// Origin is the poster's network origin; used for rate limiting only.
	Origin string `gorm:"size:128;index" json:"-"`
}

// MessageView is a message annotated with its comments, as served to clients.
type MessageView struct {
	*Message
	Comments     []*Comment `json:"comments"`
	CommentCount int        `json:"comment_count"`
}

// NewMessageView wraps m with the given comments. A nil slice is replaced
// with an empty one so clients always receive a list.
func NewMessageView(m *Message, comments []*Comment) *MessageView {
	if comments == nil {
		comments = []*Comment{}
	}
	return &MessageView{Message: m, Comments: comments, CommentCount: len(comments)}
}

// Stats holds aggregate counts over the whole board.
type Stats struct {
	TotalMessages int64 `json:"total_messages"`
	TotalComments int64 `json:"total_comments"`
	Total         int64 `json:"total"`
}
