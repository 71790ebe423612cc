package models

// MessageLike records that a session liked a message.
type MessageLike struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	MessageID    uint   `gorm:"not null;uniqueIndex:idx_message_like_session" json:"message_id"`
	SessionToken string `gorm:"size:128;not null;uniqueIndex:idx_message_like_session" json:"-"`
	Origin       string `gorm:"size:128" json:"-"`
}

// CommentLike records that a session liked a comment.
type CommentLike struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	CommentID    uint   `gorm:"not null;uniqueIndex:idx_comment_like_session" json:"comment_id"`
	SessionToken string `gorm:"size:128;not null;uniqueIndex:idx_comment_like_session" json:"-"`
	Origin       string `gorm:"size:128" json:"-"`
}
