package repository

import (
	"context"

	"whisperwall/internal/models"

	"gorm.io/gorm"
)

type likeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a GORM-backed LikeRepository. The unique indexes
// on (target, session_token) reject concurrent duplicates with ErrDuplicate.
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

func (r *likeRepository) HasLikedMessage(ctx context.Context, messageID uint, sessionToken string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.MessageLike{}).
		Where("message_id = ? AND session_token = ?", messageID, sessionToken).
		Count(&n).Error
	if err != nil {
		return false, translateError(err)
	}
	return n > 0, nil
}

func (r *likeRepository) CreateMessageLike(ctx context.Context, like *models.MessageLike) error {
	return translateError(r.db.WithContext(ctx).Create(like).Error)
}

func (r *likeRepository) CountMessageLikes(ctx context.Context, messageID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.MessageLike{}).Where("message_id = ?", messageID).Count(&n).Error
	return n, translateError(err)
}

func (r *likeRepository) HasLikedComment(ctx context.Context, commentID uint, sessionToken string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.CommentLike{}).
		Where("comment_id = ? AND session_token = ?", commentID, sessionToken).
		Count(&n).Error
	if err != nil {
		return false, translateError(err)
	}
	return n > 0, nil
}

func (r *likeRepository) CreateCommentLike(ctx context.Context, like *models.CommentLike) error {
	return translateError(r.db.WithContext(ctx).Create(like).Error)
}

func (r *likeRepository) CountCommentLikes(ctx context.Context, commentID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.CommentLike{}).Where("comment_id = ?", commentID).Count(&n).Error
	return n, translateError(err)
}
