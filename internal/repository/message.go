package repository

import (
	"context"

	"whisperwall/internal/models"
	"whisperwall/internal/observability"
	"whisperwall/internal/ranking"

	"gorm.io/gorm"
)

// Order expressions per ranking mode. Each ends with the id tie-break so
// pages are stable. The hottest key only looks at comments newer than the
// message itself, which avoids GREATEST and works on postgres and sqlite.
const (
	commentCountExpr = "(SELECT COUNT(*) FROM comments WHERE comments.message_id = messages.id)"
	lastActivityExpr = "CASE WHEN messages.demoted THEN messages.created_at ELSE COALESCE(" +
		"(SELECT MAX(c.created_at) FROM comments c WHERE c.message_id = messages.id AND c.created_at > messages.created_at), " +
		"messages.created_at) END"
)

func orderClause(mode ranking.Mode) string {
	switch mode {
	case ranking.MostLiked:
		return "messages.likes DESC, messages.id ASC"
	case ranking.MostCommented:
		return commentCountExpr + " DESC, messages.id ASC"
	case ranking.Hottest:
		return lastActivityExpr + " DESC, messages.id ASC"
	default:
		return "messages.created_at DESC, messages.id ASC"
	}
}

type messageRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewMessageRepository creates a GORM-backed MessageRepository.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db, log: observability.NewRepoLogger("messages")}
}

func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	return translateError(r.db.WithContext(ctx).Create(message).Error)
}

func (r *messageRepository) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	var message models.Message
	if err := r.db.WithContext(ctx).First(&message, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &message, nil
}

func (r *messageRepository) List(ctx context.Context, mode ranking.Mode, limit, offset int) ([]*models.Message, error) {
	var messages []*models.Message
	err := r.db.WithContext(ctx).
		Order(orderClause(mode)).
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	if err != nil {
		r.log.LogError(ctx, err, "list")
		return nil, translateError(err)
	}
	return messages, nil
}

func (r *messageRepository) IncrementLikes(ctx context.Context, id uint) (*models.Message, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("id = ?", id).
		UpdateColumn("likes", gorm.Expr("likes + ?", 1))
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "increment_likes")
		return nil, translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *messageRepository) Demote(ctx context.Context, id uint) (*models.Message, error) {
	message, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if message.Demoted {
		return message, nil
	}
	err = r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("id = ?", id).
		UpdateColumn("demoted", true).Error
	if err != nil {
		r.log.LogError(ctx, err, "demote")
		return nil, translateError(err)
	}
	message.Demoted = true
	return message, nil
}

func (r *messageRepository) Delete(ctx context.Context, id uint) (bool, error) {
	var counts map[string]int64
	var existed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		commentIDs := tx.Model(&models.Comment{}).Select("id").Where("message_id = ?", id)

		res := tx.Where("comment_id IN (?)", commentIDs).Delete(&models.CommentLike{})
		if res.Error != nil {
			return res.Error
		}
		commentLikes := res.RowsAffected

		res = tx.Where("message_id = ?", id).Delete(&models.Comment{})
		if res.Error != nil {
			return res.Error
		}
		comments := res.RowsAffected

		res = tx.Where("message_id = ?", id).Delete(&models.MessageLike{})
		if res.Error != nil {
			return res.Error
		}
		likes := res.RowsAffected

		res = tx.Delete(&models.Message{}, id)
		if res.Error != nil {
			return res.Error
		}
		existed = res.RowsAffected > 0
		counts = map[string]int64{"comments": comments, "comment_likes": commentLikes, "likes": likes}
		return nil
	})
	if err != nil {
		r.log.LogError(ctx, err, "delete")
		return false, translateError(err)
	}
	if existed {
		r.log.LogDelete(ctx, id, counts)
	}
	return existed, nil
}

func (r *messageRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Message{}).Count(&n).Error; err != nil {
		return 0, translateError(err)
	}
	return n, nil
}
