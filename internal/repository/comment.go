package repository

import (
	"context"

	"whisperwall/internal/models"
	"whisperwall/internal/observability"

	"gorm.io/gorm"
)

type commentRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewCommentRepository creates a GORM-backed CommentRepository.
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db, log: observability.NewRepoLogger("comments")}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return translateError(r.db.WithContext(ctx).Create(comment).Error)
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &comment, nil
}

func (r *commentRepository) ListByMessage(ctx context.Context, messageID uint) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, translateError(err)
	}
	return comments, nil
}

func (r *commentRepository) ListByMessageIDs(ctx context.Context, messageIDs []uint) (map[uint][]*models.Comment, error) {
	out := make(map[uint][]*models.Comment, len(messageIDs))
	if len(messageIDs) == 0 {
		return out, nil
	}
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Where("message_id IN ?", messageIDs).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	if err != nil {
		r.log.LogError(ctx, err, "list_by_message_ids")
		return nil, translateError(err)
	}
	for _, c := range comments {
		out[c.MessageID] = append(out[c.MessageID], c)
	}
	return out, nil
}

func (r *commentRepository) IncrementLikes(ctx context.Context, id uint) (*models.Comment, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Comment{}).
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

func (r *commentRepository) Delete(ctx context.Context, id uint) (bool, error) {
	var existed bool
	var likes int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("comment_id = ?", id).Delete(&models.CommentLike{})
		if res.Error != nil {
			return res.Error
		}
		likes = res.RowsAffected

		res = tx.Delete(&models.Comment{}, id)
		if res.Error != nil {
			return res.Error
		}
		existed = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		r.log.LogError(ctx, err, "delete")
		return false, translateError(err)
	}
	if existed {
		r.log.LogDelete(ctx, id, map[string]int64{"comment_likes": likes})
	}
	return existed, nil
}

func (r *commentRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Comment{}).Count(&n).Error; err != nil {
		return 0, translateError(err)
	}
	return n, nil
}
