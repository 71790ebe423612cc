package repository

import (
	"context"
	"errors"
	"time"

	"whisperwall/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type rateLimitRepository struct {
	db *gorm.DB
}

// NewRateLimitRepository creates a GORM-backed RateLimitRepository.
func NewRateLimitRepository(db *gorm.DB) RateLimitRepository {
	return &rateLimitRepository{db: db}
}

func (r *rateLimitRepository) Acquire(ctx context.Context, origin string, now time.Time, interval time.Duration) (bool, error) {
	allowed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec models.RateLimit
		err := tx.Where("origin = ?", origin).First(&rec).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
		case err != nil:
			return err
		case now.Sub(rec.LastMessageAt) < interval:
			return nil
		}

		allowed = true
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "origin"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_message_at"}),
		}).Create(&models.RateLimit{Origin: origin, LastMessageAt: now}).Error
	})
	if err != nil {
		return false, translateError(err)
	}
	return allowed, nil
}

func (r *rateLimitRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("last_message_at < ?", cutoff).Delete(&models.RateLimit{})
	if res.Error != nil {
		return 0, translateError(res.Error)
	}
	return res.RowsAffected, nil
}
