package database

import "whisperwall/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []any {
	return []any{
		&models.Message{},
		&models.Comment{},
		&models.MessageLike{},
		&models.CommentLike{},
		&models.RateLimit{},
	}
}
