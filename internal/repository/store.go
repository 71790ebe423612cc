// Package repository provides the board's entity store: one set of
// repository interfaces with a GORM implementation and an in-memory one.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"whisperwall/internal/models"
	"whisperwall/internal/ranking"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when the target record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a uniqueness rule.
	ErrDuplicate = errors.New("duplicate record")
	// ErrUnavailable wraps backend failures the caller may retry.
	ErrUnavailable = errors.New("store unavailable")
)

// MessageRepository defines operations on messages.
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	GetByID(ctx context.Context, id uint) (*models.Message, error)
	List(ctx context.Context, mode ranking.Mode, limit, offset int) ([]*models.Message, error)
	IncrementLikes(ctx context.Context, id uint) (*models.Message, error)
	Demote(ctx context.Context, id uint) (*models.Message, error)
	// Delete removes the message with its comments, comment likes and likes.
	// It reports whether the message existed.
	Delete(ctx context.Context, id uint) (bool, error)
	Count(ctx context.Context) (int64, error)
}

// CommentRepository defines operations on comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByMessage(ctx context.Context, messageID uint) ([]*models.Comment, error)
	ListByMessageIDs(ctx context.Context, messageIDs []uint) (map[uint][]*models.Comment, error)
	IncrementLikes(ctx context.Context, id uint) (*models.Comment, error)
	// Delete removes the comment and its likes. It reports whether the
	// comment existed.
	Delete(ctx context.Context, id uint) (bool, error)
	Count(ctx context.Context) (int64, error)
}

// LikeRepository stores one-per-session like records in two namespaces.
type LikeRepository interface {
	HasLikedMessage(ctx context.Context, messageID uint, sessionToken string) (bool, error)
	CreateMessageLike(ctx context.Context, like *models.MessageLike) error
	CountMessageLikes(ctx context.Context, messageID uint) (int64, error)
	HasLikedComment(ctx context.Context, commentID uint, sessionToken string) (bool, error)
	CreateCommentLike(ctx context.Context, like *models.CommentLike) error
	CountCommentLikes(ctx context.Context, commentID uint) (int64, error)
}

// RateLimitRepository stores the last message time per origin.
type RateLimitRepository interface {
	// Acquire records now as origin's last message time unless the previous
	// one is less than interval old, in which case it returns false.
	Acquire(ctx context.Context, origin string, now time.Time, interval time.Duration) (bool, error)
	// PruneBefore deletes records last touched before cutoff.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Store bundles the repositories of one backend.
type Store struct {
	Messages   MessageRepository
	Comments   CommentRepository
	Likes      LikeRepository
	RateLimits RateLimitRepository

	backend string
	ping    func(ctx context.Context) error
	close   func() error
}

// NewGormStore returns a Store backed by a relational database.
func NewGormStore(db *gorm.DB) *Store {
	return &Store{
		Messages:   NewMessageRepository(db),
		Comments:   NewCommentRepository(db),
		Likes:      NewLikeRepository(db),
		RateLimits: NewRateLimitRepository(db),
		backend:    "gorm:" + db.Dialector.Name(),
		ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		close: func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}
}

// Backend names the storage engine, for logs and health output.
func (s *Store) Backend() string {
	return s.backend
}

// Ping checks that the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close releases the backend's resources.
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// translateError maps driver and gorm errors onto the package sentinels.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrDuplicate), errors.Is(err, ErrUnavailable):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case isUniqueConstraintError(err):
		return ErrDuplicate
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}
