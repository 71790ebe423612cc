package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"whisperwall/internal/models"
	"whisperwall/internal/notifications"
	"whisperwall/internal/observability"
	"whisperwall/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const maxAuthorLabelLen = 64

type CommentService struct {
	store     *repository.Store
	guard     *LikeGuard
	publisher notifications.Publisher
	stats     *StatsService
	now       func() time.Time
}

type CreateCommentInput struct {
	MessageID   uint
	Content     string
	IsAutomated bool
	AuthorLabel *string
}

func NewCommentService(store *repository.Store, publisher notifications.Publisher, stats *StatsService) *CommentService {
	return &CommentService{
		store:     store,
		guard:     NewLikeGuard(store.Likes),
		publisher: publisher,
		stats:     stats,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *CommentService) publish(evt notifications.Event) {
	if s.publisher != nil {
		s.publisher.Publish(evt)
	}
}

// CreateComment attaches a comment to an existing message.
func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (comment *models.Comment, err error) {
	ctx, span := observability.StartSpan(ctx, "CommentService", "CreateComment",
		attribute.Int64("message.id", int64(in.MessageID)))
	defer func() { observability.EndSpan(span, err) }()

	content, err := validateContent(in.Content)
	if err != nil {
		return nil, err
	}
	var label *string
	if in.AuthorLabel != nil {
		trimmed := strings.TrimSpace(*in.AuthorLabel)
		if len(trimmed) > maxAuthorLabelLen {
			return nil, models.NewValidationError("Author label too long (max 64 characters)")
		}
		if trimmed != "" {
			label = &trimmed
		}
	}

	if _, err := s.store.Messages.GetByID(ctx, in.MessageID); err != nil {
		return nil, mapStoreError(err, "Message", in.MessageID)
	}

	comment = &models.Comment{
		MessageID:   in.MessageID,
		Content:     content,
		CreatedAt:   s.now(),
		IsAutomated: in.IsAutomated,
		AuthorLabel: label,
	}
	if err := s.store.Comments.Create(ctx, comment); err != nil {
		return nil, mapStoreError(err, "Comment", "")
	}

	s.stats.Invalidate(ctx)
	s.publish(notifications.NewCommentEvent(comment))
	return comment, nil
}

// ListComments returns a message's comments, oldest first.
func (s *CommentService) ListComments(ctx context.Context, messageID uint) ([]*models.Comment, error) {
	if _, err := s.store.Messages.GetByID(ctx, messageID); err != nil {
		return nil, mapStoreError(err, "Message", messageID)
	}
	comments, err := s.store.Comments.ListByMessage(ctx, messageID)
	if err != nil {
		return nil, mapStoreError(err, "Comment", "")
	}
	if comments == nil {
		comments = []*models.Comment{}
	}
	return comments, nil
}

// LikeComment adds one like from the session, at most once per session.
func (s *CommentService) LikeComment(ctx context.Context, in LikeInput) (comment *models.Comment, err error) {
	ctx, span := observability.StartSpan(ctx, "CommentService", "LikeComment",
		attribute.Int64("comment.id", int64(in.TargetID)))
	defer func() { observability.EndSpan(span, err) }()

	if err := validateSessionToken(in.SessionToken); err != nil {
		return nil, err
	}
	if _, err := s.store.Comments.GetByID(ctx, in.TargetID); err != nil {
		return nil, mapStoreError(err, "Comment", in.TargetID)
	}

	ok, err := s.guard.TryRegisterCommentLike(ctx, in.TargetID, in.Origin, in.SessionToken)
	if err != nil {
		return nil, mapStoreError(err, "Comment", in.TargetID)
	}
	if !ok {
		return nil, models.NewDuplicateActionError("You have already liked this comment")
	}

	comment, err = s.store.Comments.IncrementLikes(ctx, in.TargetID)
	if err != nil {
		return nil, mapStoreError(err, "Comment", in.TargetID)
	}
	s.publish(notifications.CommentLikedEvent(comment))
	return comment, nil
}

// DeleteComment removes a comment and its likes. The parent message is
// untouched. Deleting a missing comment is a no-op.
func (s *CommentService) DeleteComment(ctx context.Context, id uint) error {
	comment, err := s.store.Comments.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return mapStoreError(err, "Comment", id)
	}

	existed, err := s.store.Comments.Delete(ctx, id)
	if err != nil {
		return mapStoreError(err, "Comment", id)
	}
	if !existed {
		return nil
	}
	s.stats.Invalidate(ctx)
	s.publish(notifications.CommentDeletedEvent(comment))
	return nil
}
