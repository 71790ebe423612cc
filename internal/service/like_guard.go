package service

import (
	"context"
	"errors"

	"whisperwall/internal/models"
	"whisperwall/internal/observability"
	"whisperwall/internal/repository"
)

// LikeGuard allows at most one like per (target, session) pair. Messages and
// comments are separate namespaces.
type LikeGuard struct {
	likes repository.LikeRepository
}

func NewLikeGuard(likes repository.LikeRepository) *LikeGuard {
	return &LikeGuard{likes: likes}
}

// TryRegisterMessageLike records the like and returns true, or returns false
// if the session already liked the message.
func (g *LikeGuard) TryRegisterMessageLike(ctx context.Context, messageID uint, origin, sessionToken string) (bool, error) {
	if err := validateSessionToken(sessionToken); err != nil {
		return false, err
	}
	liked, err := g.likes.HasLikedMessage(ctx, messageID, sessionToken)
	if err != nil {
		return false, err
	}
	if !liked {
		err = g.likes.CreateMessageLike(ctx, &models.MessageLike{
			MessageID:    messageID,
			SessionToken: sessionToken,
			Origin:       origin,
		})
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return false, err
		}
	}
	observability.LikesRejected.WithLabelValues("message").Inc()
	return false, nil
}

// TryRegisterCommentLike is TryRegisterMessageLike for comments.
func (g *LikeGuard) TryRegisterCommentLike(ctx context.Context, commentID uint, origin, sessionToken string) (bool, error) {
	if err := validateSessionToken(sessionToken); err != nil {
		return false, err
	}
	liked, err := g.likes.HasLikedComment(ctx, commentID, sessionToken)
	if err != nil {
		return false, err
	}
	if !liked {
		err = g.likes.CreateCommentLike(ctx, &models.CommentLike{
			CommentID:    commentID,
			SessionToken: sessionToken,
			Origin:       origin,
		})
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return false, err
		}
	}
	observability.LikesRejected.WithLabelValues("comment").Inc()
	return false, nil
}
