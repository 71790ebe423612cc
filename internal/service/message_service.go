package service

import (
	"context"
	"errors"
	"time"

	"whisperwall/internal/models"
	"whisperwall/internal/notifications"
	"whisperwall/internal/observability"
	"whisperwall/internal/ranking"
	"whisperwall/internal/ratelimit"
	"whisperwall/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// Page size bounds for ListMessages.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type MessageService struct {
	store     *repository.Store
	guard     *LikeGuard
	publisher notifications.Publisher
	limiter   ratelimit.Limiter
	stats     *StatsService
	now       func() time.Time
}

type CreateMessageInput struct {
	Content string
	Origin  string
}

type ListMessagesInput struct {
	Mode   ranking.Mode
	Limit  int
	Offset int
}

// LikeInput identifies a like on a message or comment.
type LikeInput struct {
	TargetID     uint
	Origin       string
	SessionToken string
}

// NewMessageService wires the message operations. publisher and limiter may
// be nil.
func NewMessageService(
	store *repository.Store,
	publisher notifications.Publisher,
	limiter ratelimit.Limiter,
	stats *StatsService,
) *MessageService {
	if limiter == nil {
		limiter = ratelimit.Noop{}
	}
	return &MessageService{
		store:     store,
		guard:     NewLikeGuard(store.Likes),
		publisher: publisher,
		limiter:   limiter,
		stats:     stats,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *MessageService) publish(evt notifications.Event) {
	if s.publisher != nil {
		s.publisher.Publish(evt)
	}
}

// CreateMessage validates and stores a new message and announces it with
// its full record.
func (s *MessageService) CreateMessage(ctx context.Context, in CreateMessageInput) (view *models.MessageView, err error) {
	ctx, span := observability.StartSpan(ctx, "MessageService", "CreateMessage")
	defer func() { observability.EndSpan(span, err) }()

	content, err := validateContent(in.Content)
	if err != nil {
		return nil, err
	}

	allowed, err := s.limiter.Allow(ctx, in.Origin)
	if err != nil {
		return nil, mapStoreError(err, "Message", "")
	}
	if !allowed {
		observability.RateLimited.WithLabelValues(s.limiter.Mode()).Inc()
		return nil, models.NewRateLimitedError("You are posting too fast, please wait a moment")
	}

	message := &models.Message{
		Content:   content,
		CreatedAt: s.now(),
		Origin:    in.Origin,
	}
	if err := s.store.Messages.Create(ctx, message); err != nil {
		return nil, mapStoreError(err, "Message", "")
	}
	span.SetAttributes(attribute.Int64("message.id", int64(message.ID)))

	view = models.NewMessageView(message, nil)
	s.stats.Invalidate(ctx)
	s.publish(notifications.NewMessageEvent(view))
	return view, nil
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// ListMessages returns one ranked page, each message with its comments.
func (s *MessageService) ListMessages(ctx context.Context, in ListMessagesInput) (views []*models.MessageView, err error) {
	ctx, span := observability.StartSpan(ctx, "MessageService", "ListMessages",
		attribute.String("sort", string(in.Mode)))
	defer func() { observability.EndSpan(span, err) }()

	if !in.Mode.Valid() {
		return nil, models.NewValidationError("Invalid sortBy, expected one of newest, most_liked, most_commented, hottest")
	}
	limit, offset := normalizePage(in.Limit, in.Offset)

	messages, err := s.store.Messages.List(ctx, in.Mode, limit, offset)
	if err != nil {
		return nil, mapStoreError(err, "Message", "")
	}

	ids := make([]uint, len(messages))
	for i, m := range messages {
		ids[i] = m.ID
	}
	byMessage, err := s.store.Comments.ListByMessageIDs(ctx, ids)
	if err != nil {
		return nil, mapStoreError(err, "Comment", "")
	}

	views = make([]*models.MessageView, len(messages))
	for i, m := range messages {
		views[i] = models.NewMessageView(m, byMessage[m.ID])
	}
	return views, nil
}

// GetMessage returns one message with its comments.
func (s *MessageService) GetMessage(ctx context.Context, id uint) (*models.MessageView, error) {
	message, err := s.store.Messages.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "Message", id)
	}
	comments, err := s.store.Comments.ListByMessage(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "Comment", "")
	}
	return models.NewMessageView(message, comments), nil
}

// LikeMessage adds one like from the session, at most once per session.
func (s *MessageService) LikeMessage(ctx context.Context, in LikeInput) (message *models.Message, err error) {
	ctx, span := observability.StartSpan(ctx, "MessageService", "LikeMessage",
		attribute.Int64("message.id", int64(in.TargetID)))
	defer func() { observability.EndSpan(span, err) }()

	if err := validateSessionToken(in.SessionToken); err != nil {
		return nil, err
	}
	if _, err := s.store.Messages.GetByID(ctx, in.TargetID); err != nil {
		return nil, mapStoreError(err, "Message", in.TargetID)
	}

	ok, err := s.guard.TryRegisterMessageLike(ctx, in.TargetID, in.Origin, in.SessionToken)
	if err != nil {
		return nil, mapStoreError(err, "Message", in.TargetID)
	}
	if !ok {
		return nil, models.NewDuplicateActionError("You have already liked this message")
	}

	message, err = s.store.Messages.IncrementLikes(ctx, in.TargetID)
	if err != nil {
		return nil, mapStoreError(err, "Message", in.TargetID)
	}
	s.publish(notifications.MessageLikedEvent(message))
	return message, nil
}

// DemoteMessage freezes a message's hottest position. Demoting an already
// demoted message changes nothing and announces nothing.
func (s *MessageService) DemoteMessage(ctx context.Context, id uint) (*models.Message, error) {
	current, err := s.store.Messages.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "Message", id)
	}
	if current.Demoted {
		return current, nil
	}

	message, err := s.store.Messages.Demote(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "Message", id)
	}
	s.publish(notifications.MessageDemotedEvent(id))
	return message, nil
}

// DeleteMessage removes a message with its comments and likes. Deleting a
// missing message is a no-op.
func (s *MessageService) DeleteMessage(ctx context.Context, id uint) (err error) {
	ctx, span := observability.StartSpan(ctx, "MessageService", "DeleteMessage",
		attribute.Int64("message.id", int64(id)))
	defer func() { observability.EndSpan(span, err) }()

	existed, err := s.store.Messages.Delete(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return mapStoreError(err, "Message", id)
	}
	if !existed {
		return nil
	}
	s.stats.Invalidate(ctx)
	s.publish(notifications.MessageDeletedEvent(id))
	return nil
}
