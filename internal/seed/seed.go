// Package seed fills a store with demo board content for development and
// load testing.
package seed

import (
	"context"
	"fmt"
	"log"
	"time"

	"whisperwall/internal/models"
	"whisperwall/internal/ranking"
	"whisperwall/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
)

// Options controls how much content Seed creates.
type Options struct {
	Messages    int
	MaxComments int
	MaxLikes    int
	// MaxDays bounds how far back message timestamps are spread.
	MaxDays int
	// AutomatedRatio is the share of comments posted as automated replies.
	AutomatedRatio float64
	Clean          bool
}

// DefaultOptions returns a modest board.
func DefaultOptions() Options {
	return Options{
		Messages:       50,
		MaxComments:    5,
		MaxLikes:       20,
		MaxDays:        14,
		AutomatedRatio: 0.1,
	}
}

// Result counts what a Seed call created.
type Result struct {
	Messages     int
	Comments     int
	MessageLikes int
	CommentLikes int
	Removed      int
}

var automatedLabels = []string{"Board Bot", "Digest", "Moderator Notice"}

// Seeder writes generated content through the repositories, so it works
// against every backend.
type Seeder struct {
	store *repository.Store
	faker *gofakeit.Faker
	now   func() time.Time
}

// NewSeeder creates a Seeder. A zero seed picks a time-based one.
func NewSeeder(store *repository.Store, seed int64) *Seeder {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Seeder{
		store: store,
		faker: gofakeit.New(seed),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Seed creates opts.Messages messages with comments and likes.
func (s *Seeder) Seed(ctx context.Context, opts Options) (Result, error) {
	var res Result
	if opts.Clean {
		removed, err := s.Clear(ctx)
		if err != nil {
			return res, err
		}
		res.Removed = removed
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 1
	}

	for i := 0; i < opts.Messages; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		msg, err := s.createMessage(ctx, opts)
		if err != nil {
			return res, fmt.Errorf("create message: %w", err)
		}
		res.Messages++

		likes, err := s.likeMessage(ctx, msg.ID, s.count(opts.MaxLikes))
		if err != nil {
			return res, fmt.Errorf("like message %d: %w", msg.ID, err)
		}
		res.MessageLikes += likes

		for j, n := 0, s.count(opts.MaxComments); j < n; j++ {
			comment, err := s.createComment(ctx, msg, opts)
			if err != nil {
				return res, fmt.Errorf("create comment on %d: %w", msg.ID, err)
			}
			res.Comments++

			likes, err := s.likeComment(ctx, comment.ID, s.count(opts.MaxLikes/4))
			if err != nil {
				return res, fmt.Errorf("like comment %d: %w", comment.ID, err)
			}
			res.CommentLikes += likes
		}
	}

	log.Printf("seeded %d messages, %d comments, %d message likes, %d comment likes",
		res.Messages, res.Comments, res.MessageLikes, res.CommentLikes)
	return res, nil
}

// Clear deletes every message, and with them all comments and likes.
func (s *Seeder) Clear(ctx context.Context) (int, error) {
	removed := 0
	for {
		page, err := s.store.Messages.List(ctx, ranking.Newest, 100, 0)
		if err != nil {
			return removed, fmt.Errorf("list messages: %w", err)
		}
		if len(page) == 0 {
			return removed, nil
		}
		for _, m := range page {
			existed, err := s.store.Messages.Delete(ctx, m.ID)
			if err != nil {
				return removed, fmt.Errorf("delete message %d: %w", m.ID, err)
			}
			if existed {
				removed++
			}
		}
	}
}

func (s *Seeder) count(max int) int {
	if max <= 0 {
		return 0
	}
	return s.faker.Number(0, max)
}

func (s *Seeder) createMessage(ctx context.Context, opts Options) (*models.Message, error) {
	back := time.Duration(s.faker.Number(0, opts.MaxDays*24*60)) * time.Minute
	msg := &models.Message{
		Content:   clip(s.faker.Sentence(s.faker.Number(3, 30))),
		CreatedAt: s.now().Add(-back),
		Origin:    s.faker.IPv4Address(),
	}
	if err := s.store.Messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *Seeder) createComment(ctx context.Context, parent *models.Message, opts Options) (*models.Comment, error) {
	created := parent.CreatedAt
	if span := s.now().Sub(parent.CreatedAt); span > time.Minute {
		created = created.Add(time.Duration(s.faker.Number(1, int(span/time.Minute))) * time.Minute)
	}
	comment := &models.Comment{
		MessageID: parent.ID,
		Content:   clip(s.faker.Sentence(s.faker.Number(2, 15))),
		CreatedAt: created,
	}
	if s.faker.Float64() < opts.AutomatedRatio {
		label := automatedLabels[s.faker.Number(0, len(automatedLabels)-1)]
		comment.IsAutomated = true
		comment.AuthorLabel = &label
	}
	if err := s.store.Comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *Seeder) likeMessage(ctx context.Context, id uint, n int) (int, error) {
	for i := 0; i < n; i++ {
		like := &models.MessageLike{MessageID: id, SessionToken: s.faker.UUID(), Origin: s.faker.IPv4Address()}
		if err := s.store.Likes.CreateMessageLike(ctx, like); err != nil {
			return i, err
		}
		if _, err := s.store.Messages.IncrementLikes(ctx, id); err != nil {
			return i, err
		}
	}
	return n, nil
}

func (s *Seeder) likeComment(ctx context.Context, id uint, n int) (int, error) {
	for i := 0; i < n; i++ {
		like := &models.CommentLike{CommentID: id, SessionToken: s.faker.UUID(), Origin: s.faker.IPv4Address()}
		if err := s.store.Likes.CreateCommentLike(ctx, like); err != nil {
			return i, err
		}
		if _, err := s.store.Comments.IncrementLikes(ctx, id); err != nil {
			return i, err
		}
	}
	return n, nil
}

func clip(content string) string {
	r := []rune(content)
	if len(r) > models.MaxContentLength {
		return string(r[:models.MaxContentLength])
	}
	return content
}
