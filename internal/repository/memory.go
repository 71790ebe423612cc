package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"whisperwall/internal/models"
	"whisperwall/internal/ranking"
)

type likeKey struct {
	target  uint
	session string
}

// memoryState is the shared state behind the in-memory repositories. One
// mutex covers every table so cascades are atomic.
type memoryState struct {
	mu sync.RWMutex

	messages     map[uint]*models.Message
	comments     map[uint]*models.Comment
	messageLikes map[likeKey]*models.MessageLike
	commentLikes map[likeKey]*models.CommentLike
	rateLimits   map[string]time.Time

	nextMessageID uint
	nextCommentID uint
	nextLikeID    uint
}

// NewMemoryStore returns a Store that keeps everything in process memory.
func NewMemoryStore() *Store {
	st := &memoryState{
		messages:     make(map[uint]*models.Message),
		comments:     make(map[uint]*models.Comment),
		messageLikes: make(map[likeKey]*models.MessageLike),
		commentLikes: make(map[likeKey]*models.CommentLike),
		rateLimits:   make(map[string]time.Time),
	}
	return &Store{
		Messages:   &memoryMessages{st},
		Comments:   &memoryComments{st},
		Likes:      &memoryLikes{st},
		RateLimits: &memoryRateLimits{st},
		backend:    "memory",
	}
}

func copyMessage(m *models.Message) *models.Message {
	c := *m
	return &c
}

func copyComment(c *models.Comment) *models.Comment {
	out := *c
	if c.AuthorLabel != nil {
		label := *c.AuthorLabel
		out.AuthorLabel = &label
	}
	return &out
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

type memoryMessages struct{ st *memoryState }

func (r *memoryMessages) Create(_ context.Context, message *models.Message) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	r.st.nextMessageID++
	message.ID = r.st.nextMessageID
	message.CreatedAt = stamp(message.CreatedAt)
	r.st.messages[message.ID] = copyMessage(message)
	return nil
}

func (r *memoryMessages) GetByID(_ context.Context, id uint) (*models.Message, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	m, ok := r.st.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyMessage(m), nil
}

func (r *memoryMessages) List(_ context.Context, mode ranking.Mode, limit, offset int) ([]*models.Message, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	commentTimes := make(map[uint][]time.Time, len(r.st.messages))
	for _, c := range r.st.comments {
		commentTimes[c.MessageID] = append(commentTimes[c.MessageID], c.CreatedAt)
	}

	entries := make([]ranking.Entry, 0, len(r.st.messages))
	for _, m := range r.st.messages {
		times := commentTimes[m.ID]
		entries = append(entries, ranking.Entry{
			ID:           m.ID,
			CreatedAt:    m.CreatedAt,
			Likes:        m.Likes,
			CommentCount: len(times),
			LastActivity: ranking.LatestActivity(m.CreatedAt, m.Demoted, times...),
		})
	}
	ranking.Sort(entries, mode)

	start, end := ranking.Window(len(entries), limit, offset)
	out := make([]*models.Message, 0, end-start)
	for _, e := range entries[start:end] {
		out = append(out, copyMessage(r.st.messages[e.ID]))
	}
	return out, nil
}

func (r *memoryMessages) IncrementLikes(_ context.Context, id uint) (*models.Message, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	m, ok := r.st.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	m.Likes++
	return copyMessage(m), nil
}

func (r *memoryMessages) Demote(_ context.Context, id uint) (*models.Message, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	m, ok := r.st.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	m.Demoted = true
	return copyMessage(m), nil
}

func (r *memoryMessages) Delete(_ context.Context, id uint) (bool, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if _, ok := r.st.messages[id]; !ok {
		return false, nil
	}
	for cid, c := range r.st.comments {
		if c.MessageID != id {
			continue
		}
		r.st.deleteCommentLikes(cid)
		delete(r.st.comments, cid)
	}
	for k := range r.st.messageLikes {
		if k.target == id {
			delete(r.st.messageLikes, k)
		}
	}
	delete(r.st.messages, id)
	return true, nil
}

func (r *memoryMessages) Count(_ context.Context) (int64, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	return int64(len(r.st.messages)), nil
}

// deleteCommentLikes must be called with mu held.
func (st *memoryState) deleteCommentLikes(commentID uint) {
	for k := range st.commentLikes {
		if k.target == commentID {
			delete(st.commentLikes, k)
		}
	}
}

type memoryComments struct{ st *memoryState }

func (r *memoryComments) Create(_ context.Context, comment *models.Comment) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	r.st.nextCommentID++
	comment.ID = r.st.nextCommentID
	comment.CreatedAt = stamp(comment.CreatedAt)
	r.st.comments[comment.ID] = copyComment(comment)
	return nil
}

func (r *memoryComments) GetByID(_ context.Context, id uint) (*models.Comment, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	c, ok := r.st.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyComment(c), nil
}

func sortComments(comments []*models.Comment) {
	sort.Slice(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.Before(comments[j].CreatedAt)
		}
		return comments[i].ID < comments[j].ID
	})
}

func (r *memoryComments) ListByMessage(_ context.Context, messageID uint) ([]*models.Comment, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	out := []*models.Comment{}
	for _, c := range r.st.comments {
		if c.MessageID == messageID {
			out = append(out, copyComment(c))
		}
	}
	sortComments(out)
	return out, nil
}

func (r *memoryComments) ListByMessageIDs(_ context.Context, messageIDs []uint) (map[uint][]*models.Comment, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	want := make(map[uint]struct{}, len(messageIDs))
	for _, id := range messageIDs {
		want[id] = struct{}{}
	}
	out := make(map[uint][]*models.Comment, len(messageIDs))
	for _, c := range r.st.comments {
		if _, ok := want[c.MessageID]; ok {
			out[c.MessageID] = append(out[c.MessageID], copyComment(c))
		}
	}
	for _, list := range out {
		sortComments(list)
	}
	return out, nil
}

func (r *memoryComments) IncrementLikes(_ context.Context, id uint) (*models.Comment, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	c, ok := r.st.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	c.Likes++
	return copyComment(c), nil
}

func (r *memoryComments) Delete(_ context.Context, id uint) (bool, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if _, ok := r.st.comments[id]; !ok {
		return false, nil
	}
	r.st.deleteCommentLikes(id)
	delete(r.st.comments, id)
	return true, nil
}

func (r *memoryComments) Count(_ context.Context) (int64, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	return int64(len(r.st.comments)), nil
}

type memoryLikes struct{ st *memoryState }

func (r *memoryLikes) HasLikedMessage(_ context.Context, messageID uint, sessionToken string) (bool, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	_, ok := r.st.messageLikes[likeKey{messageID, sessionToken}]
	return ok, nil
}

func (r *memoryLikes) CreateMessageLike(_ context.Context, like *models.MessageLike) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	key := likeKey{like.MessageID, like.SessionToken}
	if _, ok := r.st.messageLikes[key]; ok {
		return ErrDuplicate
	}
	r.st.nextLikeID++
	like.ID = r.st.nextLikeID
	rec := *like
	r.st.messageLikes[key] = &rec
	return nil
}

func (r *memoryLikes) CountMessageLikes(_ context.Context, messageID uint) (int64, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	var n int64
	for k := range r.st.messageLikes {
		if k.target == messageID {
			n++
		}
	}
	return n, nil
}

func (r *memoryLikes) HasLikedComment(_ context.Context, commentID uint, sessionToken string) (bool, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	_, ok := r.st.commentLikes[likeKey{commentID, sessionToken}]
	return ok, nil
}

func (r *memoryLikes) CreateCommentLike(_ context.Context, like *models.CommentLike) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	key := likeKey{like.CommentID, like.SessionToken}
	if _, ok := r.st.commentLikes[key]; ok {
		return ErrDuplicate
	}
	r.st.nextLikeID++
	like.ID = r.st.nextLikeID
	rec := *like
	r.st.commentLikes[key] = &rec
	return nil
}

func (r *memoryLikes) CountCommentLikes(_ context.Context, commentID uint) (int64, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	var n int64
	for k := range r.st.commentLikes {
		if k.target == commentID {
			n++
		}
	}
	return n, nil
}

type memoryRateLimits struct{ st *memoryState }

func (r *memoryRateLimits) Acquire(_ context.Context, origin string, now time.Time, interval time.Duration) (bool, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if last, ok := r.st.rateLimits[origin]; ok && now.Sub(last) < interval {
		return false, nil
	}
	r.st.rateLimits[origin] = now
	return true, nil
}

func (r *memoryRateLimits) PruneBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	var n int64
	for origin, last := range r.st.rateLimits {
		if last.Before(cutoff) {
			delete(r.st.rateLimits, origin)
			n++
		}
	}
	return n, nil
}
