package notifications

import "whisperwall/internal/models"

// EventType tags a live-channel notification.
type EventType string

// The seven mutation events pushed to clients.
const (
	EventNewMessage     EventType = "new_message"
	EventMessageLiked   EventType = "message_liked"
	EventNewComment     EventType = "new_comment"
	EventCommentLiked   EventType = "comment_liked"
	EventMessageDeleted EventType = "message_deleted"
	EventCommentDeleted EventType = "comment_deleted"
	EventMessageDemoted EventType = "message_demoted"
)

// Event is the envelope for every live-channel notification. Clients treat
// all of them as invalidation hints and re-fetch; only new_message carries a
// payload, so clients can prepend it without a round trip.
type Event struct {
	Type      EventType           `json:"type"`
	MessageID uint                `json:"message_id,omitempty"`
	CommentID uint                `json:"comment_id,omitempty"`
	Likes     *int                `json:"likes,omitempty"`
	Payload   *models.MessageView `json:"payload,omitempty"`
}

// Publisher delivers events to live clients.
type Publisher interface {
	Publish(evt Event)
}

func NewMessageEvent(view *models.MessageView) Event {
	return Event{Type: EventNewMessage, MessageID: view.ID, Payload: view}
}

func MessageLikedEvent(m *models.Message) Event {
	likes := m.Likes
	return Event{Type: EventMessageLiked, MessageID: m.ID, Likes: &likes}
}

func NewCommentEvent(c *models.Comment) Event {
	return Event{Type: EventNewComment, MessageID: c.MessageID, CommentID: c.ID}
}

func CommentLikedEvent(c *models.Comment) Event {
	likes := c.Likes
	return Event{Type: EventCommentLiked, MessageID: c.MessageID, CommentID: c.ID, Likes: &likes}
}

func MessageDeletedEvent(id uint) Event {
	return Event{Type: EventMessageDeleted, MessageID: id}
}

func CommentDeletedEvent(c *models.Comment) Event {
	return Event{Type: EventCommentDeleted, MessageID: c.MessageID, CommentID: c.ID}
}

func MessageDemotedEvent(id uint) Event {
	return Event{Type: EventMessageDemoted, MessageID: id}
}
