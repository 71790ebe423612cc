// Package ranking defines the feed orderings and the pagination window used
// by every store backend.
package ranking

import (
	"fmt"
	"sort"
	"time"
)

// Mode selects one of the feed orderings.
type Mode string

const (
	Newest        Mode = "newest"
	MostLiked     Mode = "most_liked"
	MostCommented Mode = "most_commented"
	Hottest       Mode = "hottest"
)

// Modes lists every supported ordering.
var Modes = []Mode{Newest, MostLiked, MostCommented, Hottest}

// ParseMode converts a query value to a Mode. An empty value means Newest.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return Newest, nil
	}
	if m := Mode(s); m.Valid() {
		return m, nil
	}
	return "", fmt.Errorf("unknown sort mode %q", s)
}

// Valid reports whether m is one of Modes.
func (m Mode) Valid() bool {
	for _, known := range Modes {
		if m == known {
			return true
		}
	}
	return false
}

// Entry is the slice of a message the comparators look at.
type Entry struct {
	ID           uint
	CreatedAt    time.Time
	Likes        int
	CommentCount int
	LastActivity time.Time
}

// LatestActivity is the hottest key of a message. Demoted messages stay at
// their creation time; others move to their newest comment.
func LatestActivity(createdAt time.Time, demoted bool, commentTimes ...time.Time) time.Time {
	latest := createdAt
	if demoted {
		return latest
	}
	for _, t := range commentTimes {
		if t.After(latest) {
			latest = t
		}
	}
	return latest
}

// Less reports whether a sorts before b under mode. Every mode falls back to
// ascending id, so the order is total.
func Less(mode Mode, a, b Entry) bool {
	switch mode {
	case MostLiked:
		if a.Likes != b.Likes {
			return a.Likes > b.Likes
		}
	case MostCommented:
		if a.CommentCount != b.CommentCount {
			return a.CommentCount > b.CommentCount
		}
	case Hottest:
		if !a.LastActivity.Equal(b.LastActivity) {
			return a.LastActivity.After(b.LastActivity)
		}
	default:
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
	}
	return a.ID < b.ID
}

// Sort orders entries in place.
func Sort(entries []Entry, mode Mode) {
	sort.SliceStable(entries, func(i, j int) bool {
		return Less(mode, entries[i], entries[j])
	})
}

// Window returns the [start, end) bounds of the page at offset of at most
// limit items in a sequence of length n.
func Window(n, limit, offset int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}
	if offset > n {
		return n, n
	}
	end := offset + limit
	if end > n {
		end = n
	}
	return offset, end
}
