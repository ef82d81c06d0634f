// Package domain holds the community platform's aggregate documents. Each
// aggregate is persisted as a single item with its child collections
// embedded, and carries a version used for conditional writes.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Aggregate is implemented by every top-level document the repositories store.
type Aggregate interface {
	AggregateID() string
	AggregateVersion() int
	SetAggregateVersion(v int)
	Touch(now time.Time)
}

// Record carries the bookkeeping fields shared by all aggregates.
type Record struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Version   int       `json:"version"`
}

func (r *Record) AggregateVersion() int     { return r.Version }
func (r *Record) SetAggregateVersion(v int) { r.Version = v }

// Touch stamps UpdatedAt, and CreatedAt on first save.
func (r *Record) Touch(now time.Time) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
}

// ID prefixes.
const (
	PrefixSprint     = "sprint"
	PrefixSession    = "session"
	PrefixSubmission = "submission"
	PrefixPost       = "post"
	PrefixReply      = "reply"
	PrefixGroup      = "group"
	PrefixMessage    = "msg"
	PrefixItem       = "item"
	PrefixOrder      = "order"
)

// NewID returns an id of the form {prefix}-{unixMillis}-{random6}.
func NewID(prefix string, now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("%s-%d-%s", prefix, now.UnixMilli(), random)
}

// Likes is the like state embedded in forum posts, group messages and replies.
// Likes always mirrors len(LikedBy).
type Likes struct {
	Likes   int      `json:"likes"`
	LikedBy []string `json:"likedBy"`
}

// ToggleLike adds or removes userID from LikedBy and reports whether the
// user now likes the entry.
func (l *Likes) ToggleLike(userID string) bool {
	liked := false
	if idx := indexOf(l.LikedBy, userID); idx >= 0 {
		l.LikedBy = append(l.LikedBy[:idx:idx], l.LikedBy[idx+1:]...)
	} else {
		l.LikedBy = append(l.LikedBy, userID)
		liked = true
	}
	l.Likes = len(l.LikedBy)
	return liked
}

func (l *Likes) normalize() {
	if l.LikedBy == nil {
		l.LikedBy = []string{}
	}
	l.Likes = len(l.LikedBy)
}

func indexOf(values []string, v string) int {
	for i, s := range values {
		if s == v {
			return i
		}
	}
	return -1
}

func contains(values []string, v string) bool {
	return indexOf(values, v) >= 0
}

func remove(values []string, v string) ([]string, bool) {
	idx := indexOf(values, v)
	if idx < 0 {
		return values, false
	}
	return append(values[:idx:idx], values[idx+1:]...), true
}
