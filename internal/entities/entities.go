// Package entities contains main entities of service.
package entities

import (
	"strings"
	"time"
)

// ViewsDayFormat is a key format of the views ledger.
const ViewsDayFormat = "2006-01-02"

// Status ...
type Status string

const (
	// StatusDraft ...
	StatusDraft Status = "DRAFT"
	// StatusPublished ...
	StatusPublished Status = "PUBLISHED"
	// StatusArchived ...
	StatusArchived Status = "ARCHIVED"
)

// IsValid ...
func (s Status) IsValid() bool {
	return s == StatusDraft || s == StatusPublished || s == StatusArchived
}

// LikeKind is a tag of LikeEntry variant.
type LikeKind uint8

const (
	// LikeCounted is a guest tally entry.
	LikeCounted LikeKind = iota
	// LikeToggled is a registered user entry.
	LikeToggled
)

// LikeEntry is a single likes ledger entry. A guest entry is a counter,
// a registered user entry is a toggle.
type LikeEntry struct {
	Kind  LikeKind
	Count int64
	Liked bool
}

// Value returns the entry's contribution to a likes sum.
func (e LikeEntry) Value() int64 {
	if e.Kind == LikeToggled {
		if e.Liked {
			return 1
		}
		return 0
	}

	return e.Count
}

// Comment ...
type Comment struct {
	ID        string
	Author    string
	UserID    *int64
	Content   string
	CreatedAt time.Time
	Replies   []*Comment
}

// Post ...
type Post struct {
	ID            int64
	Owner         int64
	Title         string
	Slug          string
	Content       string
	Excerpt       string
	CoverImageURL string
	Status        Status
	IsPublic      bool
	AllowComments bool

	// ShareToken is empty until the post is published for the first time
	// and immutable afterwards.
	ShareToken string

	Views     map[string]int64
	Likes     map[string]LikeEntry
	Favorites map[string]bool
	Comments  map[string]*Comment

	WordCount      int
	ReadingTimeMin int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ViewCount returns the sum of all views ledger buckets.
func (p Post) ViewCount() int64 {
	var out int64
	for _, v := range p.Views {
		out += v
	}

	return out
}

// LikeCount returns the sum of all likes ledger entries.
func (p Post) LikeCount() int64 {
	var out int64
	for _, v := range p.Likes {
		out += v.Value()
	}

	return out
}

// CommentCount returns the count of top-level comments, replies are not counted.
func (p Post) CommentCount() int64 {
	return int64(len(p.Comments))
}

// FavoriteCount returns the count of active favorites ledger entries.
func (p Post) FavoriteCount() int64 {
	var out int64
	for _, v := range p.Favorites {
		if v {
			out++
		}
	}

	return out
}

// IsFavorite reports whether the post has at least one active favorite.
func (p Post) IsFavorite() bool {
	return p.FavoriteCount() > 0
}

// CountWords returns the word count of content.
func CountWords(content string) int {
	return len(strings.Fields(content))
}

// ReadingTime returns estimated reading time in minutes for the given word count.
func ReadingTime(words int) int {
	const wordsPerMinute = 200

	if words == 0 {
		return 0
	}

	return (words + wordsPerMinute - 1) / wordsPerMinute
}
