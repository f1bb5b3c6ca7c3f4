// Package storage contains a storage interface.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/pranublog/pranublog/internal/entities"
)

//go:generate mockgen -destination=./mock/storage.go -package=mock -source=storage.go

// ErrNotFound ...
var ErrNotFound = fmt.Errorf("not found")

// Storage provides methods for interacting with database.
type Storage interface {
	InTx(ctx context.Context, f func(s Storage) error) error

	ListPostsByOwner(ctx context.Context, owner int64) ([]*entities.Post, error)
	ListPublishedPosts(ctx context.Context) ([]*entities.Post, error)
	GetPost(ctx context.Context, id int64) (*entities.Post, error)
	GetPostByShareToken(ctx context.Context, token string) (*entities.Post, error)
	CreatePost(ctx context.Context, p *CreatePostParams) (*entities.Post, error)
	UpdatePost(ctx context.Context, id int64, p *UpdatePostParams) error
	SetPostStatus(ctx context.Context, id int64, status entities.Status, shareToken *string, timestamp time.Time) error
	DeletePost(ctx context.Context, id int64) error

	AddView(ctx context.Context, id int64, day string) error
	IncrementLike(ctx context.Context, id int64, actor string) error
	ToggleLike(ctx context.Context, id int64, actor string) error
	ToggleFavorite(ctx context.Context, id int64, actor string) error
	CreateComment(ctx context.Context, p *CreateCommentParams) error
}

// CreatePostParams ...
type CreatePostParams struct {
	Owner          int64
	Title          string
	Slug           string
	Content        string
	Excerpt        string
	CoverImageURL  string
	IsPublic       bool
	AllowComments  bool
	WordCount      int
	ReadingTimeMin int
	CreatedAt      time.Time
}

// UpdatePostParams ...
type UpdatePostParams struct {
	Title          string
	Slug           string
	Content        string
	Excerpt        string
	CoverImageURL  string
	IsPublic       bool
	AllowComments  bool
	WordCount      int
	ReadingTimeMin int
	UpdatedAt      time.Time
}

// CreateCommentParams ...
type CreateCommentParams struct {
	ID        string
	PostID    int64
	ParentID  *string
	Author    string
	UserID    *int64
	Content   string
	CreatedAt time.Time
}
