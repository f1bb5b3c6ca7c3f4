// Package service contains interface for service business-logic.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/pranublog/pranublog/internal/dashboard"
	"github.com/pranublog/pranublog/internal/entities"
)

//go:generate mockgen -destination=./mock/service.go -package=mock -source=service.go

// ErrForbidden returned when a post is accessed by somebody but its owner.
var ErrForbidden = errors.New("forbidden")

// ErrCommentsDisabled returned when a comment is added to a post which doesn't allow them.
var ErrCommentsDisabled = errors.New("comments are disabled")

// Actor is a like/comment/view author, either a registered user or a guest.
type Actor struct {
	UserID  *int64
	GuestID string
}

// Key returns the actor's ledger key.
func (a Actor) Key() string {
	if a.UserID != nil {
		return fmt.Sprintf("user_%d", *a.UserID)
	}

	if a.GuestID != "" {
		return fmt.Sprintf("guest_%s", a.GuestID)
	}

	return "guest"
}

// CreatePostParams ...
type CreatePostParams struct {
	Title         string
	Content       string
	Excerpt       string
	CoverImageURL string
	IsPublic      bool
	AllowComments bool
}

// UpdatePostParams are partial, nil fields keep current values.
type UpdatePostParams struct {
	Title         *string
	Content       *string
	Excerpt       *string
	CoverImageURL *string
	IsPublic      *bool
	AllowComments *bool
}

// Service ...
type Service interface {
	GetDashboard(ctx context.Context, owner int64, p *dashboard.Params) (*dashboard.Response, error)

	CreatePost(ctx context.Context, owner int64, p *CreatePostParams) (*entities.Post, error)
	ListPosts(ctx context.Context, owner int64) ([]*entities.Post, error)
	GetPost(ctx context.Context, owner, id int64) (*entities.Post, error)
	UpdatePost(ctx context.Context, owner, id int64, p *UpdatePostParams) (*entities.Post, error)
	PublishPost(ctx context.Context, owner, id int64) (*entities.Post, error)
	UnpublishPost(ctx context.Context, owner, id int64) (*entities.Post, error)
	DeletePost(ctx context.Context, owner, id int64) error
	ToggleFavorite(ctx context.Context, owner, id int64) (*entities.Post, error)

	ListPublicPosts(ctx context.Context) ([]*entities.Post, error)
	GetPublicPost(ctx context.Context, shareToken string, skipView bool) (*entities.Post, error)
	Like(ctx context.Context, shareToken string, actor Actor) (*entities.Post, error)
	AddComment(ctx context.Context, shareToken string, actor Actor, author, content string, parentID *string) (*entities.Post, error)
}
