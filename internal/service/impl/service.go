// Package impl is implementation of service interface.
package impl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pranublog/pranublog/internal/dashboard"
	"github.com/pranublog/pranublog/internal/entities"
	"github.com/pranublog/pranublog/internal/service"
	"github.com/pranublog/pranublog/internal/storage"
)

// recentPostsMinSize is a floor for the size of the unfiltered recent collection.
const recentPostsMinSize = 5

type srv struct {
	s storage.Storage
}

func (s srv) GetDashboard(ctx context.Context, owner int64, p *dashboard.Params) (*dashboard.Response, error) {
	// reject invalid pagination before touching the storage
	if err := p.Validate(); err != nil {
		return nil, err
	}

	posts, err := s.s.ListPostsByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts on s side: %w", err)
	}

	metrics := dashboard.Aggregate(posts)

	filtered, err := dashboard.Query(posts, p)
	if err != nil {
		return nil, err
	}

	recentSize := p.PageSize
	if recentSize < recentPostsMinSize {
		recentSize = recentPostsMinSize
	}

	recent, err := dashboard.Query(posts, &dashboard.Params{
		Page:     0,
		PageSize: recentSize,
		SortBy:   dashboard.RecentSortType,
	})
	if err != nil {
		return nil, err
	}

	return &dashboard.Response{
		Metrics:       metrics,
		RecentPosts:   recent,
		FilteredPosts: filtered,
	}, nil
}

func (s srv) CreatePost(ctx context.Context, owner int64, p *service.CreatePostParams) (*entities.Post, error) {
	now := time.Now().UTC()
	words := entities.CountWords(p.Content)

	post, err := s.s.CreatePost(ctx, &storage.CreatePostParams{
		Owner: owner,
		Title: p.Title,
		// suffix keeps slugs of same-titled posts apart
		Slug:           fmt.Sprintf("%s-%d", slugify(p.Title), now.Unix()),
		Content:        p.Content,
		Excerpt:        p.Excerpt,
		CoverImageURL:  p.CoverImageURL,
		IsPublic:       p.IsPublic,
		AllowComments:  p.AllowComments,
		WordCount:      words,
		ReadingTimeMin: entities.ReadingTime(words),
		CreatedAt:      now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create post on s side: %w", err)
	}

	return post, nil
}

func (s srv) ListPosts(ctx context.Context, owner int64) ([]*entities.Post, error) {
	posts, err := s.s.ListPostsByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts on s side: %w", err)
	}

	return posts, nil
}

func (s srv) GetPost(ctx context.Context, owner, id int64) (*entities.Post, error) {
	return s.getOwned(ctx, owner, id)
}

func (s srv) UpdatePost(ctx context.Context, owner, id int64, p *service.UpdatePostParams) (*entities.Post, error) {
	post, err := s.getOwned(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	if p.Title != nil {
		post.Title = *p.Title
		post.Slug = slugify(*p.Title)
	}
	if p.Content != nil {
		post.Content = *p.Content
	}
	if p.Excerpt != nil {
		post.Excerpt = *p.Excerpt
	}
	if p.CoverImageURL != nil {
		post.CoverImageURL = *p.CoverImageURL
	}
	if p.IsPublic != nil {
		post.IsPublic = *p.IsPublic
	}
	if p.AllowComments != nil {
		post.AllowComments = *p.AllowComments
	}

	post.WordCount = entities.CountWords(post.Content)
	post.ReadingTimeMin = entities.ReadingTime(post.WordCount)
	post.UpdatedAt = time.Now().UTC()

	if err := s.s.UpdatePost(ctx, id, &storage.UpdatePostParams{
		Title:          post.Title,
		Slug:           post.Slug,
		Content:        post.Content,
		Excerpt:        post.Excerpt,
		CoverImageURL:  post.CoverImageURL,
		IsPublic:       post.IsPublic,
		AllowComments:  post.AllowComments,
		WordCount:      post.WordCount,
		ReadingTimeMin: post.ReadingTimeMin,
		UpdatedAt:      post.UpdatedAt,
	}); err != nil {
		return nil, fmt.Errorf("failed to update post on s side: %w", err)
	}

	return post, nil
}

func (s srv) PublishPost(ctx context.Context, owner, id int64) (*entities.Post, error) {
	post, err := s.getOwned(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	// the share token is assigned exactly once, at first publish
	var token *string
	if post.ShareToken == "" {
		t := uuid.NewString()
		token = &t
		post.ShareToken = t
	}

	post.Status = entities.StatusPublished
	post.UpdatedAt = time.Now().UTC()

	if err := s.s.SetPostStatus(ctx, id, entities.StatusPublished, token, post.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to publish post on s side: %w", err)
	}

	return post, nil
}

func (s srv) UnpublishPost(ctx context.Context, owner, id int64) (*entities.Post, error) {
	post, err := s.getOwned(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	post.Status = entities.StatusDraft
	post.UpdatedAt = time.Now().UTC()

	if err := s.s.SetPostStatus(ctx, id, entities.StatusDraft, nil, post.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to unpublish post on s side: %w", err)
	}

	return post, nil
}

func (s srv) DeletePost(ctx context.Context, owner, id int64) error {
	if _, err := s.getOwned(ctx, owner, id); err != nil {
		return err
	}

	if err := s.s.DeletePost(ctx, id); err != nil {
		return fmt.Errorf("failed to delete post on s side: %w", err)
	}

	return nil
}

func (s srv) ToggleFavorite(ctx context.Context, owner, id int64) (*entities.Post, error) {
	if _, err := s.getOwned(ctx, owner, id); err != nil {
		return nil, err
	}

	actor := service.Actor{UserID: &owner}

	if err := s.s.ToggleFavorite(ctx, id, actor.Key()); err != nil {
		return nil, fmt.Errorf("failed to toggle favorite on s side: %w", err)
	}

	post, err := s.s.GetPost(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get post on s side: %w", err)
	}

	return post, nil
}

func (s srv) ListPublicPosts(ctx context.Context) ([]*entities.Post, error) {
	posts, err := s.s.ListPublishedPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list published posts on s side: %w", err)
	}

	return posts, nil
}

func (s srv) GetPublicPost(ctx context.Context, shareToken string, skipView bool) (*entities.Post, error) {
	post, err := s.getPublic(ctx, shareToken)
	if err != nil {
		return nil, err
	}

	if !skipView {
		day := time.Now().UTC().Format(entities.ViewsDayFormat)

		if err := s.s.AddView(ctx, post.ID, day); err != nil {
			return nil, fmt.Errorf("failed to add view on s side: %w", err)
		}

		post.Views[day]++
	}

	return post, nil
}

func (s srv) Like(ctx context.Context, shareToken string, actor service.Actor) (*entities.Post, error) {
	post, err := s.getPublic(ctx, shareToken)
	if err != nil {
		return nil, err
	}

	// a registered user toggles, a guest increments a tally
	if actor.UserID != nil {
		err = s.s.ToggleLike(ctx, post.ID, actor.Key())
	} else {
		err = s.s.IncrementLike(ctx, post.ID, actor.Key())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set like on s side: %w", err)
	}

	post, err = s.s.GetPost(ctx, post.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get post on s side: %w", err)
	}

	return post, nil
}

func (s srv) AddComment(ctx context.Context, shareToken string, actor service.Actor, author, content string, parentID *string) (*entities.Post, error) {
	post, err := s.getPublic(ctx, shareToken)
	if err != nil {
		return nil, err
	}

	if !post.AllowComments {
		return nil, service.ErrCommentsDisabled
	}

	// replies attach to top-level comments only
	if parentID != nil {
		if _, ok := post.Comments[*parentID]; !ok {
			return nil, storage.ErrNotFound
		}
	}

	if author == "" {
		author = "Guest"
	}

	if err := s.s.CreateComment(ctx, &storage.CreateCommentParams{
		ID:        fmt.Sprintf("c-%s", uuid.NewString()),
		PostID:    post.ID,
		ParentID:  parentID,
		Author:    author,
		UserID:    actor.UserID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("failed to create comment on s side: %w", err)
	}

	post, err = s.s.GetPost(ctx, post.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get post on s side: %w", err)
	}

	return post, nil
}

func (s srv) getOwned(ctx context.Context, owner, id int64) (*entities.Post, error) {
	post, err := s.s.GetPost(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get post on s side: %w", err)
	}

	if post.Owner != owner {
		return nil, service.ErrForbidden
	}

	return post, nil
}

func (s srv) getPublic(ctx context.Context, shareToken string) (*entities.Post, error) {
	post, err := s.s.GetPostByShareToken(ctx, shareToken)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get post on s side: %w", err)
	}

	if post.Status != entities.StatusPublished || !post.IsPublic {
		return nil, storage.ErrNotFound
	}

	return post, nil
}

func slugify(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	dash := true // swallow leading dashes
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash {
				b.WriteByte('-')
				dash = true
			}
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}

// New creates new instance of service.
func New(s storage.Storage) service.Service {
	return srv{
		s: s,
	}
}
