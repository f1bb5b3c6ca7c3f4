// Package dashboard contains pure computations behind the author's dashboard:
// metrics aggregation and the filter/sort/paginate engine.
package dashboard

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pranublog/pranublog/internal/entities"
)

// ErrInvalidQuery returned when pagination parameters are out of range.
var ErrInvalidQuery = errors.New("invalid query")

// SortType ...
type SortType string

const (
	// RecentSortType ...
	RecentSortType SortType = "RECENT"
	// TopViewsSortType ...
	TopViewsSortType SortType = "TOP_VIEWS"
	// TopLikesSortType ...
	TopLikesSortType SortType = "TOP_LIKES"
	// TopCommentsSortType ...
	TopCommentsSortType SortType = "TOP_COMMENTS"
)

// Params ...
type Params struct {
	Page          int
	PageSize      int
	Search        string
	Status        *entities.Status
	From          *time.Time
	To            *time.Time
	FavoritesOnly bool
	SortBy        SortType
}

// Validate checks pagination parameters.
func (p *Params) Validate() error {
	if p.PageSize <= 0 {
		return fmt.Errorf("%w: page size must be positive", ErrInvalidQuery)
	}

	if p.Page < 0 {
		return fmt.Errorf("%w: page must be non-negative", ErrInvalidQuery)
	}

	return nil
}

// Metrics is per-owner totals over the full post collection.
type Metrics struct {
	TotalPosts     int64
	PublishedPosts int64
	DraftPosts     int64
	TotalViews     int64
	TotalLikes     int64
	TotalComments  int64
	TotalFavorites int64
}

// SummaryMetrics is derived per-post counters, computed fresh at query time.
type SummaryMetrics struct {
	Views    int64
	Likes    int64
	Comments int64
}

// PostSummary is a trimmed projection of a post for paginated listings.
type PostSummary struct {
	ID            int64
	Title         string
	Slug          string
	ShareToken    string
	Excerpt       string
	CoverImageURL string
	Status        entities.Status
	IsPublic      bool
	AllowComments bool
	Metrics       SummaryMetrics
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Page is a pagination envelope.
type Page struct {
	Content       []PostSummary
	PageNumber    int
	PageSize      int
	TotalElements int
	TotalPages    int
	First         bool
	Last          bool
	Empty         bool
}

// Response is a merged dashboard response. Both collections are always
// computed, the filtered-empty fallback belongs to the caller.
type Response struct {
	Metrics       Metrics
	RecentPosts   *Page
	FilteredPosts *Page
}

// Aggregate computes per-owner totals over the full post collection.
func Aggregate(posts []*entities.Post) Metrics {
	out := Metrics{
		TotalPosts: int64(len(posts)),
	}

	for _, p := range posts {
		switch p.Status {
		case entities.StatusPublished:
			out.PublishedPosts++
		case entities.StatusDraft:
			out.DraftPosts++
		}

		out.TotalViews += p.ViewCount()
		out.TotalLikes += p.LikeCount()
		out.TotalComments += p.CommentCount()
		out.TotalFavorites += p.FavoriteCount()
	}

	return out
}

// Query filters, sorts and paginates the post collection. Filter runs before
// sort, sort before pagination, the order matters for correctness. The sort is
// stable, ties keep the input order.
func Query(posts []*entities.Post, p *Params) (*Page, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	filtered := filter(posts, p)

	sort.SliceStable(filtered, less(p.SortBy, filtered))

	total := len(filtered)
	totalPages := (total + p.PageSize - 1) / p.PageSize
	if totalPages < 1 {
		totalPages = 1
	}

	start := p.Page * p.PageSize
	if start > total {
		start = total
	}
	end := start + p.PageSize
	if end > total {
		end = total
	}

	content := make([]PostSummary, 0, end-start)
	for _, v := range filtered[start:end] {
		content = append(content, newPostSummary(v))
	}

	return &Page{
		Content:       content,
		PageNumber:    p.Page,
		PageSize:      p.PageSize,
		TotalElements: total,
		TotalPages:    totalPages,
		First:         p.Page == 0,
		Last:          p.Page >= totalPages-1,
		Empty:         len(content) == 0,
	}, nil
}

func filter(posts []*entities.Post, p *Params) []*entities.Post {
	out := make([]*entities.Post, 0, len(posts))

	search := strings.ToLower(p.Search)

	for _, v := range posts {
		if search != "" &&
			!strings.Contains(strings.ToLower(v.Title), search) &&
			!strings.Contains(strings.ToLower(v.Content), search) {
			continue
		}

		if p.Status != nil && v.Status != *p.Status {
			continue
		}

		if p.From != nil && v.CreatedAt.Before(*p.From) {
			continue
		}

		if p.To != nil && v.CreatedAt.After(*p.To) {
			continue
		}

		if p.FavoritesOnly && !v.IsFavorite() {
			continue
		}

		out = append(out, v)
	}

	return out
}

func less(s SortType, posts []*entities.Post) func(i, j int) bool {
	switch s {
	case TopViewsSortType:
		return func(i, j int) bool { return posts[i].ViewCount() > posts[j].ViewCount() }
	case TopLikesSortType:
		return func(i, j int) bool { return posts[i].LikeCount() > posts[j].LikeCount() }
	case TopCommentsSortType:
		return func(i, j int) bool { return posts[i].CommentCount() > posts[j].CommentCount() }
	default:
		return func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) }
	}
}

func newPostSummary(p *entities.Post) PostSummary {
	return PostSummary{
		ID:            p.ID,
		Title:         p.Title,
		Slug:          p.Slug,
		ShareToken:    p.ShareToken,
		Excerpt:       p.Excerpt,
		CoverImageURL: p.CoverImageURL,
		Status:        p.Status,
		IsPublic:      p.IsPublic,
		AllowComments: p.AllowComments,
		Metrics: SummaryMetrics{
			Views:    p.ViewCount(),
			Likes:    p.LikeCount(),
			Comments: p.CommentCount(),
		},
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
