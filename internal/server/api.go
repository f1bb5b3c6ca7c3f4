package server

import (
	"time"

	"github.com/pranublog/pranublog/internal/dashboard"
	"github.com/pranublog/pranublog/internal/entities"
)

const maxPageSize = 100
const defaultPageSize = 10

// Error ...
// swagger:model
type Error struct {
	Error string `json:"error"`
}

// PostMetrics ...
type PostMetrics struct {
	ReadingTimeMin int `json:"readingTimeMin"`
	WordCount      int `json:"wordCount"`
}

// Comment ...
type Comment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	UserID    *int64    `json:"userId,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	Replies   []Comment `json:"replies"`
}

// Post ...
// swagger:model
type Post struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Slug          string `json:"slug"`
	ShareToken    string `json:"shareToken,omitempty"`
	Content       string `json:"content"`
	Excerpt       string `json:"excerpt"`
	CoverImageURL string `json:"coverImageUrl"`
	Status        string `json:"status"`
	IsPublic      bool   `json:"isPublic"`
	AllowComments bool   `json:"allowComments"`
	// Views is a views ledger where key is a day and value is a count.
	Views map[string]int64 `json:"views"`
	// Likes is a likes ledger where a guest entry is a number and a user entry is a boolean.
	Likes     map[string]interface{} `json:"likes"`
	Favorites map[string]bool        `json:"favorites"`
	Comments  map[string]Comment     `json:"comments"`
	Metrics   PostMetrics            `json:"metrics"`
	CreatedAt time.Time              `json:"createdAt"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

// SummaryMetrics ...
type SummaryMetrics struct {
	Views    int64 `json:"views"`
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
}

// PostSummary ...
type PostSummary struct {
	ID            int64          `json:"id"`
	Title         string         `json:"title"`
	Slug          string         `json:"slug"`
	ShareToken    string         `json:"shareToken,omitempty"`
	Excerpt       string         `json:"excerpt"`
	CoverImageURL string         `json:"coverImageUrl"`
	Status        string         `json:"status"`
	IsPublic      bool           `json:"isPublic"`
	AllowComments bool           `json:"allowComments"`
	Metrics       SummaryMetrics `json:"metrics"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// Page is a pagination envelope.
type Page struct {
	Content       []PostSummary `json:"content"`
	PageNumber    int           `json:"pageNumber"`
	PageSize      int           `json:"pageSize"`
	TotalElements int           `json:"totalElements"`
	TotalPages    int           `json:"totalPages"`
	First         bool          `json:"first"`
	Last          bool          `json:"last"`
	Empty         bool          `json:"empty"`
}

// DashboardResponse ...
// swagger:model
type DashboardResponse struct {
	TotalPosts     int64 `json:"totalPosts"`
	PublishedPosts int64 `json:"publishedPosts"`
	DraftPosts     int64 `json:"draftPosts"`
	TotalViews     int64 `json:"totalViews"`
	TotalLikes     int64 `json:"totalLikes"`
	TotalComments  int64 `json:"totalComments"`
	TotalFavorites int64 `json:"totalFavorites"`
	RecentPosts    Page  `json:"recentPosts"`
	FilteredPosts  Page  `json:"filteredPosts"`
}

// CreatePostRequest ...
type CreatePostRequest struct {
	Title         string `json:"title"`
	Content       string `json:"content"`
	Excerpt       string `json:"excerpt"`
	CoverImageURL string `json:"coverImageUrl"`
	IsPublic      bool   `json:"isPublic"`
	AllowComments *bool  `json:"allowComments"`
}

// UpdatePostRequest ...
type UpdatePostRequest struct {
	Title         *string `json:"title"`
	Content       *string `json:"content"`
	Excerpt       *string `json:"excerpt"`
	CoverImageURL *string `json:"coverImageUrl"`
	IsPublic      *bool   `json:"isPublic"`
	AllowComments *bool   `json:"allowComments"`
}

// CommentRequest ...
type CommentRequest struct {
	GuestName       string  `json:"guestName"`
	GuestIdentifier string  `json:"guestIdentifier"`
	Content         string  `json:"content"`
	ParentCommentID *string `json:"parentCommentId"`
}

func toAPIPost(p *entities.Post) *Post {
	if p == nil {
		return nil
	}

	likes := make(map[string]interface{}, len(p.Likes))
	for k, v := range p.Likes {
		if v.Kind == entities.LikeCounted {
			likes[k] = v.Count
		} else {
			likes[k] = v.Liked
		}
	}

	comments := make(map[string]Comment, len(p.Comments))
	for k, v := range p.Comments {
		comments[k] = toAPIComment(v)
	}

	return &Post{
		ID:            p.ID,
		Title:         p.Title,
		Slug:          p.Slug,
		ShareToken:    p.ShareToken,
		Content:       p.Content,
		Excerpt:       p.Excerpt,
		CoverImageURL: p.CoverImageURL,
		Status:        string(p.Status),
		IsPublic:      p.IsPublic,
		AllowComments: p.AllowComments,
		Views:         p.Views,
		Likes:         likes,
		Favorites:     p.Favorites,
		Comments:      comments,
		Metrics: PostMetrics{
			ReadingTimeMin: p.ReadingTimeMin,
			WordCount:      p.WordCount,
		},
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func toAPIComment(c *entities.Comment) Comment {
	replies := make([]Comment, 0, len(c.Replies))
	for _, v := range c.Replies {
		replies = append(replies, toAPIComment(v))
	}

	return Comment{
		ID:        c.ID,
		Author:    c.Author,
		UserID:    c.UserID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
		Replies:   replies,
	}
}

func toAPIPage(p *dashboard.Page) Page {
	content := make([]PostSummary, 0, len(p.Content))
	for _, v := range p.Content {
		content = append(content, PostSummary{
			ID:            v.ID,
			Title:         v.Title,
			Slug:          v.Slug,
			ShareToken:    v.ShareToken,
			Excerpt:       v.Excerpt,
			CoverImageURL: v.CoverImageURL,
			Status:        string(v.Status),
			IsPublic:      v.IsPublic,
			AllowComments: v.AllowComments,
			Metrics: SummaryMetrics{
				Views:    v.Metrics.Views,
				Likes:    v.Metrics.Likes,
				Comments: v.Metrics.Comments,
			},
			CreatedAt: v.CreatedAt,
			UpdatedAt: v.UpdatedAt,
		})
	}

	return Page{
		Content:       content,
		PageNumber:    p.PageNumber,
		PageSize:      p.PageSize,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
		First:         p.First,
		Last:          p.Last,
		Empty:         p.Empty,
	}
}

func newDashboardResponse(r *dashboard.Response) DashboardResponse {
	return DashboardResponse{
		TotalPosts:     r.Metrics.TotalPosts,
		PublishedPosts: r.Metrics.PublishedPosts,
		DraftPosts:     r.Metrics.DraftPosts,
		TotalViews:     r.Metrics.TotalViews,
		TotalLikes:     r.Metrics.TotalLikes,
		TotalComments:  r.Metrics.TotalComments,
		TotalFavorites: r.Metrics.TotalFavorites,
		RecentPosts:    toAPIPage(r.RecentPosts),
		FilteredPosts:  toAPIPage(r.FilteredPosts),
	}
}

func toAPIPosts(pp []*entities.Post) []*Post {
	out := make([]*Post, 0, len(pp))
	for _, v := range pp {
		out = append(out, toAPIPost(v))
	}

	return out
}
