package dashboard

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pranublog/pranublog/internal/entities"
)

func newPost(id int64, status entities.Status, createdAt time.Time) *entities.Post {
	return &entities.Post{
		ID:        id,
		Owner:     1,
		Title:     "title",
		Status:    status,
		Views:     map[string]int64{},
		Likes:     map[string]entities.LikeEntry{},
		Favorites: map[string]bool{},
		Comments:  map[string]*entities.Comment{},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestAggregate_Empty(t *testing.T) {
	require.Zero(t, Aggregate(nil))
	require.Zero(t, Aggregate([]*entities.Post{}))
}

func TestAggregate(t *testing.T) {
	timestamp := time.Unix(100, 0)

	p1 := newPost(1, entities.StatusPublished, timestamp)
	p1.Views = map[string]int64{"2025-11-20": 10, "2025-11-21": 20}
	p1.Likes = map[string]entities.LikeEntry{
		"guest":  {Kind: entities.LikeCounted, Count: 15},
		"user_1": {Kind: entities.LikeToggled, Liked: true},
		"user_2": {Kind: entities.LikeToggled, Liked: false},
	}
	p1.Favorites = map[string]bool{"user_1": true, "user_2": false}
	p1.Comments = map[string]*entities.Comment{
		"c1": {ID: "c1", Replies: []*entities.Comment{{ID: "c1-r1"}}},
		"c2": {ID: "c2"},
	}

	p2 := newPost(2, entities.StatusPublished, timestamp)
	p2.Views = map[string]int64{"2025-11-22": 5}

	p3 := newPost(3, entities.StatusDraft, timestamp)

	m := Aggregate([]*entities.Post{p1, p2, p3})

	assert.EqualValues(t, 3, m.TotalPosts)
	assert.EqualValues(t, 2, m.PublishedPosts)
	assert.EqualValues(t, 1, m.DraftPosts)
	assert.EqualValues(t, 35, m.TotalViews)
	// 15 counted + 1 toggled-on, toggled-off contributes nothing
	assert.EqualValues(t, 16, m.TotalLikes)
	// replies are not counted
	assert.EqualValues(t, 2, m.TotalComments)
	assert.EqualValues(t, 1, m.TotalFavorites)
}

func TestQuery_InvalidParams(t *testing.T) {
	tt := []struct {
		name string
		p    Params
	}{
		{
			name: "zero page size",
			p:    Params{Page: 0, PageSize: 0},
		},
		{
			name: "negative page size",
			p:    Params{Page: 0, PageSize: -1},
		},
		{
			name: "negative page",
			p:    Params{Page: -1, PageSize: 10},
		},
	}

	for i := range tt {
		tc := tt[i]

		t.Run(tc.name, func(t *testing.T) {
			out, err := Query(nil, &tc.p)
			require.Nil(t, out)
			require.True(t, errors.Is(err, ErrInvalidQuery))
		})
	}
}

func TestQuery_Pagination(t *testing.T) {
	posts := make([]*entities.Post, 0, 5)
	for i := int64(1); i <= 5; i++ {
		posts = append(posts, newPost(i, entities.StatusPublished, time.Unix(100*i, 0)))
	}

	tt := []struct {
		name string
		p    Params

		ids        []int64
		totalPages int
		first      bool
		last       bool
		empty      bool
	}{
		{
			name:       "first page",
			p:          Params{Page: 0, PageSize: 2},
			ids:        []int64{5, 4},
			totalPages: 3,
			first:      true,
		},
		{
			name:       "middle page",
			p:          Params{Page: 1, PageSize: 2},
			ids:        []int64{3, 2},
			totalPages: 3,
		},
		{
			name:       "last short page",
			p:          Params{Page: 2, PageSize: 2},
			ids:        []int64{1},
			totalPages: 3,
			last:       true,
		},
		{
			name:       "page beyond range",
			p:          Params{Page: 5, PageSize: 2},
			ids:        []int64{},
			totalPages: 3,
			last:       true,
			empty:      true,
		},
		{
			name:       "single page fits all",
			p:          Params{Page: 0, PageSize: 10},
			ids:        []int64{5, 4, 3, 2, 1},
			totalPages: 1,
			first:      true,
			last:       true,
		},
	}

	for i := range tt {
		tc := tt[i]

		t.Run(tc.name, func(t *testing.T) {
			out, err := Query(posts, &tc.p)
			require.NoError(t, err)

			ids := make([]int64, 0, len(out.Content))
			for _, v := range out.Content {
				ids = append(ids, v.ID)
			}

			assert.Equal(t, tc.ids, ids)
			assert.Equal(t, 5, out.TotalElements)
			assert.Equal(t, tc.totalPages, out.TotalPages)
			assert.Equal(t, tc.p.Page, out.PageNumber)
			assert.Equal(t, tc.p.PageSize, out.PageSize)
			assert.Equal(t, tc.first, out.First)
			assert.Equal(t, tc.last, out.Last)
			assert.Equal(t, tc.empty, out.Empty)
			assert.LessOrEqual(t, len(out.Content), tc.p.PageSize)
		})
	}
}

func TestQuery_EmptyCollection(t *testing.T) {
	out, err := Query(nil, &Params{Page: 0, PageSize: 10})
	require.NoError(t, err)

	assert.Empty(t, out.Content)
	assert.Equal(t, 0, out.TotalElements)
	assert.Equal(t, 1, out.TotalPages)
	assert.True(t, out.First)
	assert.True(t, out.Last)
	assert.True(t, out.Empty)
}

func TestQuery_SortTopViews(t *testing.T) {
	timestamp := time.Unix(100, 0)

	p1 := newPost(1, entities.StatusPublished, timestamp)
	p1.Views = map[string]int64{"2025-11-20": 5}
	p2 := newPost(2, entities.StatusPublished, timestamp)
	p2.Views = map[string]int64{"2025-11-20": 10, "2025-11-21": 25}
	p3 := newPost(3, entities.StatusDraft, timestamp)

	out, err := Query([]*entities.Post{p1, p2, p3}, &Params{Page: 0, PageSize: 2, SortBy: TopViewsSortType})
	require.NoError(t, err)

	require.Len(t, out.Content, 2)
	assert.EqualValues(t, 2, out.Content[0].ID)
	assert.EqualValues(t, 35, out.Content[0].Metrics.Views)
	assert.EqualValues(t, 1, out.Content[1].ID)
	assert.EqualValues(t, 5, out.Content[1].Metrics.Views)
	assert.Equal(t, 3, out.TotalElements)
	assert.Equal(t, 2, out.TotalPages)
}

func TestQuery_SortOrders(t *testing.T) {
	timestamp := time.Unix(100, 0)

	posts := make([]*entities.Post, 0, 4)
	for i := int64(1); i <= 4; i++ {
		p := newPost(i, entities.StatusPublished, timestamp.Add(time.Duration(i)*time.Hour))
		p.Views = map[string]int64{"2025-11-20": i * 3}
		p.Likes = map[string]entities.LikeEntry{"guest": {Kind: entities.LikeCounted, Count: 10 - i}}
		for j := int64(0); j < i; j++ {
			c := &entities.Comment{ID: string(rune('a' + j))}
			p.Comments[c.ID] = c
		}
		posts = append(posts, p)
	}

	tt := []struct {
		name   string
		sortBy SortType
		metric func(s PostSummary) int64
	}{
		{
			name:   "top views",
			sortBy: TopViewsSortType,
			metric: func(s PostSummary) int64 { return s.Metrics.Views },
		},
		{
			name:   "top likes",
			sortBy: TopLikesSortType,
			metric: func(s PostSummary) int64 { return s.Metrics.Likes },
		},
		{
			name:   "top comments",
			sortBy: TopCommentsSortType,
			metric: func(s PostSummary) int64 { return s.Metrics.Comments },
		},
	}

	for i := range tt {
		tc := tt[i]

		t.Run(tc.name, func(t *testing.T) {
			out, err := Query(posts, &Params{Page: 0, PageSize: 10, SortBy: tc.sortBy})
			require.NoError(t, err)
			require.Len(t, out.Content, 4)

			for i := 1; i < len(out.Content); i++ {
				assert.GreaterOrEqual(t, tc.metric(out.Content[i-1]), tc.metric(out.Content[i]))
			}
		})
	}
}

func TestQuery_SortStableTies(t *testing.T) {
	timestamp := time.Unix(100, 0)

	// same view sums, input order must survive
	posts := []*entities.Post{
		newPost(7, entities.StatusPublished, timestamp),
		newPost(3, entities.StatusPublished, timestamp),
		newPost(5, entities.StatusPublished, timestamp),
	}

	out, err := Query(posts, &Params{Page: 0, PageSize: 10, SortBy: TopViewsSortType})
	require.NoError(t, err)

	require.Len(t, out.Content, 3)
	assert.EqualValues(t, 7, out.Content[0].ID)
	assert.EqualValues(t, 3, out.Content[1].ID)
	assert.EqualValues(t, 5, out.Content[2].ID)
}

func TestQuery_FilterSearch(t *testing.T) {
	timestamp := time.Unix(100, 0)

	p1 := newPost(1, entities.StatusPublished, timestamp)
	p1.Title = "Getting Started with React"
	p2 := newPost(2, entities.StatusPublished, timestamp)
	p2.Title = "TypeScript Best Practices"

	out, err := Query([]*entities.Post{p1, p2}, &Params{Page: 0, PageSize: 10, Search: "react"})
	require.NoError(t, err)

	require.Len(t, out.Content, 1)
	assert.EqualValues(t, 1, out.Content[0].ID)

	// content body is searched too
	p2.Content = "react hooks in depth"
	out, err = Query([]*entities.Post{p1, p2}, &Params{Page: 0, PageSize: 10, Search: "REACT"})
	require.NoError(t, err)
	require.Len(t, out.Content, 2)
}

func TestQuery_Filters(t *testing.T) {
	draft := entities.StatusDraft
	published := entities.StatusPublished

	from := time.Date(2025, 11, 21, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 11, 22, 0, 0, 0, 0, time.UTC)

	p1 := newPost(1, entities.StatusPublished, time.Date(2025, 11, 20, 9, 0, 0, 0, time.UTC))
	p1.Favorites = map[string]bool{"user_1": true}
	p2 := newPost(2, entities.StatusDraft, time.Date(2025, 11, 21, 9, 0, 0, 0, time.UTC))
	p3 := newPost(3, entities.StatusPublished, time.Date(2025, 11, 22, 0, 0, 0, 0, time.UTC))

	posts := []*entities.Post{p1, p2, p3}

	tt := []struct {
		name string
		p    Params
		ids  []int64
	}{
		{
			name: "status draft",
			p:    Params{Page: 0, PageSize: 10, Status: &draft},
			ids:  []int64{2},
		},
		{
			name: "from is inclusive lower bound",
			p:    Params{Page: 0, PageSize: 10, From: &from},
			ids:  []int64{3, 2},
		},
		{
			name: "to is inclusive upper bound",
			p:    Params{Page: 0, PageSize: 10, To: &to},
			ids:  []int64{3, 2, 1},
		},
		{
			name: "favorites only",
			p:    Params{Page: 0, PageSize: 10, FavoritesOnly: true},
			ids:  []int64{1},
		},
		{
			name: "predicates intersect",
			p:    Params{Page: 0, PageSize: 10, Status: &published, From: &from},
			ids:  []int64{3},
		},
		{
			name: "no matches is empty page, not an error",
			p:    Params{Page: 0, PageSize: 10, Search: "no such thing"},
			ids:  []int64{},
		},
	}

	for i := range tt {
		tc := tt[i]

		t.Run(tc.name, func(t *testing.T) {
			out, err := Query(posts, &tc.p)
			require.NoError(t, err)

			ids := make([]int64, 0, len(out.Content))
			for _, v := range out.Content {
				ids = append(ids, v.ID)
			}

			assert.Equal(t, tc.ids, ids)
		})
	}
}

func TestQuery_Idempotent(t *testing.T) {
	posts := make([]*entities.Post, 0, 10)
	for i := int64(1); i <= 10; i++ {
		p := newPost(i, entities.StatusPublished, time.Unix(100*i, 0))
		p.Views = map[string]int64{"2025-11-20": i % 3}
		posts = append(posts, p)
	}

	p := Params{Page: 1, PageSize: 3, SortBy: TopViewsSortType}

	first, err := Query(posts, &p)
	require.NoError(t, err)
	second, err := Query(posts, &p)
	require.NoError(t, err)

	require.Equal(t, first, second)
}
