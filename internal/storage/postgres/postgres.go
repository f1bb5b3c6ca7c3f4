// Package postgres is implementation of storage interface.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/pranublog/pranublog/internal/entities"
	"github.com/pranublog/pranublog/internal/storage"
)

var log = logrus.WithField("layer", "storage").WithField("package", "postgres")
var errBeginCalledWithinTx = errors.New("can not run InTx within tx")

const foreignKeyViolation = "23503"

type pg struct {
	ext sqlx.ExtContext
}

type postDTO struct {
	ID             int64          `db:"id"`
	Owner          int64          `db:"owner"`
	Title          string         `db:"title"`
	Slug           string         `db:"slug"`
	Content        string         `db:"content"`
	Excerpt        string         `db:"excerpt"`
	CoverImageURL  string         `db:"cover_image_url"`
	Status         string         `db:"status"`
	IsPublic       bool           `db:"is_public"`
	AllowComments  bool           `db:"allow_comments"`
	ShareToken     sql.NullString `db:"share_token"`
	WordCount      int            `db:"word_count"`
	ReadingTimeMin int            `db:"reading_time_min"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

type viewDTO struct {
	PostID int64  `db:"post_id"`
	Day    string `db:"day"`
	Count  int64  `db:"count"`
}

type likeDTO struct {
	PostID  int64  `db:"post_id"`
	Actor   string `db:"actor"`
	Counted bool   `db:"counted"`
	Count   int64  `db:"count"`
	Liked   bool   `db:"liked"`
}

type favoriteDTO struct {
	PostID   int64  `db:"post_id"`
	Actor    string `db:"actor"`
	Favorite bool   `db:"favorite"`
}

type commentDTO struct {
	ID        string         `db:"id"`
	PostID    int64          `db:"post_id"`
	ParentID  sql.NullString `db:"parent_id"`
	Author    string         `db:"author"`
	UserID    sql.NullInt64  `db:"user_id"`
	Content   string         `db:"content"`
	CreatedAt time.Time      `db:"created_at"`
}

const postColumns = `id, owner, title, slug, content, excerpt, cover_image_url, status,
	is_public, allow_comments, share_token, word_count, reading_time_min, created_at, updated_at`

func (s pg) InTx(ctx context.Context, f func(s storage.Storage) error) error {
	db, ok := s.ext.(*sqlx.DB)
	if !ok {
		return errBeginCalledWithinTx
	}

	tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to create tx: %w", err)
	}

	if err := f(pg{ext: tx}); err != nil {
		if err := tx.Rollback(); err != nil {
			log.WithError(err).Error("failed to rollback tx")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tx: %w", err)
	}

	return nil
}

func (s pg) ListPostsByOwner(ctx context.Context, owner int64) ([]*entities.Post, error) {
	var pp []*postDTO

	if err := sqlx.SelectContext(ctx, s.ext, &pp, fmt.Sprintf(`
			SELECT %s FROM post WHERE owner = $1 ORDER BY created_at DESC, id DESC
		`, postColumns),
		owner,
	); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	return s.toPosts(ctx, pp)
}

func (s pg) ListPublishedPosts(ctx context.Context) ([]*entities.Post, error) {
	var pp []*postDTO

	if err := sqlx.SelectContext(ctx, s.ext, &pp, fmt.Sprintf(`
			SELECT %s FROM post
			WHERE status = $1 AND is_public ORDER BY created_at DESC, id DESC
		`, postColumns),
		entities.StatusPublished,
	); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	return s.toPosts(ctx, pp)
}

func (s pg) GetPost(ctx context.Context, id int64) (*entities.Post, error) {
	var p postDTO

	if err := sqlx.GetContext(ctx, s.ext, &p, fmt.Sprintf(`
			SELECT %s FROM post WHERE id = $1
		`, postColumns),
		id,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to query: %w", err)
	}

	return s.toPost(ctx, &p)
}

func (s pg) GetPostByShareToken(ctx context.Context, token string) (*entities.Post, error) {
	var p postDTO

	if err := sqlx.GetContext(ctx, s.ext, &p, fmt.Sprintf(`
			SELECT %s FROM post WHERE share_token = $1
		`, postColumns),
		token,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to query: %w", err)
	}

	return s.toPost(ctx, &p)
}

func (s pg) CreatePost(ctx context.Context, p *storage.CreatePostParams) (*entities.Post, error) {
	var id int64

	if err := sqlx.GetContext(ctx, s.ext, &id, `
			INSERT INTO post(owner, title, slug, content, excerpt, cover_image_url, status,
				is_public, allow_comments, word_count, reading_time_min, created_at, updated_at)
			VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
			RETURNING id
		`,
		p.Owner, p.Title, p.Slug, p.Content, p.Excerpt, p.CoverImageURL, entities.StatusDraft,
		p.IsPublic, p.AllowComments, p.WordCount, p.ReadingTimeMin, p.CreatedAt.UTC(),
	); err != nil {
		return nil, fmt.Errorf("failed to exec: %w", err)
	}

	return &entities.Post{
		ID:             id,
		Owner:          p.Owner,
		Title:          p.Title,
		Slug:           p.Slug,
		Content:        p.Content,
		Excerpt:        p.Excerpt,
		CoverImageURL:  p.CoverImageURL,
		Status:         entities.StatusDraft,
		IsPublic:       p.IsPublic,
		AllowComments:  p.AllowComments,
		Views:          map[string]int64{},
		Likes:          map[string]entities.LikeEntry{},
		Favorites:      map[string]bool{},
		Comments:       map[string]*entities.Comment{},
		WordCount:      p.WordCount,
		ReadingTimeMin: p.ReadingTimeMin,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.CreatedAt,
	}, nil
}

func (s pg) UpdatePost(ctx context.Context, id int64, p *storage.UpdatePostParams) error {
	res, err := s.ext.ExecContext(ctx, `
			UPDATE post SET title=$2, slug=$3, content=$4, excerpt=$5, cover_image_url=$6,
				is_public=$7, allow_comments=$8, word_count=$9, reading_time_min=$10, updated_at=$11
			WHERE id=$1
		`,
		id, p.Title, p.Slug, p.Content, p.Excerpt, p.CoverImageURL,
		p.IsPublic, p.AllowComments, p.WordCount, p.ReadingTimeMin, p.UpdatedAt.UTC(),
	)

	if err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s pg) SetPostStatus(ctx context.Context, id int64, status entities.Status, shareToken *string, timestamp time.Time) error {
	res, err := s.ext.ExecContext(ctx, `
			UPDATE post SET status=$2, share_token=COALESCE($3, share_token), updated_at=$4 WHERE id=$1
		`,
		id, status, shareToken, timestamp.UTC(),
	)

	if err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s pg) DeletePost(ctx context.Context, id int64) error {
	res, err := s.ext.ExecContext(ctx, `DELETE FROM post WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s pg) AddView(ctx context.Context, id int64, day string) error {
	if _, err := s.ext.ExecContext(ctx, `
			INSERT INTO post_view(post_id, day, count) VALUES($1, $2, 1)
			ON CONFLICT(post_id, day) DO UPDATE SET count=post_view.count+1
		`,
		id, day,
	); err != nil {
		if err, ok := err.(*pq.Error); ok && err.Code == foreignKeyViolation {
			return storage.ErrNotFound
		}

		return fmt.Errorf("failed to exec: %w", err)
	}

	return nil
}

func (s pg) IncrementLike(ctx context.Context, id int64, actor string) error {
	if _, err := s.ext.ExecContext(ctx, `
			INSERT INTO post_like(post_id, actor, counted, count, liked)
				VALUES($1, $2, TRUE, 1, FALSE)
			ON CONFLICT(post_id, actor) DO UPDATE SET count=post_like.count+1
		`,
		id, actor,
	); err != nil {
		if err, ok := err.(*pq.Error); ok && err.Code == foreignKeyViolation {
			return storage.ErrNotFound
		}

		return fmt.Errorf("failed to exec: %w", err)
	}

	return nil
}

func (s pg) ToggleLike(ctx context.Context, id int64, actor string) error {
	if _, err := s.ext.ExecContext(ctx, `
			INSERT INTO post_like(post_id, actor, counted, count, liked)
				VALUES($1, $2, FALSE, 0, TRUE)
			ON CONFLICT(post_id, actor) DO UPDATE SET liked=NOT post_like.liked
		`,
		id, actor,
	); err != nil {
		if err, ok := err.(*pq.Error); ok && err.Code == foreignKeyViolation {
			return storage.ErrNotFound
		}

		return fmt.Errorf("failed to exec: %w", err)
	}

	return nil
}

func (s pg) ToggleFavorite(ctx context.Context, id int64, actor string) error {
	if _, err := s.ext.ExecContext(ctx, `
			INSERT INTO post_favorite(post_id, actor, favorite) VALUES($1, $2, TRUE)
			ON CONFLICT(post_id, actor) DO UPDATE SET favorite=NOT post_favorite.favorite
		`,
		id, actor,
	); err != nil {
		if err, ok := err.(*pq.Error); ok && err.Code == foreignKeyViolation {
			return storage.ErrNotFound
		}

		return fmt.Errorf("failed to exec: %w", err)
	}

	return nil
}

func (s pg) CreateComment(ctx context.Context, p *storage.CreateCommentParams) error {
	if _, err := s.ext.ExecContext(ctx, `
			INSERT INTO comment(id, post_id, parent_id, author, user_id, content, created_at)
			VALUES($1, $2, $3, $4, $5, $6, $7)
		`,
		p.ID, p.PostID, p.ParentID, p.Author, p.UserID, p.Content, p.CreatedAt.UTC(),
	); err != nil {
		if err, ok := err.(*pq.Error); ok && err.Code == foreignKeyViolation {
			return storage.ErrNotFound
		}

		return fmt.Errorf("failed to exec: %w", err)
	}

	return nil
}

func (s pg) toPost(ctx context.Context, p *postDTO) (*entities.Post, error) {
	out, err := s.toPosts(ctx, []*postDTO{p})
	if err != nil {
		return nil, err
	}

	return out[0], nil
}

func (s pg) toPosts(ctx context.Context, pp []*postDTO) ([]*entities.Post, error) {
	out := make([]*entities.Post, 0, len(pp))
	byID := make(map[int64]*entities.Post, len(pp))

	for _, v := range pp {
		p := &entities.Post{
			ID:             v.ID,
			Owner:          v.Owner,
			Title:          v.Title,
			Slug:           v.Slug,
			Content:        v.Content,
			Excerpt:        v.Excerpt,
			CoverImageURL:  v.CoverImageURL,
			Status:         entities.Status(v.Status),
			IsPublic:       v.IsPublic,
			AllowComments:  v.AllowComments,
			ShareToken:     v.ShareToken.String,
			Views:          map[string]int64{},
			Likes:          map[string]entities.LikeEntry{},
			Favorites:      map[string]bool{},
			Comments:       map[string]*entities.Comment{},
			WordCount:      v.WordCount,
			ReadingTimeMin: v.ReadingTimeMin,
			CreatedAt:      v.CreatedAt,
			UpdatedAt:      v.UpdatedAt,
		}

		out = append(out, p)
		byID[p.ID] = p
	}

	if len(out) == 0 {
		return out, nil
	}

	ids := make([]int64, 0, len(out))
	for _, v := range out {
		ids = append(ids, v.ID)
	}

	if err := s.loadViews(ctx, byID, ids); err != nil {
		return nil, err
	}

	if err := s.loadLikes(ctx, byID, ids); err != nil {
		return nil, err
	}

	if err := s.loadFavorites(ctx, byID, ids); err != nil {
		return nil, err
	}

	if err := s.loadComments(ctx, byID, ids); err != nil {
		return nil, err
	}

	return out, nil
}

func (s pg) loadViews(ctx context.Context, byID map[int64]*entities.Post, ids []int64) error {
	query, args, err := sqlx.In(`SELECT post_id, day, count FROM post_view WHERE post_id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("failed to construct IN clause: %w", err)
	}

	var vv []*viewDTO
	if err := sqlx.SelectContext(ctx, s.ext, &vv, s.ext.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to query views: %w", err)
	}

	for _, v := range vv {
		byID[v.PostID].Views[v.Day] = v.Count
	}

	return nil
}

func (s pg) loadLikes(ctx context.Context, byID map[int64]*entities.Post, ids []int64) error {
	query, args, err := sqlx.In(`SELECT post_id, actor, counted, count, liked FROM post_like WHERE post_id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("failed to construct IN clause: %w", err)
	}

	var ll []*likeDTO
	if err := sqlx.SelectContext(ctx, s.ext, &ll, s.ext.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to query likes: %w", err)
	}

	for _, v := range ll {
		e := entities.LikeEntry{Kind: entities.LikeToggled, Liked: v.Liked}
		if v.Counted {
			e = entities.LikeEntry{Kind: entities.LikeCounted, Count: v.Count}
		}

		byID[v.PostID].Likes[v.Actor] = e
	}

	return nil
}

func (s pg) loadFavorites(ctx context.Context, byID map[int64]*entities.Post, ids []int64) error {
	query, args, err := sqlx.In(`SELECT post_id, actor, favorite FROM post_favorite WHERE post_id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("failed to construct IN clause: %w", err)
	}

	var ff []*favoriteDTO
	if err := sqlx.SelectContext(ctx, s.ext, &ff, s.ext.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to query favorites: %w", err)
	}

	for _, v := range ff {
		byID[v.PostID].Favorites[v.Actor] = v.Favorite
	}

	return nil
}

func (s pg) loadComments(ctx context.Context, byID map[int64]*entities.Post, ids []int64) error {
	query, args, err := sqlx.In(`
			SELECT id, post_id, parent_id, author, user_id, content, created_at
			FROM comment WHERE post_id IN (?) ORDER BY created_at, id
		`, ids)
	if err != nil {
		return fmt.Errorf("failed to construct IN clause: %w", err)
	}

	var cc []*commentDTO
	if err := sqlx.SelectContext(ctx, s.ext, &cc, s.ext.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to query comments: %w", err)
	}

	comments := make(map[string]*entities.Comment, len(cc))
	for _, v := range cc {
		c := &entities.Comment{
			ID:        v.ID,
			Author:    v.Author,
			Content:   v.Content,
			CreatedAt: v.CreatedAt,
		}
		if v.UserID.Valid {
			id := v.UserID.Int64
			c.UserID = &id
		}

		comments[c.ID] = c
	}

	// rows are ordered by created_at, so replies attach in order
	for _, v := range cc {
		if v.ParentID.Valid {
			if parent, ok := comments[v.ParentID.String]; ok {
				parent.Replies = append(parent.Replies, comments[v.ID])
			}
			continue
		}

		byID[v.PostID].Comments[v.ID] = comments[v.ID]
	}

	return nil
}

// New creates new instance of pg.
func New(db *sql.DB) storage.Storage {
	return pg{
		ext: sqlx.NewDb(db, "postgres"),
	}
}
