//go:build integration
// +build integration

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	m "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pranublog/pranublog/internal/entities"
	"github.com/pranublog/pranublog/internal/storage"
)

var (
	db  *sql.DB
	ctx = context.Background()
	s   storage.Storage
)

func TestMain(m *testing.M) {
	shutdown := setup()

	s = New(db)

	code := m.Run()
	shutdown()
	os.Exit(code)
}

func setup() func() {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:12",
		Env:          map[string]string{"POSTGRES_PASSWORD": "root"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp"),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
	})
	if err != nil {
		logrus.WithError(err).Fatalf("failed to create container")
	}

	if err := c.Start(ctx); err != nil {
		logrus.WithError(err).Fatal("failed to start container")
	}

	host, err := c.Host(ctx)
	if err != nil {
		logrus.WithError(err).Fatal("failed to get host")
	}

	port, err := c.MappedPort(ctx, "5432")
	if err != nil {
		logrus.WithError(err).Fatal("failed to map port")
	}

	dsn := fmt.Sprintf("host=%s port=%d user=postgres password=root sslmode=disable", host, port.Int())

	db, err = sql.Open("postgres", dsn)
	if err != nil {
		logrus.WithError(err).Fatal("failed to open connection")
	}

	if err := db.Ping(); err != nil {
		logrus.WithError(err).Fatal("failed to ping postgres")
	}

	shutdownFn := func() {
		if c != nil {
			c.Terminate(ctx)
		}
	}

	migrateDB("postgres", "root", host, "postgres", port.Int())

	return shutdownFn
}

func migrateDB(username, password, hostname, dbname string, port int) {
	_, currFile, _, ok := runtime.Caller(0)
	if !ok {
		logrus.Fatal("failed to get current file location")
	}

	migrations := filepath.Join(currFile, "../../../../migrations/postgres/")

	migrator, err := m.New(
		fmt.Sprintf("file://%s", migrations),
		fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
			username, password, hostname, port, dbname),
	)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create migrator")
	}
	defer migrator.Close()

	if err := migrator.Up(); err != nil {
		logrus.WithError(err).Fatal("failed to migrate")
	}
}

func cleanup(t *testing.T) {
	_, err := db.ExecContext(ctx, `DELETE FROM post`)
	require.NoError(t, err)
}

func createPost(t *testing.T, owner int64) *entities.Post {
	p, err := s.CreatePost(ctx, &storage.CreatePostParams{
		Owner:          owner,
		Title:          "title",
		Slug:           fmt.Sprintf("title-%d", time.Now().UnixNano()),
		Content:        "one two three",
		Excerpt:        "excerpt",
		CoverImageURL:  "cover",
		IsPublic:       true,
		AllowComments:  true,
		WordCount:      3,
		ReadingTimeMin: 1,
		CreatedAt:      time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NotZero(t, p.ID)

	return p
}

func TestPg_CreatePost(t *testing.T) {
	defer cleanup(t)

	p := createPost(t, 1)

	assert.Equal(t, entities.StatusDraft, p.Status)
	assert.Empty(t, p.ShareToken)
	assert.Empty(t, p.Views)
	assert.Empty(t, p.Likes)
	assert.Empty(t, p.Favorites)
	assert.Empty(t, p.Comments)

	got, err := s.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Title, got.Title)
	assert.Equal(t, p.Slug, got.Slug)
	assert.Equal(t, int64(1), got.Owner)
}

func TestPg_GetPost_NotFound(t *testing.T) {
	defer cleanup(t)

	_, err := s.GetPost(ctx, 12345)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestPg_UpdatePost(t *testing.T) {
	defer cleanup(t)

	p := createPost(t, 1)

	require.NoError(t, s.UpdatePost(ctx, p.ID, &storage.UpdatePostParams{
		Title:          "new title",
		Slug:           "new-title-1",
		Content:        "longer content with more words",
		Excerpt:        "new excerpt",
		CoverImageURL:  "new cover",
		IsPublic:       false,
		AllowComments:  false,
		WordCount:      5,
		ReadingTimeMin: 1,
		UpdatedAt:      time.Now().UTC(),
	}))

	got, err := s.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "new title", got.Title)
	assert.Equal(t, "new-title-1", got.Slug)
	assert.False(t, got.IsPublic)
	assert.False(t, got.AllowComments)
	assert.Equal(t, 5, got.WordCount)

	assert.True(t, errors.Is(s.UpdatePost(ctx, 12345, &storage.UpdatePostParams{}), storage.ErrNotFound))
}

func TestPg_SetPostStatus(t *testing.T) {
	defer cleanup(t)

	p := createPost(t, 1)

	token := "token"
	require.NoError(t, s.SetPostStatus(ctx, p.ID, entities.StatusPublished, &token, time.Now().UTC()))

	got, err := s.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusPublished, got.Status)
	assert.Equal(t, "token", got.ShareToken)

	// nil token keeps the assigned one
	require.NoError(t, s.SetPostStatus(ctx, p.ID, entities.StatusDraft, nil, time.Now().UTC()))

	got, err = s.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusDraft, got.Status)
	assert.Equal(t, "token", got.ShareToken)
}

func TestPg_GetPostByShareToken(t *testing.T) {
	defer cleanup(t)

	p := createPost(t, 1)

	token := "token"
	require.NoError(t, s.SetPostStatus(ctx, p.ID, entities.StatusPublished, &token, time.Now().UTC()))

	got, err := s.GetPostByShareToken(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = s.GetPostByShareToken(ctx, "unknown")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestPg_ListPostsByOwner(t *testing.T) {
	defer cleanup(t)

	createPost(t, 1)
	createPost(t, 1)
	createPost(t, 2)

	pp, err := s.ListPostsByOwner(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, pp, 2)

	pp, err = s.ListPostsByOwner(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, pp)
}

func TestPg_ListPublishedPosts(t *testing.T) {
	defer cleanup(t)

	p := createPost(t, 1)
	createPost(t, 1)

	token := "token"
	require.NoError(t, s.SetPostStatus(ctx, p.ID, entities.StatusPublished, &token, time.Now().UTC()))

	pp, err := s.ListPublishedPosts(ctx)
	require.NoError(t, err)
	require.Len(t, pp, 1)
	assert.Equal(t, p.ID, pp[0].ID)
}

func TestPg_AddView(t *testing.T) {
	defer cleanup(t)

	p := createPost(t, 1)

	require.NoError(t, s.AddView(ctx, p.ID, "2024-01-10"))
	require.NoError(t, s.AddView(ctx, p.ID, "2024-01-10"))
	require.NoError(t, s.AddView(ctx, p.ID, "2024-01-11"))

	got, err := s.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"2024-01-10": 2, "2024-01-11": 1}, got.Views)

	assert.True(t, errors.Is(s.AddView(ctx, 12345, "2024-01-10"), storage.ErrNotFound))
}

func TestPg_IncrementLike(t *testing.T) {
	defer cleanup(t)

	p := createPost(t, 1)

	require.NoError(t, s.IncrementLike(ctx, p.ID, "guest_10.0.0.1"))
	require.NoError(t, s.IncrementLike(ctx, p.ID, "guest_10.0.0.1"))

	got, err := s.GetPost(ctx, p.ID)
	require.NoError(t, err)
	require.Contains(t, got.Likes, "guest_10.0.0.1")
	assert.Equal(t, entities.LikeEntry{Kind: entities.LikeCounted, Count: 2}, got.Likes["guest_10.0.0.1"])
}

func TestPg_ToggleLike(t *testing.T) {
	defer cleanup(t)

	p := createPost(t, 1)

	require.NoError(t, s.ToggleLike(ctx, p.ID, "user_7"))

	got, err := s.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.LikeEntry{Kind: entities.LikeToggled, Liked: true}, got.Likes["user_7"])

	require.NoError(t, s.ToggleLike(ctx, p.ID, "user_7"))

	got, err = s.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.LikeEntry{Kind: entities.LikeToggled, Liked: false}, got.Likes["user_7"])
}

func TestPg_ToggleFavorite(t *testing.T) {
	defer cleanup(t)

	p := createPost(t, 1)

	require.NoError(t, s.ToggleFavorite(ctx, p.ID, "user_1"))

	got, err := s.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.Favorites["user_1"])
	assert.True(t, got.IsFavorite())

	require.NoError(t, s.ToggleFavorite(ctx, p.ID, "user_1"))

	got, err = s.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, got.Favorites["user_1"])
	assert.False(t, got.IsFavorite())
}

func TestPg_CreateComment(t *testing.T) {
	defer cleanup(t)

	p := createPost(t, 1)

	require.NoError(t, s.CreateComment(ctx, &storage.CreateCommentParams{
		ID:        "c-1",
		PostID:    p.ID,
		Author:    "Ann",
		Content:   "nice",
		CreatedAt: time.Now().UTC(),
	}))

	parent := "c-1"
	require.NoError(t, s.CreateComment(ctx, &storage.CreateCommentParams{
		ID:        "c-2",
		PostID:    p.ID,
		ParentID:  &parent,
		Author:    "Bob",
		Content:   "agreed",
		CreatedAt: time.Now().UTC(),
	}))

	got, err := s.GetPost(ctx, p.ID)
	require.NoError(t, err)
	require.Contains(t, got.Comments, "c-1")
	assert.NotContains(t, got.Comments, "c-2") // a reply is attached to its parent
	require.Len(t, got.Comments["c-1"].Replies, 1)
	assert.Equal(t, "c-2", got.Comments["c-1"].Replies[0].ID)
	assert.Equal(t, 1, got.CommentCount())
}

func TestPg_DeletePost(t *testing.T) {
	defer cleanup(t)

	p := createPost(t, 1)

	require.NoError(t, s.AddView(ctx, p.ID, "2024-01-10"))
	require.NoError(t, s.CreateComment(ctx, &storage.CreateCommentParams{
		ID:        "c-1",
		PostID:    p.ID,
		Author:    "Ann",
		Content:   "nice",
		CreatedAt: time.Now().UTC(),
	}))

	require.NoError(t, s.DeletePost(ctx, p.ID))

	_, err := s.GetPost(ctx, p.ID)
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT count(*) FROM comment`).Scan(&count))
	assert.Zero(t, count)

	assert.True(t, errors.Is(s.DeletePost(ctx, 12345), storage.ErrNotFound))
}

func TestPg_InTx(t *testing.T) {
	defer cleanup(t)

	require.NoError(t, s.InTx(ctx, func(tx storage.Storage) error {
		createdInTx, err := tx.CreatePost(ctx, &storage.CreatePostParams{
			Owner:     1,
			Title:     "title",
			Slug:      "title-1",
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			return err
		}

		return tx.AddView(ctx, createdInTx.ID, "2024-01-10")
	}))

	pp, err := s.ListPostsByOwner(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pp, 1)
	assert.EqualValues(t, 1, pp[0].ViewCount())

	errRollback := errors.New("rollback")
	err = s.InTx(ctx, func(tx storage.Storage) error {
		if _, err := tx.CreatePost(ctx, &storage.CreatePostParams{
			Owner:     2,
			Title:     "title",
			Slug:      "title-2",
			CreatedAt: time.Now().UTC(),
		}); err != nil {
			return err
		}

		return errRollback
	})
	assert.True(t, errors.Is(err, errRollback))

	pp, err = s.ListPostsByOwner(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, pp)
}
