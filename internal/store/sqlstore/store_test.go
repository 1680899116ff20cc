package sqlstore

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zetareticula/forumsync/internal/model"
)

func openSQLite(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), SQLite, ":memory:", logr.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// steppedClock returns times one minute apart.
func steppedClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Minute)
		return t
	}
}

func exerciseRemote(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	s.now = steppedClock()

	older, err := s.CreatePost(ctx, model.NewPost{Title: "first", Content: "c", Tags: []string{"go"}, AuthorID: "u1", AuthorName: "Ann"})
	require.NoError(t, err)
	newer, err := s.CreatePost(ctx, model.NewPost{Title: "second", Content: "c", AuthorID: "u1", AuthorName: "Ann"})
	require.NoError(t, err)

	feed, err := s.FetchPosts(ctx)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, newer.ID, feed[0].ID)
	assert.Equal(t, []string{"go"}, feed[1].Tags)

	root, err := s.CreateComment(ctx, model.NewComment{PostID: older.ID, Content: "root", AuthorID: "u2", AuthorName: "Bo"})
	require.NoError(t, err)
	reply, err := s.CreateComment(ctx, model.NewComment{PostID: older.ID, ParentID: model.StringPtr(root.ID), Content: "reply", AuthorID: "u1"})
	require.NoError(t, err)
	_, err = s.CreateComment(ctx, model.NewComment{PostID: newer.ID, Content: "elsewhere", AuthorID: "u1"})
	require.NoError(t, err)

	cs, err := s.FetchComments(ctx, older.ID)
	require.NoError(t, err)
	require.Len(t, cs, 2)
	assert.Equal(t, root.ID, cs[0].ID)
	assert.Equal(t, reply.ID, cs[1].ID)
	assert.Equal(t, root.ID, *cs[1].ParentID)
	require.NoError(t, cs.Validate(older.ID))

	updated, err := s.UpdatePost(ctx, older.ID, model.PostPatch{Likes: model.Int64Ptr(3), CommentsCount: model.Int64Ptr(2)})
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated.Likes)
	got, err := s.FetchPost(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.CommentsCount)
	assert.Equal(t, "first", got.Title)

	liked, err := s.UpdateComment(ctx, reply.ID, model.CommentPatch{Likes: model.Int64Ptr(1)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), liked.Likes)
	assert.Equal(t, "reply", liked.Content)

	_, err = s.FetchPost(ctx, "missing")
	assert.True(t, model.IsNotFound(err))
	_, err = s.UpdatePost(ctx, "missing", model.PostPatch{})
	assert.True(t, model.IsNotFound(err))
	_, err = s.UpdateComment(ctx, "missing", model.CommentPatch{})
	assert.True(t, model.IsNotFound(err))
	_, err = s.CreateComment(ctx, model.NewComment{PostID: "missing", Content: "x", AuthorID: "u1"})
	assert.True(t, model.IsNotFound(err))

	empty, err := s.FetchComments(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestSQLiteRoundTrip(t *testing.T) {
	exerciseRemote(t, openSQLite(t))
}

func TestPostgresRoundTrip(t *testing.T) {
	dsn := os.Getenv("FORUMSYNC_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("FORUMSYNC_POSTGRES_DSN not set")
	}
	s, err := Open(context.Background(), Postgres, dsn, logr.Discard())
	require.NoError(t, err)
	defer s.Close()
	_, err = s.DB().Exec(`TRUNCATE posts, comments`)
	require.NoError(t, err)

	exerciseRemote(t, s)
}

func TestRebind(t *testing.T) {
	pg := &Store{dialect: Postgres}
	assert.Equal(t, "UPDATE posts SET data = $1 WHERE id = $2", pg.rebind("UPDATE posts SET data = ? WHERE id = ?"))
	lite := &Store{dialect: SQLite}
	assert.Equal(t, "SELECT ?", lite.rebind("SELECT ?"))
}

func TestClosedDatabaseIsTransportError(t *testing.T) {
	s := openSQLite(t)
	require.NoError(t, s.Close())

	_, err := s.FetchPosts(context.Background())
	assert.True(t, model.IsTransport(err))
}

func TestUnknownDialect(t *testing.T) {
	_, err := Open(context.Background(), Dialect("oracle"), "x", logr.Discard())
	assert.Error(t, err)
}
