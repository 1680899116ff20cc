package mock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zetareticula/forumsync/internal/model"
)

func TestMockStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMockStore()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.SetClock(func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Minute) })

	p, err := s.CreatePost(ctx, model.NewPost{Title: "hello", Content: "world", AuthorID: "u1", AuthorName: "Ann"})
	require.NoError(t, err)
	require.NoError(t, p.Validate())

	first, err := s.CreateComment(ctx, model.NewComment{PostID: p.ID, Content: "first", AuthorID: "u1", AuthorName: "Ann"})
	require.NoError(t, err)
	_, err = s.CreateComment(ctx, model.NewComment{PostID: p.ID, ParentID: model.StringPtr(first.ID), Content: "reply", AuthorID: "u2", AuthorName: "Bo"})
	require.NoError(t, err)

	cs, err := s.FetchComments(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, cs, 2)
	assert.Equal(t, "first", cs[0].Content)
	assert.Equal(t, first.ID, *cs[1].ParentID)
	require.NoError(t, cs.Validate(p.ID))

	_, err = s.UpdatePost(ctx, p.ID, model.PostPatch{Likes: model.Int64Ptr(7)})
	require.NoError(t, err)
	got, err := s.FetchPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.Likes)

	liked, err := s.UpdateComment(ctx, first.ID, model.CommentPatch{Likes: model.Int64Ptr(2)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), liked.Likes)
}

func TestMockStoreNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewMockStore()

	_, err := s.FetchPost(ctx, "missing")
	assert.True(t, model.IsNotFound(err))
	_, err = s.CreateComment(ctx, model.NewComment{PostID: "missing", Content: "x"})
	assert.True(t, model.IsNotFound(err))
	_, err = s.UpdateComment(ctx, "missing", model.CommentPatch{})
	assert.True(t, model.IsNotFound(err))
}

func TestMockStoreFailureInjection(t *testing.T) {
	ctx := context.Background()
	s := NewMockStore()
	s.PutPost(model.Post{ID: "p1"})

	s.FailNext(OpFetchPost, ErrUnavailable)
	_, err := s.FetchPost(ctx, "p1")
	require.Error(t, err)
	assert.True(t, model.IsTransport(err))
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = s.FetchPost(ctx, "p1")
	assert.NoError(t, err, "failures are consumed")
	assert.Equal(t, 2, s.Calls(OpFetchPost))

	hookErr := errors.New("503")
	s.SetHook(func(_ context.Context, op string) error {
		if op == OpUpdatePost {
			return hookErr
		}
		return nil
	})
	_, err = s.UpdatePost(ctx, "p1", model.PostPatch{})
	assert.ErrorIs(t, err, hookErr)
	_, err = s.FetchPosts(ctx)
	assert.NoError(t, err)
}

func TestMockStorePostsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMockStore()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	s.PutPost(model.Post{ID: "old", CreatedAt: base})
	s.PutPost(model.Post{ID: "new", CreatedAt: base.Add(time.Hour)})

	ps, err := s.FetchPosts(ctx)
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.Equal(t, "new", ps[0].ID)
}

func TestMockCache(t *testing.T) {
	ctx := context.Background()
	c := NewMockCache()

	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, c.Put(ctx, "k", "v", time.Minute))
	v, _ = c.Get(ctx, "k")
	assert.Equal(t, "v", v)
	assert.Equal(t, time.Minute, c.TTL("k"))

	require.NoError(t, c.Delete(ctx, "k", "other"))
	assert.Zero(t, c.Len())
}
