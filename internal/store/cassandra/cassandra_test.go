package cassandra

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zetareticula/forumsync/internal/model"
)

func TestNewCassandraStoreRequiresHostsAndKeyspace(t *testing.T) {
	_, err := NewCassandraStore(Config{Keyspace: "forum"}, logr.Discard())
	assert.Error(t, err)
	_, err = NewCassandraStore(Config{Hosts: []string{"127.0.0.1"}}, logr.Discard())
	assert.Error(t, err)
}

func TestSortOrders(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	posts := model.Posts{
		{ID: "a", CreatedAt: base},
		{ID: "c", CreatedAt: base.Add(time.Hour)},
		{ID: "b", CreatedAt: base},
	}
	sortNewestFirst(posts)
	assert.Equal(t, []string{"c", "b", "a"}, []string{posts[0].ID, posts[1].ID, posts[2].ID})

	comments := model.Comments{
		{ID: "late", CreatedAt: base.Add(time.Minute)},
		{ID: "y", CreatedAt: base},
		{ID: "x", CreatedAt: base},
	}
	sortOldestFirst(comments)
	assert.Equal(t, []string{"x", "y", "late"}, []string{comments[0].ID, comments[1].ID, comments[2].ID})
}

func TestCassandraStoreRoundTrip(t *testing.T) {
	hosts := os.Getenv("FORUMSYNC_CASSANDRA_HOSTS")
	if hosts == "" {
		t.Skip("FORUMSYNC_CASSANDRA_HOSTS not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	s, err := NewCassandraStore(Config{
		Hosts:      strings.Split(hosts, ","),
		Keyspace:   fmt.Sprintf("forumsync_test_%d", time.Now().UnixNano()%1e6),
		MinTries:   3,
		RetryDelay: 200 * time.Millisecond,
		Timeout:    10 * time.Second,
	}, logr.Discard())
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.EnsureSchema(ctx))

	p, err := s.CreatePost(ctx, model.NewPost{Title: "t", Content: "c", AuthorID: "u1", AuthorName: "Ann"})
	require.NoError(t, err)

	root, err := s.CreateComment(ctx, model.NewComment{PostID: p.ID, Content: "root", AuthorID: "u1"})
	require.NoError(t, err)
	_, err = s.CreateComment(ctx, model.NewComment{PostID: p.ID, ParentID: model.StringPtr(root.ID), Content: "reply", AuthorID: "u2"})
	require.NoError(t, err)

	cs, err := s.FetchComments(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, cs, 2)
	assert.Equal(t, root.ID, cs[0].ID)

	_, err = s.UpdateComment(ctx, root.ID, model.CommentPatch{Likes: model.Int64Ptr(4)})
	require.NoError(t, err)
	_, err = s.UpdatePost(ctx, p.ID, model.PostPatch{CommentsCount: model.Int64Ptr(2)})
	require.NoError(t, err)

	got, err := s.FetchPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.CommentsCount)

	_, err = s.FetchPost(ctx, "missing")
	assert.True(t, model.IsNotFound(err))
	_, err = s.UpdateComment(ctx, "missing", model.CommentPatch{})
	assert.True(t, model.IsNotFound(err))
}
