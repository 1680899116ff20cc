package cache

import (
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zetareticula/forumsync/internal/model"
)

func likeOnce(current model.Entity) (model.Entity, error) {
	p := current.(model.Post)
	p.Likes++
	return p, nil
}

func TestKeysCompareStructurally(t *testing.T) {
	assert.Equal(t, PostKey("1"), NewKey(model.KindPost, "1"))
	assert.NotEqual(t, PostKey("1"), CommentsKey("1"))
	assert.Equal(t, "comments/42", CommentsKey("42").String())
	assert.Equal(t, "posts", PostsKey().String())

	m := map[Key]int{PostKey("1"): 1}
	assert.Equal(t, 1, m[NewKey("post", "1")])
}

func TestGetUnseenKeyIsEmpty(t *testing.T) {
	s := NewStore()
	e := s.Get(PostKey("nope"))
	assert.Equal(t, StatusEmpty, e.Status)
	assert.Nil(t, e.Value)
	assert.Zero(t, e.LastUpdated)
}

func TestSetBumpsVersionAndNotifies(t *testing.T) {
	s := NewStore()
	key := PostKey("p1")

	var seen []Entry
	unsubscribe := s.Subscribe(key, func(k Key, e Entry) {
		assert.Equal(t, key, k)
		seen = append(seen, e)
	})

	s.Set(key, model.Post{ID: "p1", Likes: 1})
	first := s.Get(key).LastUpdated
	s.Set(key, model.Post{ID: "p1", Likes: 2})
	second := s.Get(key)

	assert.Greater(t, second.LastUpdated, first)
	assert.Equal(t, StatusFresh, second.Status)
	require.Len(t, seen, 2)
	assert.Equal(t, int64(2), seen[1].Value.(model.Post).Likes)

	unsubscribe()
	s.Set(key, model.Post{ID: "p1", Likes: 3})
	assert.Len(t, seen, 2)
}

func TestGetReturnsCopies(t *testing.T) {
	s := NewStore()
	key := PostKey("p1")
	s.Set(key, model.Post{ID: "p1", Tags: []string{"a"}})

	got := s.Get(key).Value.(model.Post)
	got.Tags[0] = "mutated"

	assert.Equal(t, "a", s.Get(key).Value.(model.Post).Tags[0])
}

func TestStatusLifecycle(t *testing.T) {
	s := NewStore()
	key := PostKey("p1")

	token, err := s.MarkFetching(key)
	require.NoError(t, err)
	assert.Equal(t, StatusFetching, s.Get(key).Status)

	require.True(t, s.Resolve(key, token, model.Post{ID: "p1"}))
	assert.Equal(t, StatusFresh, s.Get(key).Status)

	_, err = s.MarkFetching(key)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.True(t, s.Invalidate(key))
	assert.Equal(t, StatusStale, s.Get(key).Status)

	token, err = s.MarkFetching(key)
	require.NoError(t, err)
	failure := &model.TransportError{Op: "fetchPost", Err: errors.New("timeout")}
	require.True(t, s.MarkError(key, token, failure))

	e := s.Get(key)
	assert.Equal(t, StatusError, e.Status)
	assert.ErrorIs(t, e.Err, failure)
	assert.Equal(t, "p1", e.Value.(model.Post).ID, "value survives a failed refetch")

	token, err = s.MarkFetching(key)
	require.NoError(t, err)
	require.True(t, s.Resolve(key, token, model.Post{ID: "p1", Likes: 9}))
	assert.Nil(t, s.Get(key).Err)
}

func TestInvalidateIgnoresEmptyAndFetching(t *testing.T) {
	s := NewStore()
	assert.False(t, s.Invalidate(PostKey("unseen")))

	key := PostKey("p1")
	_, err := s.MarkFetching(key)
	require.NoError(t, err)
	assert.False(t, s.Invalidate(key))
	assert.Equal(t, StatusFetching, s.Get(key).Status)
}

func TestSupersededFetchIsDiscarded(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	s := NewStore(WithMetrics(m))
	key := CommentsKey("p1")

	older, err := s.MarkFetching(key)
	require.NoError(t, err)
	newer, err := s.MarkFetching(key)
	require.NoError(t, err)

	require.True(t, s.Resolve(key, newer, model.Comments{{ID: "new", PostID: "p1"}}))
	assert.False(t, s.Resolve(key, older, model.Comments{{ID: "old", PostID: "p1"}}))
	assert.False(t, s.MarkError(key, older, errors.New("late failure")))

	e := s.Get(key)
	assert.Equal(t, StatusFresh, e.Status)
	assert.Equal(t, "new", e.Value.(model.Comments)[0].ID)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.superseded))
}

func TestSnapshotIsIndependentOfLiveEntry(t *testing.T) {
	s := NewStore()
	key := CommentsKey("p1")
	s.Set(key, model.Comments{{ID: "1", PostID: "p1", Likes: 1, ParentID: model.StringPtr("0")}})

	snap := s.Snapshot(key)
	_, next, err := s.Apply(key, func(v model.Entity) (model.Entity, error) {
		cs := v.(model.Comments)
		cs[0].Likes = 50
		*cs[0].ParentID = "changed"
		return cs, nil
	})
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, int64(50), next.(model.Comments)[0].Likes)

	prior := snap.Prior.(model.Comments)
	assert.Equal(t, int64(1), prior[0].Likes)
	assert.Equal(t, "0", *prior[0].ParentID)

	s.Restore(snap)
	e := s.Get(key)
	assert.Equal(t, StatusFresh, e.Status)
	assert.Equal(t, model.Comments{{ID: "1", PostID: "p1", Likes: 1, ParentID: model.StringPtr("0")}}, e.Value)
}

func TestRestoreOfAbsentSnapshotEmptiesKey(t *testing.T) {
	s := NewStore()
	key := PostKey("p1")
	snap := s.Snapshot(key)
	assert.False(t, snap.Present)

	s.Set(key, model.Post{ID: "p1"})
	s.Restore(snap)

	e := s.Get(key)
	assert.Equal(t, StatusEmpty, e.Status)
	assert.Nil(t, e.Value)
}

func TestApplySkipsKeysWithoutValue(t *testing.T) {
	s := NewStore()
	called := false
	_, next, err := s.Apply(PostKey("p1"), func(v model.Entity) (model.Entity, error) {
		called = true
		return v, nil
	})
	require.NoError(t, err)
	assert.Nil(t, next)
	assert.False(t, called)
}

func TestApplyKeepsStatusAndPropagatesErrors(t *testing.T) {
	s := NewStore()
	key := PostKey("p1")
	s.Set(key, model.Post{ID: "p1"})
	s.Invalidate(key)

	_, next, err := s.Apply(key, likeOnce)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, StatusStale, s.Get(key).Status)

	boom := errors.New("boom")
	_, _, err = s.Apply(key, func(model.Entity) (model.Entity, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(1), s.Get(key).Value.(model.Post).Likes)
}

func TestConcurrentApplyLosesNoUpdate(t *testing.T) {
	s := NewStore()
	key := PostKey("p1")
	s.Set(key, model.Post{ID: "p1", Likes: 5})

	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := s.Apply(key, likeOnce)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(5+n), s.Get(key).Value.(model.Post).Likes)
}

func TestStaleAndKeysAreSorted(t *testing.T) {
	s := NewStore()
	s.Set(PostKey("b"), model.Post{ID: "b"})
	s.Set(PostKey("a"), model.Post{ID: "a"})
	s.Set(CommentsKey("a"), model.Comments{})
	s.Invalidate(PostKey("b"))
	s.Invalidate(PostKey("a"))

	assert.Equal(t, []Key{PostKey("a"), PostKey("b")}, s.Stale())
	assert.Equal(t, []Key{CommentsKey("a"), PostKey("a"), PostKey("b")}, s.Keys())

	s.Drop(PostKey("a"))
	assert.Equal(t, []Key{PostKey("b")}, s.Stale())
}

func TestCountsByStatus(t *testing.T) {
	s := NewStore()
	s.Set(PostKey("a"), model.Post{ID: "a"})
	s.Set(PostKey("b"), model.Post{ID: "b"})
	s.Invalidate(PostKey("b"))
	_, err := s.MarkFetching(CommentsKey("a"))
	require.NoError(t, err)

	assert.Equal(t, map[Status]int{StatusFresh: 1, StatusStale: 1, StatusFetching: 1}, s.Counts())
	assert.Equal(t, StatusStale, s.Status(PostKey("b")))
	assert.Equal(t, StatusEmpty, s.Status(PostKey("unseen")))
}
