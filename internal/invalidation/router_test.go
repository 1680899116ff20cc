package invalidation

import (
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"

	"github.com/zetareticula/forumsync/internal/cache"
	"github.com/zetareticula/forumsync/internal/model"
)

func TestTableIsTotal(t *testing.T) {
	for _, k := range Kinds() {
		assert.NotEmpty(t, Keys(k, Target{PostID: "p"}), "kind %s", k)
	}
}

func TestKeysMapping(t *testing.T) {
	target := Target{PostID: "p1", CommentID: "c1"}
	assert.Equal(t, []cache.Key{cache.PostKey("p1")}, Keys(LikePost, target))
	assert.Equal(t, []cache.Key{cache.PostKey("p1")}, Keys(IncrementViews, target))
	assert.Equal(t, []cache.Key{cache.CommentsKey("p1")}, Keys(LikeComment, target))
	assert.Equal(t, []cache.Key{cache.CommentsKey("p1"), cache.PostKey("p1")}, Keys(CreateComment, target))
	assert.Equal(t, []cache.Key{cache.PostsKey()}, Keys(CreatePost, target))
}

func TestUnmappedKindPanics(t *testing.T) {
	assert.Panics(t, func() { Keys(Kind("deletePost"), Target{}) })
}

func TestRouteInvalidatesFreshKeysAndSchedules(t *testing.T) {
	store := cache.NewStore()
	store.Set(cache.PostKey("p2"), model.Post{ID: "p2", CommentsCount: 3})
	store.Set(cache.CommentsKey("p2"), model.Comments{})

	var scheduled []cache.Key
	r := NewRouter(store, SchedulerFunc(func(keys ...cache.Key) {
		scheduled = append(scheduled, keys...)
	}), logr.Discard())

	keys := r.Route(CreateComment, Target{PostID: "p2"})

	assert.Equal(t, keys, scheduled)
	assert.Equal(t, cache.StatusStale, store.Get(cache.PostKey("p2")).Status)
	assert.Equal(t, cache.StatusStale, store.Get(cache.CommentsKey("p2")).Status)
}

func TestRouteLeavesUncachedKeysEmpty(t *testing.T) {
	store := cache.NewStore()
	r := NewRouter(store, nil, logr.Discard())

	r.Route(LikePost, Target{PostID: "p9"})
	assert.Equal(t, cache.StatusEmpty, store.Get(cache.PostKey("p9")).Status)
}
