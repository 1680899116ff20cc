// Package invalidation maps a completed mutation to the cache keys it makes
// stale and hands them to a refresh scheduler.
package invalidation

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/zetareticula/forumsync/internal/cache"
)

// Kind names a mutation.
type Kind string

const (
	LikePost       Kind = "likePost"
	IncrementViews Kind = "incrementViews"
	LikeComment    Kind = "likeComment"
	CreateComment  Kind = "createComment"
	CreatePost     Kind = "createPost"
)

// Target carries the parameters of a mutation.
type Target struct {
	PostID    string
	CommentID string
}

var table = map[Kind]func(Target) []cache.Key{
	LikePost: func(t Target) []cache.Key {
		return []cache.Key{cache.PostKey(t.PostID)}
	},
	IncrementViews: func(t Target) []cache.Key {
		return []cache.Key{cache.PostKey(t.PostID)}
	},
	LikeComment: func(t Target) []cache.Key {
		return []cache.Key{cache.CommentsKey(t.PostID)}
	},
	CreateComment: func(t Target) []cache.Key {
		return []cache.Key{cache.CommentsKey(t.PostID), cache.PostKey(t.PostID)}
	},
	CreatePost: func(Target) []cache.Key {
		return []cache.Key{cache.PostsKey()}
	},
}

// Kinds lists every mapped mutation kind.
func Kinds() []Kind {
	return []Kind{LikePost, IncrementViews, LikeComment, CreateComment, CreatePost}
}

// Keys returns the keys a mutation of kind affects. An unmapped kind is a
// programming error and panics.
func Keys(kind Kind, target Target) []cache.Key {
	keysFor, ok := table[kind]
	if !ok {
		panic(fmt.Sprintf("invalidation: unmapped mutation kind %q", kind))
	}
	return keysFor(target)
}

// Scheduler queues keys for refetching.
type Scheduler interface {
	ScheduleRefresh(keys ...cache.Key)
}

// SchedulerFunc adapts a function to Scheduler.
type SchedulerFunc func(keys ...cache.Key)

func (f SchedulerFunc) ScheduleRefresh(keys ...cache.Key) { f(keys...) }

// Router invalidates the keys of completed mutations.
type Router struct {
	store     *cache.Store
	scheduler Scheduler
	log       logr.Logger
}

// NewRouter creates a router. A nil scheduler only invalidates.
func NewRouter(store *cache.Store, scheduler Scheduler, log logr.Logger) *Router {
	return &Router{store: store, scheduler: scheduler, log: log}
}

// Route invalidates every key affected by kind, schedules them for refresh and
// returns them.
func (r *Router) Route(kind Kind, target Target) []cache.Key {
	keys := Keys(kind, target)
	for _, k := range keys {
		if r.store.Invalidate(k) {
			r.log.V(1).Info("invalidated", "mutation", string(kind), "key", k.String())
		}
	}
	if r.scheduler != nil {
		r.scheduler.ScheduleRefresh(keys...)
	}
	return keys
}
