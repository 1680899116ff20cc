// Package cache is the entity store: the single owner of every cached post and
// comment list, with staleness and fetch-in-flight bookkeeping.
package cache

import (
	"strings"

	"github.com/zetareticula/forumsync/internal/model"
)

// Key identifies one cached value. Keys compare by value.
type Key struct {
	Kind   string
	Params string
}

// NewKey joins params into a Key.
func NewKey(kind string, params ...string) Key {
	return Key{Kind: kind, Params: strings.Join(params, "/")}
}

// PostKey is the key of a single post.
func PostKey(id string) Key { return NewKey(model.KindPost, id) }

// CommentsKey is the key of the flat comment list of a post.
func CommentsKey(postID string) Key { return NewKey(model.KindComments, postID) }

// PostsKey is the key of the feed.
func PostsKey() Key { return NewKey(model.KindPosts) }

func (k Key) String() string {
	if k.Params == "" {
		return k.Kind
	}
	return k.Kind + "/" + k.Params
}
