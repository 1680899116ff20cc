// Package redis shares remote read results between clients through Redis. The
// cache is best effort: its failures are logged and the remote store answers.
package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-logr/logr"

	"github.com/zetareticula/forumsync/internal/cache"
	"github.com/zetareticula/forumsync/internal/model"
)

// PayloadCache stores serialized payloads with a lifetime.
type PayloadCache interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// KeyPrefix namespaces every payload key.
const KeyPrefix = "forumsync:"

// ReadThrough is a model.Remote that answers reads from a PayloadCache and
// falls back to the wrapped remote. Writes go to the remote and drop the
// payloads they affect.
type ReadThrough struct {
	remote model.Remote
	cache  PayloadCache
	ttl    time.Duration
	log    logr.Logger
}

var _ model.Remote = (*ReadThrough)(nil)

// NewReadThrough wraps remote.
func NewReadThrough(remote model.Remote, payloads PayloadCache, ttl time.Duration, log logr.Logger) *ReadThrough {
	return &ReadThrough{remote: remote, cache: payloads, ttl: ttl, log: log}
}

func payloadKey(k cache.Key) string { return KeyPrefix + k.String() }

// cached decodes the payload of key into out and reports a hit.
func (r *ReadThrough) cached(ctx context.Context, key string, out any) bool {
	raw, err := r.cache.Get(ctx, key)
	if err != nil {
		r.log.V(1).Info("payload cache read failed", "key", key, "error", err.Error())
		return false
	}
	if raw == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		r.log.Info("dropping undecodable payload", "key", key, "error", err.Error())
		r.drop(ctx, key)
		return false
	}
	return true
}

func (r *ReadThrough) store(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := r.cache.Put(ctx, key, string(raw), r.ttl); err != nil {
		r.log.V(1).Info("payload cache write failed", "key", key, "error", err.Error())
	}
}

func (r *ReadThrough) drop(ctx context.Context, keys ...string) {
	if err := r.cache.Delete(ctx, keys...); err != nil {
		r.log.Info("payload cache delete failed", "keys", keys, "error", err.Error())
	}
}

func (r *ReadThrough) FetchPost(ctx context.Context, id string) (model.Post, error) {
	key := payloadKey(cache.PostKey(id))
	var p model.Post
	if r.cached(ctx, key, &p) {
		return p, nil
	}
	p, err := r.remote.FetchPost(ctx, id)
	if err != nil {
		return model.Post{}, err
	}
	r.store(ctx, key, p)
	return p, nil
}

func (r *ReadThrough) FetchPosts(ctx context.Context) (model.Posts, error) {
	key := payloadKey(cache.PostsKey())
	var ps model.Posts
	if r.cached(ctx, key, &ps) {
		return ps, nil
	}
	ps, err := r.remote.FetchPosts(ctx)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, ps)
	return ps, nil
}

func (r *ReadThrough) FetchComments(ctx context.Context, postID string) (model.Comments, error) {
	key := payloadKey(cache.CommentsKey(postID))
	var cs model.Comments
	if r.cached(ctx, key, &cs) {
		return cs, nil
	}
	cs, err := r.remote.FetchComments(ctx, postID)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, cs)
	return cs, nil
}

func (r *ReadThrough) CreateComment(ctx context.Context, nc model.NewComment) (model.Comment, error) {
	c, err := r.remote.CreateComment(ctx, nc)
	if err != nil {
		return model.Comment{}, err
	}
	r.drop(ctx, payloadKey(cache.CommentsKey(nc.PostID)), payloadKey(cache.PostKey(nc.PostID)))
	return c, nil
}

func (r *ReadThrough) CreatePost(ctx context.Context, np model.NewPost) (model.Post, error) {
	p, err := r.remote.CreatePost(ctx, np)
	if err != nil {
		return model.Post{}, err
	}
	r.drop(ctx, payloadKey(cache.PostsKey()))
	return p, nil
}

func (r *ReadThrough) UpdatePost(ctx context.Context, id string, patch model.PostPatch) (model.Post, error) {
	p, err := r.remote.UpdatePost(ctx, id, patch)
	if err != nil {
		return model.Post{}, err
	}
	r.drop(ctx, payloadKey(cache.PostKey(id)), payloadKey(cache.PostsKey()))
	return p, nil
}

func (r *ReadThrough) UpdateComment(ctx context.Context, id string, patch model.CommentPatch) (model.Comment, error) {
	c, err := r.remote.UpdateComment(ctx, id, patch)
	if err != nil {
		return model.Comment{}, err
	}
	r.drop(ctx, payloadKey(cache.CommentsKey(c.PostID)))
	return c, nil
}
