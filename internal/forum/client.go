// Package forum is the client-side sync layer of the forum. A Client owns the
// entity store and serves cached reads, optimistic mutations and a background
// refresher over a model.Remote.
package forum

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zetareticula/forumsync/internal/cache"
	"github.com/zetareticula/forumsync/internal/commenttree"
	"github.com/zetareticula/forumsync/internal/invalidation"
	"github.com/zetareticula/forumsync/internal/model"
	"github.com/zetareticula/forumsync/internal/mutation"
)

// PendingPrefix marks the ids of optimistic records not yet confirmed by the
// remote store.
const PendingPrefix = "pending-"

// IsPending reports whether id belongs to an optimistic record.
func IsPending(id string) bool { return strings.HasPrefix(id, PendingPrefix) }

// Order selects how comments are pre-sorted before tree assembly.
type Order int

const (
	// OrderCreated keeps the remote order, oldest first.
	OrderCreated Order = iota
	OrderNewest
	OrderMostLiked
)

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger. Components log under named children.
func WithLogger(log logr.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithRegisterer registers cache, mutation and client metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Client) { c.reg = reg }
}

// WithConfig applies the refresh, statistics and presentation settings of cfg.
func WithConfig(cfg *Config) Option {
	return func(c *Client) {
		c.refreshInterval = cfg.RefreshInterval()
		c.maxReplyDepth = cfg.ReplyDepth()
		if cfg.Statistics.Enabled {
			c.statisticsInterval = cfg.StatisticsInterval()
		} else {
			c.statisticsInterval = 0
		}
	}
}

// WithRefreshInterval sets the refresher period. Zero disables the background
// refresher; RefreshStale still works.
func WithRefreshInterval(d time.Duration) Option {
	return func(c *Client) { c.refreshInterval = d }
}

// WithClock replaces the time source of optimistic records.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// Client is the forum sync client.
type Client struct {
	remote   model.Remote
	identity model.IdentityProvider
	store    *cache.Store
	router   *invalidation.Router
	engine   *mutation.Engine
	metrics  *ClientMetrics
	reg      prometheus.Registerer
	log      logr.Logger
	now      func() time.Time

	refreshInterval    time.Duration
	statisticsInterval time.Duration
	maxReplyDepth      int

	mu        sync.Mutex
	toRefresh map[cache.Key]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewClient creates a client and starts its background goroutines. Call Close
// to stop them.
func NewClient(remote model.Remote, identity model.IdentityProvider, opts ...Option) *Client {
	defaults := DefaultConfig()
	c := &Client{
		remote:          remote,
		identity:        identity,
		log:             logr.Discard(),
		now:             time.Now,
		refreshInterval: defaults.RefreshInterval(),
		maxReplyDepth:   defaults.ReplyDepth(),
		toRefresh:       make(map[cache.Key]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	var (
		cacheMetrics    *cache.Metrics
		mutationMetrics *mutation.Metrics
	)
	if c.reg != nil {
		cacheMetrics = cache.NewMetrics(c.reg)
		mutationMetrics = mutation.NewMetrics(c.reg)
		c.metrics = NewClientMetrics(c.reg)
	}
	c.store = cache.NewStore(cache.WithMetrics(cacheMetrics), cache.WithLogger(c.log.WithName("cache")))
	c.router = invalidation.NewRouter(c.store, c, c.log.WithName("invalidation"))
	c.engine = mutation.NewEngine(c.store, c.router,
		mutation.WithMetrics(mutationMetrics),
		mutation.WithLogger(c.log.WithName("mutation")))

	c.ctx, c.cancel = context.WithCancel(context.Background())
	if c.refreshInterval > 0 {
		c.wg.Add(1)
		go c.refreshLoop()
	}
	if c.statisticsInterval > 0 {
		c.wg.Add(1)
		go c.collectStatistics()
	}
	return c
}

// Close stops the background goroutines and waits for them.
func (c *Client) Close() {
	c.cancel()
	c.wg.Wait()
}

// Store exposes the entity store for status display.
func (c *Client) Store() *cache.Store { return c.store }

// Entry returns a copy of the cache entry of key.
func (c *Client) Entry(key cache.Key) cache.Entry { return c.store.Get(key) }

// Subscribe registers l for changes of key.
func (c *Client) Subscribe(key cache.Key, l cache.Listener) (unsubscribe func()) {
	return c.store.Subscribe(key, l)
}

// MaxReplyDepth is the configured nesting limit for reply forms.
func (c *Client) MaxReplyDepth() int { return c.maxReplyDepth }

// CanReply reports whether a reply form is offered at depth.
func (c *Client) CanReply(depth int) bool { return commenttree.CanReply(depth, c.maxReplyDepth) }

// GetPost returns the post, fetching it unless a fresh copy is cached.
func (c *Client) GetPost(ctx context.Context, id string) (model.Post, error) {
	if err := requireID(model.KindPost, id); err != nil {
		return model.Post{}, err
	}
	v, err := c.load(ctx, cache.PostKey(id))
	if err != nil {
		return model.Post{}, err
	}
	return v.(model.Post), nil
}

// GetPosts returns the feed, newest first.
func (c *Client) GetPosts(ctx context.Context) (model.Posts, error) {
	v, err := c.load(ctx, cache.PostsKey())
	if err != nil {
		return nil, err
	}
	return v.(model.Posts), nil
}

// GetComments returns the flat comment list of a post, oldest first.
func (c *Client) GetComments(ctx context.Context, postID string) (model.Comments, error) {
	if err := requireID(model.KindPost, postID); err != nil {
		return nil, err
	}
	v, err := c.load(ctx, cache.CommentsKey(postID))
	if err != nil {
		return nil, err
	}
	return v.(model.Comments), nil
}

// GetCommentTree returns the reply tree of a post. The tree is rebuilt on
// every call.
func (c *Client) GetCommentTree(ctx context.Context, postID string, order Order) ([]*commenttree.Node, error) {
	cs, err := c.GetComments(ctx, postID)
	if err != nil {
		return nil, err
	}
	list := []model.Comment(cs)
	switch order {
	case OrderNewest:
		list = commenttree.SortNewestFirst(list)
	case OrderMostLiked:
		list = commenttree.SortMostLiked(list)
	}
	return commenttree.Assemble(list), nil
}

func (c *Client) load(ctx context.Context, key cache.Key) (model.Entity, error) {
	if e := c.store.Get(key); e.Status == cache.StatusFresh {
		return e.Value, nil
	}
	return c.refetch(ctx, key)
}

// refetch fetches key and stores the result unless a newer fetch of the key
// started meanwhile. A superseded result is still returned to its caller.
func (c *Client) refetch(ctx context.Context, key cache.Key) (model.Entity, error) {
	token, err := c.store.MarkFetching(key)
	if err != nil {
		if e := c.store.Get(key); e.Status == cache.StatusFresh {
			return e.Value, nil
		}
		return nil, err
	}

	done := c.metrics.fetch(key.Kind)
	v, err := c.fetch(ctx, key)
	if err != nil {
		if c.store.MarkError(key, token, err) {
			done(fetchFailed)
		} else {
			done(fetchSuperseded)
		}
		c.log.V(1).Info("fetch failed", "key", key.String(), "error", err.Error())
		return nil, err
	}
	if c.store.Resolve(key, token, v) {
		done(fetchOK)
	} else {
		done(fetchSuperseded)
	}
	return v, nil
}

// fetch reads key from the remote store and validates the result.
func (c *Client) fetch(ctx context.Context, key cache.Key) (model.Entity, error) {
	var (
		v   model.Entity
		err error
	)
	switch key.Kind {
	case model.KindPost:
		var p model.Post
		if p, err = c.remote.FetchPost(ctx, key.Params); err == nil {
			v, err = p, p.Validate()
		}
	case model.KindPosts:
		var ps model.Posts
		if ps, err = c.remote.FetchPosts(ctx); err == nil {
			if ps == nil {
				ps = model.Posts{}
			}
			v, err = ps, ps.Validate()
		}
	case model.KindComments:
		var cs model.Comments
		if cs, err = c.remote.FetchComments(ctx, key.Params); err == nil {
			if cs == nil {
				cs = model.Comments{}
			}
			v, err = cs, cs.Validate(key.Params)
		}
	default:
		return nil, fmt.Errorf("no remote read for key %s", key)
	}
	if err != nil {
		if !model.Classified(err) {
			err = &model.TransportError{Op: "fetch " + key.Kind, Err: err}
		}
		return nil, err
	}
	return v, nil
}

func requireID(kind, id string) error {
	if strings.TrimSpace(id) == "" {
		return &model.ValidationError{Kind: kind, Field: "id", Reason: "required"}
	}
	return nil
}

func newPendingID() string { return PendingPrefix + uuid.NewString() }
