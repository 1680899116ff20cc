// Package cassandra implements the remote forum store on Cassandra. Records
// are stored as JSON documents keyed by id; comments are partitioned by post.
package cassandra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-logr/logr"
	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"github.com/zetareticula/forumsync/internal/model"
)

// Config addresses a Cassandra cluster.
type Config struct {
	Hosts      []string
	Keyspace   string
	MinTries   int
	RetryDelay time.Duration
	// Timeout bounds connection setup and each query. Zero keeps the gocql default.
	Timeout time.Duration
}

// CassandraStore implements model.Remote on a gocql session.
type CassandraStore struct {
	session *gocql.Session
	config  Config
	log     logr.Logger
	now     func() time.Time
}

var _ model.Remote = (*CassandraStore)(nil)

// NewCassandraStore connects to the cluster. Call EnsureSchema before first use
// against an empty keyspace.
func NewCassandraStore(config Config, log logr.Logger) (*CassandraStore, error) {
	if len(config.Hosts) == 0 {
		return nil, errors.New("cassandra: no hosts configured")
	}
	if config.Keyspace == "" {
		return nil, errors.New("cassandra: no keyspace configured")
	}
	if config.MinTries < 1 {
		config.MinTries = 1
	}

	cluster := gocql.NewCluster(config.Hosts...)
	cluster.Consistency = gocql.Quorum
	cluster.NumConns = 2
	if config.Timeout > 0 {
		cluster.ConnectTimeout = config.Timeout
		cluster.Timeout = config.Timeout
	}
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, &model.TransportError{Op: "connect", Err: err}
	}
	return &CassandraStore{session: session, config: config, log: log, now: time.Now}, nil
}

// Close closes the session.
func (s *CassandraStore) Close() error {
	s.session.Close()
	return nil
}

// EnsureSchema creates the keyspace and tables when missing.
func (s *CassandraStore) EnsureSchema(ctx context.Context) error {
	ks := s.config.Keyspace
	stmts := []string{
		fmt.Sprintf(`CREATE KEYSPACE IF NOT EXISTS %s WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}`, ks),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.posts (id text PRIMARY KEY, data blob)`, ks),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.comments (post_id text, id text, data blob, PRIMARY KEY (post_id, id))`, ks),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.comment_posts (id text PRIMARY KEY, post_id text)`, ks),
	}
	for _, stmt := range stmts {
		if err := s.retry(ctx, "ensureSchema", func() error {
			return s.session.Query(stmt).WithContext(ctx).Exec()
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *CassandraStore) table(name string) string {
	return s.config.Keyspace + "." + name
}

// retry runs fn up to MinTries times. A missing row ends the loop at once.
func (s *CassandraStore) retry(ctx context.Context, op string, fn func() error) error {
	var err error
	for i := 0; i < s.config.MinTries; i++ {
		if err = fn(); err == nil || errors.Is(err, gocql.ErrNotFound) {
			return err
		}
		s.log.V(1).Info("cassandra query failed", "op", op, "attempt", i+1, "error", err.Error())
		if i+1 == s.config.MinTries {
			break
		}
		select {
		case <-ctx.Done():
			return &model.TransportError{Op: op, Err: ctx.Err()}
		case <-time.After(s.config.RetryDelay):
		}
	}
	return &model.TransportError{Op: op, Err: err}
}

func (s *CassandraStore) readPost(ctx context.Context, op, id string) (model.Post, error) {
	var data []byte
	err := s.retry(ctx, op, func() error {
		return s.session.Query(`SELECT data FROM `+s.table("posts")+` WHERE id = ? LIMIT 1`, id).
			WithContext(ctx).Scan(&data)
	})
	if errors.Is(err, gocql.ErrNotFound) {
		return model.Post{}, &model.NotFoundError{Kind: model.KindPost, ID: id}
	}
	if err != nil {
		return model.Post{}, err
	}
	var p model.Post
	if err := json.Unmarshal(data, &p); err != nil {
		return model.Post{}, fmt.Errorf("decode post %s: %w", id, err)
	}
	return p, nil
}

func (s *CassandraStore) writePost(ctx context.Context, op string, p model.Post) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.retry(ctx, op, func() error {
		return s.session.Query(`INSERT INTO `+s.table("posts")+` (id, data) VALUES (?, ?)`, p.ID, data).
			WithContext(ctx).Exec()
	})
}

func (s *CassandraStore) writeComment(ctx context.Context, op string, c model.Comment) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.retry(ctx, op, func() error {
		return s.session.Query(`INSERT INTO `+s.table("comments")+` (post_id, id, data) VALUES (?, ?, ?)`,
			c.PostID, c.ID, data).WithContext(ctx).Exec()
	})
}

func (s *CassandraStore) FetchPost(ctx context.Context, id string) (model.Post, error) {
	return s.readPost(ctx, "fetchPost", id)
}

func (s *CassandraStore) FetchPosts(ctx context.Context) (model.Posts, error) {
	var posts model.Posts
	err := s.retry(ctx, "fetchPosts", func() error {
		posts = posts[:0]
		iter := s.session.Query(`SELECT data FROM ` + s.table("posts")).WithContext(ctx).Iter()
		var data []byte
		for iter.Scan(&data) {
			var p model.Post
			if err := json.Unmarshal(data, &p); err != nil {
				s.log.Info("skipping undecodable post", "error", err.Error())
				continue
			}
			posts = append(posts, p)
		}
		return iter.Close()
	})
	if err != nil {
		return nil, err
	}
	sortNewestFirst(posts)
	return posts, nil
}

func (s *CassandraStore) FetchComments(ctx context.Context, postID string) (model.Comments, error) {
	var comments model.Comments
	err := s.retry(ctx, "fetchComments", func() error {
		comments = comments[:0]
		iter := s.session.Query(`SELECT data FROM `+s.table("comments")+` WHERE post_id = ?`, postID).
			WithContext(ctx).Iter()
		var data []byte
		for iter.Scan(&data) {
			var c model.Comment
			if err := json.Unmarshal(data, &c); err != nil {
				s.log.Info("skipping undecodable comment", "post", postID, "error", err.Error())
				continue
			}
			comments = append(comments, c)
		}
		return iter.Close()
	})
	if err != nil {
		return nil, err
	}
	sortOldestFirst(comments)
	return comments, nil
}

func (s *CassandraStore) CreateComment(ctx context.Context, nc model.NewComment) (model.Comment, error) {
	if _, err := s.readPost(ctx, "createComment", nc.PostID); err != nil {
		return model.Comment{}, err
	}
	c := model.Comment{
		ID:         uuid.New().String(),
		PostID:     nc.PostID,
		ParentID:   nc.ParentID,
		Content:    nc.Content,
		AuthorID:   nc.AuthorID,
		AuthorName: nc.AuthorName,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.writeComment(ctx, "createComment", c); err != nil {
		return model.Comment{}, err
	}
	err := s.retry(ctx, "createComment", func() error {
		return s.session.Query(`INSERT INTO `+s.table("comment_posts")+` (id, post_id) VALUES (?, ?)`, c.ID, c.PostID).
			WithContext(ctx).Exec()
	})
	if err != nil {
		return model.Comment{}, err
	}
	return c, nil
}

func (s *CassandraStore) CreatePost(ctx context.Context, np model.NewPost) (model.Post, error) {
	p := model.Post{
		ID:         uuid.New().String(),
		Title:      np.Title,
		Content:    np.Content,
		Tags:       np.Tags,
		AuthorID:   np.AuthorID,
		AuthorName: np.AuthorName,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.writePost(ctx, "createPost", p); err != nil {
		return model.Post{}, err
	}
	return p, nil
}

// UpdatePost reads, patches and rewrites the post. Concurrent writers race and
// the last one wins.
func (s *CassandraStore) UpdatePost(ctx context.Context, id string, patch model.PostPatch) (model.Post, error) {
	p, err := s.readPost(ctx, "updatePost", id)
	if err != nil {
		return model.Post{}, err
	}
	patch.ApplyTo(&p)
	if err := s.writePost(ctx, "updatePost", p); err != nil {
		return model.Post{}, err
	}
	return p, nil
}

func (s *CassandraStore) UpdateComment(ctx context.Context, id string, patch model.CommentPatch) (model.Comment, error) {
	var postID string
	err := s.retry(ctx, "updateComment", func() error {
		return s.session.Query(`SELECT post_id FROM `+s.table("comment_posts")+` WHERE id = ?`, id).
			WithContext(ctx).Scan(&postID)
	})
	if errors.Is(err, gocql.ErrNotFound) {
		return model.Comment{}, &model.NotFoundError{Kind: model.KindComment, ID: id}
	}
	if err != nil {
		return model.Comment{}, err
	}

	var data []byte
	err = s.retry(ctx, "updateComment", func() error {
		return s.session.Query(`SELECT data FROM `+s.table("comments")+` WHERE post_id = ? AND id = ?`, postID, id).
			WithContext(ctx).Scan(&data)
	})
	if errors.Is(err, gocql.ErrNotFound) {
		return model.Comment{}, &model.NotFoundError{Kind: model.KindComment, ID: id}
	}
	if err != nil {
		return model.Comment{}, err
	}
	var c model.Comment
	if err := json.Unmarshal(data, &c); err != nil {
		return model.Comment{}, fmt.Errorf("decode comment %s: %w", id, err)
	}
	patch.ApplyTo(&c)
	if err := s.writeComment(ctx, "updateComment", c); err != nil {
		return model.Comment{}, err
	}
	return c, nil
}

func sortNewestFirst(posts model.Posts) {
	sort.SliceStable(posts, func(i, j int) bool {
		if posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].ID > posts[j].ID
		}
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}

func sortOldestFirst(comments model.Comments) {
	sort.SliceStable(comments, func(i, j int) bool {
		if comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].ID < comments[j].ID
		}
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
}
