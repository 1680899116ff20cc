// Package sqlstore implements the remote forum store on database/sql, backed
// by SQLite (modernc.org/sqlite) or Postgres (pgx). Records are kept as JSON
// documents next to the columns queries filter and sort on.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver

	"github.com/zetareticula/forumsync/internal/model"
)

// Dialect selects the database flavour.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

func (d Dialect) driver() (string, error) {
	switch d {
	case SQLite:
		return "sqlite", nil
	case Postgres:
		return "pgx", nil
	}
	return "", fmt.Errorf("sqlstore: unknown dialect %q", d)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS posts (
		id TEXT PRIMARY KEY,
		created_at BIGINT NOT NULL,
		data TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id TEXT PRIMARY KEY,
		post_id TEXT NOT NULL,
		created_at BIGINT NOT NULL,
		data TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS comments_by_post ON comments (post_id, created_at)`,
}

// Store implements model.Remote on a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
	log     logr.Logger
	now     func() time.Time
}

var _ model.Remote = (*Store)(nil)

// Open connects to dsn, verifies the connection and applies the schema.
func Open(ctx context.Context, dialect Dialect, dsn string, log logr.Logger) (*Store, error) {
	driver, err := dialect.driver()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == SQLite {
		// one connection keeps ":memory:" databases shared and serializes writers
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &model.TransportError{Op: "connect", Err: err}
	}
	s := &Store{db: db, dialect: dialect, log: log, now: time.Now}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) ensureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *Store) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func transport(op string, err error) error {
	if err == nil || model.Classified(err) {
		return err
	}
	return &model.TransportError{Op: op, Err: err}
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) readPost(ctx context.Context, q queryer, id string, lock bool) (model.Post, error) {
	query := `SELECT data FROM posts WHERE id = ?`
	if lock && s.dialect == Postgres {
		query += ` FOR UPDATE`
	}
	var data string
	err := q.QueryRowContext(ctx, s.rebind(query), id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Post{}, &model.NotFoundError{Kind: model.KindPost, ID: id}
	}
	if err != nil {
		return model.Post{}, err
	}
	var p model.Post
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return model.Post{}, fmt.Errorf("decode post %s: %w", id, err)
	}
	return p, nil
}

func (s *Store) FetchPost(ctx context.Context, id string) (model.Post, error) {
	p, err := s.readPost(ctx, s.db, id, false)
	return p, transport("fetchPost", err)
}

func (s *Store) FetchPosts(ctx context.Context) (model.Posts, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM posts ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, transport("fetchPosts", err)
	}
	defer func() { _ = rows.Close() }()

	posts := model.Posts{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, transport("fetchPosts", err)
		}
		var p model.Post
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			s.log.Info("skipping undecodable post", "error", err.Error())
			continue
		}
		posts = append(posts, p)
	}
	return posts, transport("fetchPosts", rows.Err())
}

func (s *Store) FetchComments(ctx context.Context, postID string) (model.Comments, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT data FROM comments WHERE post_id = ? ORDER BY created_at ASC, id ASC`), postID)
	if err != nil {
		return nil, transport("fetchComments", err)
	}
	defer func() { _ = rows.Close() }()

	comments := model.Comments{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, transport("fetchComments", err)
		}
		var c model.Comment
		if err := json.Unmarshal([]byte(data), &c); err != nil {
			s.log.Info("skipping undecodable comment", "post", postID, "error", err.Error())
			continue
		}
		comments = append(comments, c)
	}
	return comments, transport("fetchComments", rows.Err())
}

func (s *Store) CreateComment(ctx context.Context, nc model.NewComment) (model.Comment, error) {
	if _, err := s.readPost(ctx, s.db, nc.PostID, false); err != nil {
		return model.Comment{}, transport("createComment", err)
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
	data, err := json.Marshal(c)
	if err != nil {
		return model.Comment{}, err
	}
	_, err = s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO comments (id, post_id, created_at, data) VALUES (?, ?, ?, ?)`),
		c.ID, c.PostID, c.CreatedAt.UnixNano(), string(data))
	if err != nil {
		return model.Comment{}, transport("createComment", err)
	}
	return c, nil
}

func (s *Store) CreatePost(ctx context.Context, np model.NewPost) (model.Post, error) {
	p := model.Post{
		ID:         uuid.New().String(),
		Title:      np.Title,
		Content:    np.Content,
		Tags:       np.Tags,
		AuthorID:   np.AuthorID,
		AuthorName: np.AuthorName,
		CreatedAt:  s.now().UTC(),
	}
	data, err := json.Marshal(p)
	if err != nil {
		return model.Post{}, err
	}
	_, err = s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO posts (id, created_at, data) VALUES (?, ?, ?)`),
		p.ID, p.CreatedAt.UnixNano(), string(data))
	if err != nil {
		return model.Post{}, transport("createPost", err)
	}
	return p, nil
}

// inTx runs fn in a transaction and commits when it returns nil.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Store) UpdatePost(ctx context.Context, id string, patch model.PostPatch) (model.Post, error) {
	var p model.Post
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		if p, err = s.readPost(ctx, tx, id, true); err != nil {
			return err
		}
		patch.ApplyTo(&p)
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, s.rebind(`UPDATE posts SET data = ? WHERE id = ?`), string(data), id)
		return err
	})
	if err != nil {
		return model.Post{}, transport("updatePost", err)
	}
	return p, nil
}

func (s *Store) UpdateComment(ctx context.Context, id string, patch model.CommentPatch) (model.Comment, error) {
	var c model.Comment
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		query := `SELECT data FROM comments WHERE id = ?`
		if s.dialect == Postgres {
			query += ` FOR UPDATE`
		}
		var data string
		err := tx.QueryRowContext(ctx, s.rebind(query), id).Scan(&data)
		if errors.Is(err, sql.ErrNoRows) {
			return &model.NotFoundError{Kind: model.KindComment, ID: id}
		}
		if err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(data), &c); err != nil {
			return fmt.Errorf("decode comment %s: %w", id, err)
		}
		patch.ApplyTo(&c)
		out, err := json.Marshal(c)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, s.rebind(`UPDATE comments SET data = ? WHERE id = ?`), string(out), id)
		return err
	})
	if err != nil {
		return model.Comment{}, transport("updateComment", err)
	}
	return c, nil
}
