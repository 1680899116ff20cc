// Package mock provides in-memory stand-ins for the remote forum store and the
// shared payload cache.
package mock

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zetareticula/forumsync/internal/model"
)

// Operation names passed to hooks.
const (
	OpFetchPost     = "fetchPost"
	OpFetchPosts    = "fetchPosts"
	OpFetchComments = "fetchComments"
	OpCreateComment = "createComment"
	OpCreatePost    = "createPost"
	OpUpdatePost    = "updatePost"
	OpUpdateComment = "updateComment"
)

// Hook runs before every operation. A non-nil error fails the operation with a
// *model.TransportError.
type Hook func(ctx context.Context, op string) error

// MockStore is an in-memory model.Remote.
type MockStore struct {
	mu       sync.RWMutex
	posts    map[string]model.Post
	comments map[string]model.Comment
	order    []string // comment ids in insertion order
	calls    map[string]int
	failures map[string][]error
	hook     Hook
	now      func() time.Time
}

var _ model.Remote = (*MockStore)(nil)

// NewMockStore creates an empty store.
func NewMockStore() *MockStore {
	return &MockStore{
		posts:    make(map[string]model.Post),
		comments: make(map[string]model.Comment),
		calls:    make(map[string]int),
		failures: make(map[string][]error),
		now:      time.Now,
	}
}

// SetHook installs h. Passing nil removes it.
func (s *MockStore) SetHook(h Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = h
}

// SetClock replaces the creation time source.
func (s *MockStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// FailNext makes the next call of op fail with err.
func (s *MockStore) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = append(s.failures[op], err)
}

// Calls returns how many times op was invoked.
func (s *MockStore) Calls(op string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[op]
}

// PutPost stores p as is, bypassing validation.
func (s *MockStore) PutPost(p model.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[p.ID] = p.DeepCopy()
}

// PutComment stores c as is, bypassing validation.
func (s *MockStore) PutComment(c model.Comment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comments[c.ID]; !ok {
		s.order = append(s.order, c.ID)
	}
	s.comments[c.ID] = c.DeepCopy()
}

// enter records the call and runs the hook and injected failures.
func (s *MockStore) enter(ctx context.Context, op string) error {
	s.mu.Lock()
	s.calls[op]++
	hook := s.hook
	var injected error
	if queue := s.failures[op]; len(queue) > 0 {
		injected, s.failures[op] = queue[0], queue[1:]
	}
	s.mu.Unlock()

	if injected != nil {
		return &model.TransportError{Op: op, Err: injected}
	}
	if hook != nil {
		if err := hook(ctx, op); err != nil {
			return &model.TransportError{Op: op, Err: err}
		}
	}
	if err := ctx.Err(); err != nil {
		return &model.TransportError{Op: op, Err: err}
	}
	return nil
}

func (s *MockStore) FetchPost(ctx context.Context, id string) (model.Post, error) {
	if err := s.enter(ctx, OpFetchPost); err != nil {
		return model.Post{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	if !ok {
		return model.Post{}, &model.NotFoundError{Kind: model.KindPost, ID: id}
	}
	return p.DeepCopy(), nil
}

func (s *MockStore) FetchPosts(ctx context.Context) (model.Posts, error) {
	if err := s.enter(ctx, OpFetchPosts); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(model.Posts, 0, len(s.posts))
	for _, p := range s.posts {
		out = append(out, p.DeepCopy())
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MockStore) FetchComments(ctx context.Context, postID string) (model.Comments, error) {
	if err := s.enter(ctx, OpFetchComments); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := model.Comments{}
	for _, id := range s.order {
		if c := s.comments[id]; c.PostID == postID {
			out = append(out, c.DeepCopy())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MockStore) CreateComment(ctx context.Context, nc model.NewComment) (model.Comment, error) {
	if err := s.enter(ctx, OpCreateComment); err != nil {
		return model.Comment{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[nc.PostID]; !ok {
		return model.Comment{}, &model.NotFoundError{Kind: model.KindPost, ID: nc.PostID}
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
	s.comments[c.ID] = c.DeepCopy()
	s.order = append(s.order, c.ID)
	return c, nil
}

func (s *MockStore) CreatePost(ctx context.Context, np model.NewPost) (model.Post, error) {
	if err := s.enter(ctx, OpCreatePost); err != nil {
		return model.Post{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := model.Post{
		ID:         uuid.New().String(),
		Title:      np.Title,
		Content:    np.Content,
		Tags:       np.Tags,
		AuthorID:   np.AuthorID,
		AuthorName: np.AuthorName,
		CreatedAt:  s.now().UTC(),
	}
	s.posts[p.ID] = p.DeepCopy()
	return p, nil
}

func (s *MockStore) UpdatePost(ctx context.Context, id string, patch model.PostPatch) (model.Post, error) {
	if err := s.enter(ctx, OpUpdatePost); err != nil {
		return model.Post{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return model.Post{}, &model.NotFoundError{Kind: model.KindPost, ID: id}
	}
	patch.ApplyTo(&p)
	s.posts[id] = p.DeepCopy()
	return p, nil
}

func (s *MockStore) UpdateComment(ctx context.Context, id string, patch model.CommentPatch) (model.Comment, error) {
	if err := s.enter(ctx, OpUpdateComment); err != nil {
		return model.Comment{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok {
		return model.Comment{}, &model.NotFoundError{Kind: model.KindComment, ID: id}
	}
	patch.ApplyTo(&c)
	s.comments[id] = c.DeepCopy()
	return c, nil
}

// ErrUnavailable is a convenient failure for FailNext and hooks.
var ErrUnavailable = errors.New("remote store unavailable")
