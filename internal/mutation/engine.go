// Package mutation runs optimistic writes against the entity store: snapshot
// the affected keys, apply a local projection, issue the remote write, then
// either hand the keys to the invalidation router or restore the snapshots.
//
// Two mutations racing on one key stack their projections: the later one
// snapshots a value that already carries the earlier edit, and a failure of
// the earlier one restores a value without the later edit. This window is
// accepted; no conflict resolution is attempted.
package mutation

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/zetareticula/forumsync/internal/cache"
	"github.com/zetareticula/forumsync/internal/invalidation"
	"github.com/zetareticula/forumsync/internal/model"
)

// Step is one optimistic edit of a cached key.
type Step struct {
	Key     cache.Key
	Project cache.Projection
}

// Applied holds copies of the values written by the apply phase. Keys that held
// no value were not projected and are absent.
type Applied map[cache.Key]model.Entity

// Post returns the projected post at key.
func (a Applied) Post(key cache.Key) (model.Post, bool) {
	p, ok := a[key].(model.Post)
	return p, ok
}

// Comments returns the projected comment list at key.
func (a Applied) Comments(key cache.Key) (model.Comments, bool) {
	cs, ok := a[key].(model.Comments)
	return cs, ok
}

// WriteFunc performs the remote write of a mutation.
type WriteFunc func(ctx context.Context, applied Applied) error

// Mutation describes one optimistic write.
type Mutation struct {
	Kind   invalidation.Kind
	Target invalidation.Target
	Steps  []Step
	Write  WriteFunc
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics attaches mutation metrics.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger sets the engine logger.
func WithLogger(log logr.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// Engine runs mutations.
type Engine struct {
	store   *cache.Store
	router  *invalidation.Router
	metrics *Metrics
	log     logr.Logger
}

// NewEngine creates an engine writing through store and routing commits to
// router.
func NewEngine(store *cache.Store, router *invalidation.Router, opts ...Option) *Engine {
	e := &Engine{store: store, router: router, log: logr.Discard()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes m. The projections are visible to readers before the remote
// write starts. When the write fails every snapshot is restored, last taken
// first, and the failure is returned; errors outside the model taxonomy are
// wrapped in *model.TransportError. A *model.PartialWriteError keeps the
// projections and routes the mutation like a commit, so the affected keys are
// refetched, before the error is returned.
func (e *Engine) Run(ctx context.Context, m Mutation) error {
	if m.Write == nil {
		panic(fmt.Sprintf("mutation %s has no write", m.Kind))
	}
	done := e.metrics.start(m.Kind)

	snaps := make([]cache.Snapshot, 0, len(m.Steps))
	applied := make(Applied, len(m.Steps))
	for _, step := range m.Steps {
		snap, next, err := e.store.Apply(step.Key, step.Project)
		if err != nil {
			e.rollback(m, snaps, err)
			done(resultRejected)
			return err
		}
		if next == nil {
			e.log.V(1).Info("key not cached, skipping optimistic edit", "mutation", string(m.Kind), "key", step.Key.String())
			continue
		}
		snaps = append(snaps, snap)
		applied[step.Key] = next
	}

	if err := m.Write(ctx, applied); err != nil {
		if model.IsPartialWrite(err) {
			keys := e.router.Route(m.Kind, m.Target)
			e.log.Info("mutation partially committed", "mutation", string(m.Kind), "invalidated", len(keys), "error", err.Error())
			done(resultPartial)
			return err
		}
		if !model.Classified(err) {
			err = &model.TransportError{Op: string(m.Kind), Err: err}
		}
		e.rollback(m, snaps, err)
		done(resultRolledBack)
		return err
	}

	keys := e.router.Route(m.Kind, m.Target)
	e.log.V(1).Info("mutation committed", "mutation", string(m.Kind), "invalidated", len(keys))
	done(resultCommitted)
	return nil
}

func (e *Engine) rollback(m Mutation, snaps []cache.Snapshot, cause error) {
	for i := len(snaps) - 1; i >= 0; i-- {
		e.store.Restore(snaps[i])
	}
	if len(snaps) > 0 {
		e.log.Info("rolled back optimistic edit", "mutation", string(m.Kind), "keys", len(snaps), "error", cause.Error())
	}
}
