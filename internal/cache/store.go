package cache

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/go-logr/logr"

	"github.com/zetareticula/forumsync/internal/model"
)

// ErrInvalidTransition is returned when an operation would move an entry
// along a status edge the store does not allow.
var ErrInvalidTransition = errors.New("invalid cache status transition")

// Listener is called after an entry changes. It receives a copy of the entry
// and runs outside the store lock.
type Listener func(key Key, entry Entry)

// Projection computes the optimistic value of a key from its current value.
// It receives a copy and may modify it.
type Projection func(current model.Entity) (model.Entity, error)

// Option configures a Store.
type Option func(*Store)

// WithMetrics attaches store metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithLogger sets the store logger.
func WithLogger(log logr.Logger) Option {
	return func(s *Store) { s.log = log }
}

// Store holds every cached entity. Values never leave or enter the store by
// reference: reads return deep copies and writes store deep copies.
type Store struct {
	mu        sync.RWMutex
	entries   map[Key]*record
	version   uint64
	lastFetch FetchToken
	listeners map[Key]map[uint64]Listener
	nextSub   uint64
	metrics   *Metrics
	log       logr.Logger
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		entries:   make(map[Key]*record),
		listeners: make(map[Key]map[uint64]Listener),
		log:       logr.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type notification struct {
	key   Key
	entry Entry
}

// record returns the record of key, creating an empty one. Callers hold mu.
func (s *Store) record(key Key) *record {
	r, ok := s.entries[key]
	if !ok {
		r = &record{status: StatusEmpty}
		s.entries[key] = r
	}
	return r
}

// bump stamps r with the next logical version. Callers hold mu.
func (s *Store) bump(r *record) {
	s.version++
	r.lastUpdated = s.version
}

// changed captures the listeners of key and a copy of its entry. Callers hold mu.
func (s *Store) changed(key Key, r *record) []func() {
	subs := s.listeners[key]
	if len(subs) == 0 {
		return nil
	}
	n := notification{key: key, entry: r.entry()}
	calls := make([]func(), 0, len(subs))
	for _, l := range subs {
		l := l
		calls = append(calls, func() { l(n.key, n.entry) })
	}
	return calls
}

func fire(calls []func()) {
	for _, call := range calls {
		call()
	}
}

// Get returns a copy of the entry of key. Unseen keys yield an empty entry.
func (s *Store) Get(key Key) Entry {
	s.mu.RLock()
	r, ok := s.entries[key]
	var e Entry
	if ok {
		e = r.entry()
	}
	s.mu.RUnlock()

	if e.Status == StatusFresh {
		s.metrics.hit()
	} else {
		s.metrics.miss()
	}
	return e
}

// Set replaces the value of key and marks it fresh.
func (s *Store) Set(key Key, value model.Entity) {
	s.mu.Lock()
	r := s.record(key)
	r.value = copyOf(value)
	r.status = StatusFresh
	r.err = nil
	s.bump(r)
	calls := s.changed(key, r)
	s.mu.Unlock()

	fire(calls)
}

// MarkFetching records that a fetch of key has started and returns its token.
// A newer MarkFetching supersedes any fetch still in flight. Fresh entries
// must be invalidated first.
func (s *Store) MarkFetching(key Key) (FetchToken, error) {
	s.mu.Lock()
	r := s.record(key)
	if r.status == StatusFresh {
		s.mu.Unlock()
		return 0, fmt.Errorf("%w: %s is fresh", ErrInvalidTransition, key)
	}
	if r.status == StatusFetching {
		s.log.V(1).Info("superseding in-flight fetch", "key", key.String(), "token", r.fetch)
	}
	s.lastFetch++
	r.fetch = s.lastFetch
	r.status = StatusFetching
	r.err = nil
	token := r.fetch
	calls := s.changed(key, r)
	s.mu.Unlock()

	fire(calls)
	return token, nil
}

// Resolve stores the result of the fetch identified by token. It reports false
// and discards value when a newer fetch of key has been started since.
func (s *Store) Resolve(key Key, token FetchToken, value model.Entity) bool {
	s.mu.Lock()
	r := s.record(key)
	if r.fetch != token {
		s.mu.Unlock()
		s.metrics.supersede()
		s.log.V(1).Info("discarding superseded fetch result", "key", key.String(), "token", token)
		return false
	}
	r.fetch = 0
	r.value = copyOf(value)
	r.status = StatusFresh
	r.err = nil
	s.bump(r)
	calls := s.changed(key, r)
	s.mu.Unlock()

	fire(calls)
	return true
}

// MarkError records the failure of the fetch identified by token. The cached
// value, if any, is kept. It reports false when the fetch was superseded.
func (s *Store) MarkError(key Key, token FetchToken, err error) bool {
	s.mu.Lock()
	r := s.record(key)
	if r.fetch != token {
		s.mu.Unlock()
		s.metrics.supersede()
		return false
	}
	r.fetch = 0
	r.status = StatusError
	r.err = err
	calls := s.changed(key, r)
	s.mu.Unlock()

	fire(calls)
	return true
}

// Invalidate moves a fresh entry to stale and reports whether it did. Empty,
// fetching, stale and failed entries are left alone.
func (s *Store) Invalidate(key Key) bool {
	s.mu.Lock()
	r, ok := s.entries[key]
	if !ok || r.status != StatusFresh {
		s.mu.Unlock()
		return false
	}
	r.status = StatusStale
	calls := s.changed(key, r)
	s.mu.Unlock()

	s.metrics.invalidate()
	fire(calls)
	return true
}

// Snapshot captures an independent copy of the value of key.
func (s *Store) Snapshot(key Key) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{Key: key}
	if r, ok := s.entries[key]; ok && r.value != nil {
		snap.Prior = r.value.DeepCopyEntity()
		snap.Present = true
	}
	return snap
}

// Restore writes the value of snap back and marks the entry fresh. A snapshot
// of a key that held nothing returns the key to empty.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	r := s.record(snap.Key)
	if snap.Present {
		r.value = copyOf(snap.Prior)
		r.status = StatusFresh
	} else {
		r.value = nil
		r.status = StatusEmpty
	}
	r.err = nil
	s.bump(r)
	calls := s.changed(snap.Key, r)
	s.mu.Unlock()

	s.metrics.restore()
	fire(calls)
}

// Apply snapshots key and replaces its value with project(value) in one step,
// so concurrent callers never project from the same base. It returns the
// snapshot and a copy of the projected value. The entry status is kept. Keys
// without a value are not projected and yield a nil value.
func (s *Store) Apply(key Key, project Projection) (Snapshot, model.Entity, error) {
	s.mu.Lock()
	r, ok := s.entries[key]
	if !ok || r.value == nil {
		s.mu.Unlock()
		return Snapshot{Key: key}, nil, nil
	}
	snap := Snapshot{Key: key, Prior: r.value.DeepCopyEntity(), Present: true}
	next, err := project(r.value.DeepCopyEntity())
	if err != nil {
		s.mu.Unlock()
		return Snapshot{}, nil, fmt.Errorf("project %s: %w", key, err)
	}
	if next == nil {
		s.mu.Unlock()
		return Snapshot{}, nil, fmt.Errorf("project %s: nil value", key)
	}
	r.value = next.DeepCopyEntity()
	s.bump(r)
	out := r.value.DeepCopyEntity()
	calls := s.changed(key, r)
	s.mu.Unlock()

	fire(calls)
	return snap, out, nil
}

// Subscribe registers l for changes of key and returns a function that
// removes it.
func (s *Store) Subscribe(key Key, l Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSub++
	id := s.nextSub
	if s.listeners[key] == nil {
		s.listeners[key] = make(map[uint64]Listener)
	}
	s.listeners[key][id] = l

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners[key], id)
		if len(s.listeners[key]) == 0 {
			delete(s.listeners, key)
		}
	}
}

// Drop forgets key. Listeners stay registered.
func (s *Store) Drop(key Key) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// Keys returns every known key in string order.
func (s *Store) Keys() []Key {
	s.mu.RLock()
	keys := make([]Key, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	s.mu.RUnlock()
	sortKeys(keys)
	return keys
}

// Stale returns the keys currently in stale status in string order.
func (s *Store) Stale() []Key {
	s.mu.RLock()
	var keys []Key
	for k, r := range s.entries {
		if r.status == StatusStale {
			keys = append(keys, k)
		}
	}
	s.mu.RUnlock()
	sortKeys(keys)
	return keys
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
}

// Counts returns the number of known keys in each status.
func (s *Store) Counts() map[Status]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[Status]int, len(statusNames))
	for _, r := range s.entries {
		counts[r.status]++
	}
	return counts
}

// Status returns the status of key without counting a read.
func (s *Store) Status(key Key) Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.entries[key]; ok {
		return r.status
	}
	return StatusEmpty
}
