package cache

import (
	"fmt"

	"github.com/zetareticula/forumsync/internal/model"
)

// Status is the lifecycle state of a cache entry.
type Status int

const (
	StatusEmpty Status = iota
	StatusFetching
	StatusFresh
	StatusStale
	StatusError
)

var statusNames = [...]string{"empty", "fetching", "fresh", "stale", "error"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Entry is a copy of one cache entry. Value is nil while nothing was stored.
type Entry struct {
	Value       model.Entity
	Status      Status
	LastUpdated uint64
	Err         error
}

// FetchToken identifies one fetch of a key. Only the latest token of a key may
// resolve it.
type FetchToken uint64

// Snapshot is the value of a key captured before an optimistic edit.
type Snapshot struct {
	Key     Key
	Prior   model.Entity
	Present bool
}

type record struct {
	value       model.Entity
	status      Status
	lastUpdated uint64
	err         error
	fetch       FetchToken
}

func (r *record) entry() Entry {
	e := Entry{Status: r.status, LastUpdated: r.lastUpdated, Err: r.err}
	if r.value != nil {
		e.Value = r.value.DeepCopyEntity()
	}
	return e
}

func copyOf(v model.Entity) model.Entity {
	if v == nil {
		return nil
	}
	return v.DeepCopyEntity()
}
