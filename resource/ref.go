package resource

import (
	"sync"
	"sync/atomic"
)

// Ref is a scoped guard over one table handle. Release may be called any
// number of times from any path; only the first call removes the handle.
type Ref struct {
	table    *Table
	handle   Handle
	once     sync.Once
	released atomic.Bool
}

// Acquire inserts value and returns a guard owning the new handle.
func (t *Table) Acquire(value any) (*Ref, error) {
	h, err := t.Insert(value)
	if err != nil {
		return nil, err
	}
	return &Ref{table: t, handle: h}, nil
}

// Handle returns the guarded handle, or 0 once released.
func (r *Ref) Handle() Handle {
	if r == nil || r.released.Load() {
		return 0
	}
	return r.handle
}

// Kind returns the kind of the owning table.
func (r *Ref) Kind() Kind {
	return r.table.kind
}

// Value returns the guarded value while the reference is live.
func (r *Ref) Value() (any, bool) {
	if r == nil || r.released.Load() {
		return nil, false
	}
	return r.table.Get(r.handle)
}

// Released reports whether Release has run.
func (r *Ref) Released() bool {
	return r == nil || r.released.Load()
}

// Release removes the handle from its table. It is safe on a nil Ref.
func (r *Ref) Release() {
	if r == nil {
		return
	}
	r.once.Do(func() {
		r.released.Store(true)
		r.table.Remove(r.handle)
	})
}
