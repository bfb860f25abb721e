package resource

import (
	"errors"
	"sync"
)

var ErrClosed = errors.New("reference table closed")

type entry struct {
	value any
	valid bool
}

// Table maps handles to values for one reference kind.
// Released handles are recycled.
type Table struct {
	entries   []entry
	freeList  []Handle
	observers []Observer
	mu        sync.RWMutex
	obsMu     sync.RWMutex
	kind      Kind
	closed    bool
}

// NewTable creates an empty table of the given kind.
func NewTable(kind Kind) *Table {
	return &Table{
		kind:     kind,
		entries:  make([]entry, 0, 16),
		freeList: make([]Handle, 0, 8),
	}
}

// Kind returns the reference kind held by the table.
func (t *Table) Kind() Kind {
	return t.kind
}

// Insert stores a value and returns its handle.
func (t *Table) Insert(value any) (Handle, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0, ErrClosed
	}

	var handle Handle
	e := entry{value: value, valid: true}
	if n := len(t.freeList); n > 0 {
		handle = t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
		t.entries[handle-1] = e
	} else {
		t.entries = append(t.entries, e)
		handle = Handle(len(t.entries))
	}
	t.mu.Unlock()

	t.notify(Event{Type: EventCreated, Handle: handle, Kind: t.kind, Value: value})
	return handle, nil
}

// Get retrieves a value by handle.
func (t *Table) Get(handle Handle) (any, bool) {
	if handle == 0 {
		return nil, false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	idx := int(handle) - 1
	if idx >= len(t.entries) || !t.entries[idx].valid {
		return nil, false
	}
	return t.entries[idx].value, true
}

// Remove releases a handle and returns (value, true) if it was live.
// Values implementing Dropper are dropped.
func (t *Table) Remove(handle Handle) (any, bool) {
	if handle == 0 {
		return nil, false
	}

	t.mu.Lock()
	idx := int(handle) - 1
	if t.closed || idx >= len(t.entries) || !t.entries[idx].valid {
		t.mu.Unlock()
		return nil, false
	}
	value := t.entries[idx].value
	t.entries[idx] = entry{}
	t.freeList = append(t.freeList, handle)
	t.mu.Unlock()

	if d, ok := value.(Dropper); ok {
		d.Drop()
	}
	t.notify(Event{Type: EventReleased, Handle: handle, Kind: t.kind, Value: value})
	return value, true
}

// Len returns the number of live handles.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries) - len(t.freeList)
}

// Each iterates over live handles in handle order until fn returns false.
func (t *Table) Each(fn func(Handle, any) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i, e := range t.entries {
		if e.valid && !fn(Handle(i+1), e.value) {
			return
		}
	}
}

// Clear releases every live handle and returns how many were released.
func (t *Table) Clear() int {
	// Collect handles first to avoid holding the lock during Remove
	var handles []Handle
	t.Each(func(h Handle, _ any) bool {
		handles = append(handles, h)
		return true
	})
	n := 0
	for _, h := range handles {
		if _, ok := t.Remove(h); ok {
			n++
		}
	}
	return n
}

// Close releases all remaining values and stops accepting inserts.
func (t *Table) Close() error {
	t.Clear()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.entries = nil
	t.freeList = nil
	return nil
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
