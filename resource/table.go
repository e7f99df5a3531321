package resource

import (
	"sync"
)

// Table maps opaque handles to live resource values.
//
// Handles are allocated from a monotonically increasing counter and never
// reused, so a handle that has been removed stays dead forever: a second
// Remove, or a Get through a stale handle, misses cleanly instead of
// aliasing a newer resource. That property is what makes destroy-twice a
// safe no-op at the boundary.
type Table struct {
	mu        sync.RWMutex
	entries   map[Handle]entry
	observers []Observer
	next      Handle
	closed    bool
}

type entry struct {
	value  any
	typeID uint32
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		entries: make(map[Handle]entry, 64),
	}
}

// Insert adds a value and returns its handle.
// Returns 0 if the table has been closed.
func (t *Table) Insert(typeID uint32, value any) Handle {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0
	}
	t.next++
	h := t.next
	t.entries[h] = entry{value: value, typeID: typeID}
	t.mu.Unlock()

	t.notify(Event{Type: EventCreated, Handle: h, TypeID: typeID, Value: value})
	return h
}

// Get retrieves a value by handle.
func (t *Table) Get(handle Handle) (any, bool) {
	if handle == 0 {
		return nil, false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[handle]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// GetTyped retrieves a value only if it matches the expected type.
func (t *Table) GetTyped(handle Handle, typeID uint32) (any, bool) {
	if handle == 0 {
		return nil, false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[handle]
	if !ok || e.typeID != typeID {
		return nil, false
	}
	return e.value, true
}

// Remove drops a resource and returns (value, true) if it was live.
// The value's Drop method, if any, is invoked before returning.
func (t *Table) Remove(handle Handle) (any, bool) {
	if handle == 0 {
		return nil, false
	}
	t.mu.Lock()
	e, ok := t.entries[handle]
	if !ok {
		t.mu.Unlock()
		return nil, false
	}
	delete(t.entries, handle)
	t.mu.Unlock()

	if d, ok := e.value.(Dropper); ok {
		d.Drop()
	}

	t.notify(Event{Type: EventDropped, Handle: handle, TypeID: e.typeID, Value: e.value})
	return e.value, true
}

// RemoveTyped drops a resource only if it matches the expected type.
func (t *Table) RemoveTyped(handle Handle, typeID uint32) (any, bool) {
	if handle == 0 {
		return nil, false
	}
	t.mu.Lock()
	e, ok := t.entries[handle]
	if !ok || e.typeID != typeID {
		t.mu.Unlock()
		return nil, false
	}
	delete(t.entries, handle)
	t.mu.Unlock()

	if d, ok := e.value.(Dropper); ok {
		d.Drop()
	}

	t.notify(Event{Type: EventDropped, Handle: handle, TypeID: typeID, Value: e.value})
	return e.value, true
}

// Len returns the number of live resources.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// LenTyped returns the number of live resources with the given type.
func (t *Table) LenTyped(typeID uint32) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, e := range t.entries {
		if e.typeID == typeID {
			n++
		}
	}
	return n
}

// Each iterates over all live resources.
func (t *Table) Each(fn func(Handle, uint32, any) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for h, e := range t.entries {
		if !fn(h, e.typeID, e.value) {
			break
		}
	}
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table) Unsubscribe(o Observer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Close drops all resources and stops accepting inserts.
func (t *Table) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	dropped := t.entries
	t.entries = make(map[Handle]entry)
	t.mu.Unlock()

	for _, e := range dropped {
		if d, ok := e.value.(Dropper); ok {
			d.Drop()
		}
	}
	return nil
}

func (t *Table) notify(e Event) {
	t.mu.RLock()
	obs := make([]Observer, len(t.observers))
	copy(obs, t.observers)
	t.mu.RUnlock()
	for _, o := range obs {
		o.OnResourceEvent(e)
	}
}
