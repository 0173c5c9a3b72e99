package witness

import (
	"sync"
)

// Table assigns dense ids to witnesses. One table exists per runtime
// instance; generated code passes ids where the native ABI would pass
// descriptor pointers. Registration is append-only: witnesses are
// process-wide immutable descriptors and are never freed.
type Table struct {
	entries []*Witness
	byPtr   map[*Witness]ID
	mu      sync.RWMutex
}

// NewTable creates an empty witness table.
func NewTable() *Table {
	return &Table{
		entries: make([]*Witness, 0, 16),
		byPtr:   make(map[*Witness]ID, 16),
	}
}

// Register adds w to the table and returns its id. Registering the same
// descriptor twice returns the id assigned first, preserving identity
// semantics.
func (t *Table) Register(w *Witness) ID {
	t.mu.Lock()
	defer t.mu.Unlock()

	if id, ok := t.byPtr[w]; ok {
		return id
	}

	t.entries = append(t.entries, w)
	id := ID(len(t.entries))
	t.byPtr[w] = id
	return id
}

// Lookup resolves an id to its witness.
func (t *Table) Lookup(id ID) (*Witness, bool) {
	if id == 0 {
		return nil, false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	idx := int(id) - 1
	if idx >= len(t.entries) {
		return nil, false
	}
	return t.entries[idx], true
}

// IDOf returns the id under which w was registered, or 0.
func (t *Table) IDOf(w *Witness) ID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.byPtr[w]
}

// Len returns the number of registered witnesses.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Walk calls fn for every registered witness in id order.
func (t *Table) Walk(fn func(ID, *Witness)) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i, w := range t.entries {
		fn(ID(i+1), w)
	}
}
