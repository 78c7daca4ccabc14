// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package resource

import (
	"github.com/gviegas/glrt/internal/bitvec"
)

// table holds the entries of a Context.
// IDs are allocated from a bit vector, so the lowest free
// ID is always taken next. Entries are packed; pos maps
// an ID to its index in ents.
type table struct {
	used bitvec.V[uint32]
	pos  []int
	ents []entry
}

// add stores e under a new ID, which it also writes to
// e.id.
func (t *table) add(e entry) ID {
	if t.used.Rem() == 0 {
		n := max(t.used.Len()/32, 1)
		t.used.Grow(n)
		t.pos = append(t.pos, make([]int, n*32)...)
	}
	i, ok := t.used.Search()
	if !ok {
		panic("resource: table has no free ID")
	}
	t.used.Set(i)
	e.id = ID(i)
	t.pos[i] = len(t.ents)
	t.ents = append(t.ents, e)
	return e.id
}

// has returns whether id is in use.
func (t *table) has(id ID) bool {
	return id >= 0 && int(id) < t.used.Len() && t.used.IsSet(int(id))
}

// drop removes the entry identified by id and returns it.
// The last entry takes its place.
func (t *table) drop(id ID) (entry, bool) {
	if !t.has(id) {
		return entry{}, false
	}
	i := t.pos[id]
	e := t.ents[i]
	last := len(t.ents) - 1
	if i != last {
		t.ents[i] = t.ents[last]
		t.pos[t.ents[i].id] = i
	}
	t.ents[last] = entry{}
	t.ents = t.ents[:last]
	t.used.Unset(int(id))
	return e, true
}

// clear drops every entry.
func (t *table) clear() {
	clear(t.ents)
	t.ents = t.ents[:0]
	t.used.Clear()
}
