// Package ident provides a small free-slot acquire/release table:
// handing out stable slot handles to whatever the caller wants to
// track by index rather than by pointer.
package ident

import "fmt"

// Table hands out small integer handles backed by a growable slice of
// owner slots. A released slot is reused by the next Acquire.
type Table struct {
	owners []interface{}
}

// New returns an empty Table.
func New() *Table {
	return &Table{}
}

// Acquire records owner in a free slot (reusing one if available) and
// returns its handle.
func (t *Table) Acquire(owner interface{}) uint32 {
	for i := range t.owners {
		if t.owners[i] == nil {
			t.owners[i] = owner
			return uint32(i)
		}
	}
	t.owners = append(t.owners, owner)
	return uint32(len(t.owners) - 1)
}

// Release frees the slot at handle, making it available for reuse.
func (t *Table) Release(handle uint32) error {
	if int(handle) >= len(t.owners) {
		return fmt.Errorf("ident: handle %d out of range (max=%d)", handle, len(t.owners))
	}
	t.owners[handle] = nil
	return nil
}

// Get returns the owner stored at handle, or nil if the slot is free
// or out of range.
func (t *Table) Get(handle uint32) interface{} {
	if int(handle) >= len(t.owners) {
		return nil
	}
	return t.owners[handle]
}
