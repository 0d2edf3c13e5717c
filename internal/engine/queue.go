package engine

import (
	"slices"

	"github.com/dmdqy/doranet/internal/unit"
)

// worklist is the FIFO of reactions awaiting delivery.
//
// A reaction is queued at most once: pushing one that is already waiting
// is a no-op. It may be pushed again as soon as it has been popped, which
// is what re-delivery relies on.
//
// worklist is not safe for concurrent use; the propagator guards it with
// its mutex.
type worklist struct {
	items   []unit.Identifier
	pending map[unit.Identifier]bool
}

func newWorklist() *worklist {
	return &worklist{
		items:   make([]unit.Identifier, 0, 64),
		pending: make(map[unit.Identifier]bool),
	}
}

// Push appends id unless it is already waiting. It reports whether id
// was added.
func (w *worklist) Push(id unit.Identifier) bool {
	if w.pending[id] {
		return false
	}
	w.pending[id] = true
	w.items = append(w.items, id)
	return true
}

// PushFront puts id at the front so it is popped next. A waiting id is
// moved rather than queued twice.
func (w *worklist) PushFront(id unit.Identifier) {
	if w.pending[id] {
		if i := slices.Index(w.items, id); i >= 0 {
			w.items = slices.Delete(w.items, i, i+1)
		}
	}
	w.pending[id] = true
	w.items = slices.Insert(w.items, 0, id)
}

// Pop removes and returns the front reaction.
func (w *worklist) Pop() (unit.Identifier, bool) {
	if len(w.items) == 0 {
		return "", false
	}
	id := w.items[0]
	w.items[0] = ""
	if len(w.items) == 1 {
		w.items = w.items[:0]
	} else {
		w.items = w.items[1:]
	}
	delete(w.pending, id)
	return id, true
}

// Len returns the number of waiting reactions.
func (w *worklist) Len() int {
	return len(w.items)
}
