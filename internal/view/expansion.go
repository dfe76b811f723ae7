package view

import "sync"

// Expansion tracks which access log entry is open. At most one is.
type Expansion struct {
	mu sync.Mutex
	id string
}

// Toggle opens id, collapsing any other entry; toggling the open entry closes it.
// It returns the id that is open afterwards, or "".
func (e *Expansion) Toggle(id string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.id == id {
		e.id = ""
	} else {
		e.id = id
	}
	return e.id
}

func (e *Expansion) Current() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.id
}

// Forget collapses id if it is open, e.g. after the entry was deleted.
func (e *Expansion) Forget(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.id == id {
		e.id = ""
	}
}

// Reset collapses everything.
func (e *Expansion) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.id = ""
}
