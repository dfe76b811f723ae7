package service

import (
	"sync"

	"github.com/google/uuid"
)

// Visibility aggregates page visibility across connected viewers.
// The dashboard counts as visible while any viewer shows the page.
type Visibility struct {
	suspendWhenIdle bool
	onChange        func(visible bool)

	// serializes transitions so onChange observes them in order
	notify sync.Mutex

	mu      sync.Mutex
	viewers map[string]bool
	visible bool
}

// NewVisibility starts with no viewers. With suspendWhenIdle no viewers means
// hidden, at startup as after the last viewer leaves; otherwise an empty
// dashboard keeps polling. A headless consumer (the MQTT mirror) joins like a
// page that never hides.
func NewVisibility(suspendWhenIdle bool, onChange func(visible bool)) *Visibility {
	v := &Visibility{
		suspendWhenIdle: suspendWhenIdle,
		onChange:        onChange,
		viewers:         make(map[string]bool),
	}
	v.visible = v.computeLocked()
	return v
}

// Join registers a viewer that currently shows the page and returns its id.
func (v *Visibility) Join() string {
	id := uuid.NewString()
	v.update(func() { v.viewers[id] = true })
	return id
}

// Set records a visibilitychange from viewer id. Unknown ids are ignored.
func (v *Visibility) Set(id string, visible bool) {
	v.update(func() {
		if _, ok := v.viewers[id]; ok {
			v.viewers[id] = visible
		}
	})
}

func (v *Visibility) Leave(id string) {
	v.update(func() { delete(v.viewers, id) })
}

func (v *Visibility) Visible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.visible
}

func (v *Visibility) Viewers() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.viewers)
}

func (v *Visibility) update(mutate func()) {
	v.notify.Lock()
	defer v.notify.Unlock()

	v.mu.Lock()
	mutate()
	next := v.computeLocked()
	changed := next != v.visible
	v.visible = next
	v.mu.Unlock()

	if changed && v.onChange != nil {
		v.onChange(next)
	}
}

func (v *Visibility) computeLocked() bool {
	if len(v.viewers) == 0 {
		return !v.suspendWhenIdle
	}
	for _, shown := range v.viewers {
		if shown {
			return true
		}
	}
	return false
}
