// Package registry tracks the media sources seen so far and whether each one
// may raise notifications.
package registry

import (
	"errors"
	"fmt"
	"sync"
)

var ErrUnknownSource = errors.New("unknown source")

// Entry is one known source. Entries keep the order in which sources were
// first seen.
type Entry struct {
	SourceID string
	Enabled  bool
}

// Registry is mutated only by the event loop. Readers on other goroutines
// (the tray) go through Entries, which copies under a read lock.
type Registry struct {
	mu      sync.RWMutex
	entries []Entry
	dirty   bool
}

// New seeds a registry. Duplicate source ids keep their first occurrence.
func New(entries []Entry) *Registry {
	r := &Registry{}
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if seen[e.SourceID] {
			continue
		}
		seen[e.SourceID] = true
		r.entries = append(r.entries, e)
	}
	return r
}

func (r *Registry) indexOf(sourceID string) int {
	for i, e := range r.entries {
		if e.SourceID == sourceID {
			return i
		}
	}
	return -1
}

func (r *Registry) IsKnown(sourceID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.indexOf(sourceID) >= 0
}

// IsEnabled returns ErrUnknownSource for a source that was never registered.
func (r *Registry) IsEnabled(sourceID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.indexOf(sourceID)
	if i < 0 {
		return false, fmt.Errorf("%w: %s", ErrUnknownSource, sourceID)
	}
	return r.entries[i].Enabled, nil
}

// RegisterIfNew adds sourceID as enabled and reports whether it was added.
func (r *Registry) RegisterIfNew(sourceID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexOf(sourceID) >= 0 {
		return false
	}
	r.entries = append(r.entries, Entry{SourceID: sourceID, Enabled: true})
	r.dirty = true
	return true
}

// Toggle flips the enabled flag of sourceID.
func (r *Registry) Toggle(sourceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(sourceID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownSource, sourceID)
	}
	r.entries[i].Enabled = !r.entries[i].Enabled
	r.dirty = true
	return nil
}

// ToggleAt flips the enabled flag of the entry at index, in menu order.
func (r *Registry) ToggleAt(index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index < 0 || index >= len(r.entries) {
		return fmt.Errorf("%w: index %d", ErrUnknownSource, index)
	}
	r.entries[index].Enabled = !r.entries[index].Enabled
	r.dirty = true
	return nil
}

// Clear forgets every source.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
	r.dirty = true
}

// Entries returns a copy of the registry in insertion order.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// TakeDirty reports whether the registry changed since the last call and
// resets the flag.
func (r *Registry) TakeDirty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.dirty
	r.dirty = false
	return d
}
