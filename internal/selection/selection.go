// Package selection tracks which messages in the currently rendered list are
// marked for a bulk action. The set never outlives the list snapshot it was
// built against: replacing the snapshot with a different one clears it.
package selection

import "sync"

// Set is the mutable selection scoped to the current message list.
// Safe for use from concurrent event handlers.
type Set struct {
	mu       sync.RWMutex
	selected map[string]struct{}
	snapshot map[string]struct{} // id set of the current list
}

// NewSet creates an empty selection
func NewSet() *Set {
	return &Set{
		selected: make(map[string]struct{}),
		snapshot: make(map[string]struct{}),
	}
}

// Toggle adds the id if absent and removes it if present. Ids not in the
// current list snapshot are ignored.
func (s *Set) Toggle(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, visible := s.snapshot[id]; !visible {
		return
	}
	if _, ok := s.selected[id]; ok {
		delete(s.selected, id)
	} else {
		s.selected[id] = struct{}{}
	}
}

// Contains reports whether the id is currently selected
func (s *Set) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.selected[id]
	return ok
}

// SelectAll replaces the selection with the full current id list
func (s *Set) SelectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = make(map[string]struct{}, len(s.snapshot))
	for id := range s.snapshot {
		s.selected[id] = struct{}{}
	}
}

// Clear empties the selection
func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = make(map[string]struct{})
}

// OnListChanged installs a new list snapshot. If the new id list differs from
// the previous one by set equality, the selection is cleared so stale or
// invisible messages can never stay selected.
func (s *Set) OnListChanged(ids []string) {
	next := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		next[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !setsEqual(s.snapshot, next) {
		s.selected = make(map[string]struct{})
	}
	s.snapshot = next
}

// Count returns the number of selected messages
func (s *Set) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.selected)
}

// AllSelected reports whether every message in the current non-empty list is
// selected
func (s *Set) AllSelected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshot) > 0 && len(s.selected) == len(s.snapshot)
}

// IDs returns the selected ids in unspecified order
func (s *Set) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.selected))
	for id := range s.selected {
		ids = append(ids, id)
	}
	return ids
}

func setsEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if _, ok := b[id]; !ok {
			return false
		}
	}
	return true
}
