package store

import "slices"

// Select adds id to the selection.
func (s *Store[T]) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection[id] = struct{}{}
}

// Deselect removes id from the selection.
func (s *Store[T]) Deselect(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.selection, id)
}

// Toggle flips id and reports whether it is now selected.
func (s *Store[T]) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.selection[id]; ok {
		delete(s.selection, id)
		return false
	}
	s.selection[id] = struct{}{}
	return true
}

// SetSelection replaces the selection with ids.
func (s *Store[T]) SetSelection(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setSelection(ids)
}

// SelectAll selects exactly the visible rows.
func (s *Store[T]) SelectAll(visible []string) {
	s.SetSelection(visible)
}

// ClearSelection empties the selection.
func (s *Store[T]) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.selection)
}

// Selection returns the selected ids in sorted order.
func (s *Store[T]) Selection() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.selection))
	for id := range s.selection {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// IsSelected reports whether id is selected.
func (s *Store[T]) IsSelected(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.selection[id]
	return ok
}

// SyncView records the page the selection refers to. When page, size or
// search differ from the last call the selection is cleared, so it never
// holds rows that are no longer shown. It reports whether it cleared.
func (s *Store[T]) SyncView(page, pageSize int, search string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := viewKey{page: page, pageSize: pageSize, search: search}
	changed := s.hasView && s.view != next
	s.view, s.hasView = next, true
	if changed {
		clear(s.selection)
	}
	return changed
}

// SetTarget sets the id bulk assignments apply to, e.g. a contact group.
func (s *Store[T]) SetTarget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = id
}

// Target returns the bulk assignment target.
func (s *Store[T]) Target() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

func (s *Store[T]) setSelection(ids []string) {
	clear(s.selection)
	for _, id := range ids {
		s.selection[id] = struct{}{}
	}
}
