package transform

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNotFound is returned when a patch targets an id that has no state.
var ErrNotFound = errors.New("transform: object not found")

// Store owns the live transform state of every stage object.
//
// Store is not safe for concurrent use; the owning session serializes access.
// While locked (playback active) ApplyPartial is a no-op, but ReplaceAll still
// works because it is how playback writes frames.
type Store struct {
	states map[string]State
	locked bool
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{states: make(map[string]State)}
}

// Insert sets the state of id, creating the entry if needed.
func (s *Store) Insert(id string, st State) {
	s.states[id] = st.Clone()
}

// Delete removes the entry for id.
func (s *Store) Delete(id string) bool {
	if _, ok := s.states[id]; !ok {
		return false
	}
	delete(s.states, id)
	return true
}

// Get returns a copy of the state of id.
func (s *Store) Get(id string) (State, bool) {
	st, ok := s.states[id]
	if !ok {
		return State{}, false
	}
	return st.Clone(), true
}

func (s *Store) Len() int {
	return len(s.states)
}

// IDs returns the ids present in the store, sorted.
func (s *Store) IDs() []string {
	ids := make([]string, 0, len(s.states))
	for id := range s.states {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ApplyPartial merges patch into the state of id. It reports whether the
// store changed: a locked store silently ignores the patch.
func (s *Store) ApplyPartial(id string, patch Patch) (bool, error) {
	if s.locked {
		return false, nil
	}
	st, ok := s.states[id]
	if !ok {
		return false, fmt.Errorf("apply patch to %q: %w", id, ErrNotFound)
	}
	s.states[id] = patch.Apply(st)
	return true, nil
}

// SnapshotAll returns an independent copy of every entry.
func (s *Store) SnapshotAll() Snapshot {
	return Snapshot(s.states).Clone()
}

// ReplaceAll swaps the entire contents of the store for a copy of snap.
func (s *Store) ReplaceAll(snap Snapshot) {
	s.states = snap.Clone()
}

// SetLocked toggles the edit-lock.
func (s *Store) SetLocked(locked bool) {
	s.locked = locked
}

func (s *Store) Locked() bool {
	return s.locked
}
