package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/harrisonrobin/roadmap/pkg/model"
)

// ErrUnknownTask is returned when a tick edit names a task that is not loaded.
var ErrUnknownTask = errors.New("unknown task")

// TaskStore holds the last fetched task list and its tick state. Ticks from
// the last reload form the base; local edits sit on top of it until saved.
type TaskStore struct {
	mu         sync.RWMutex
	tasks      []model.Task
	base       model.TickState
	pending    model.TickState
	collisions []string
}

// New returns an empty store.
func New() *TaskStore {
	return &TaskStore{
		base:    make(model.TickState),
		pending: make(model.TickState),
	}
}

// Replace swaps in a freshly fetched task list. Tick state is rebuilt from
// the flags embedded in each task; pending local edits stay on top. It returns
// the keys shared by more than one task.
func (s *TaskStore) Replace(tasks []model.Task) []string {
	base := make(model.TickState, len(tasks))
	var collisions []string
	for _, t := range tasks {
		key := t.Key()
		if _, exists := base[key]; exists {
			collisions = append(collisions, key)
			continue
		}
		base[key] = t.Ticks()
	}

	copied := make([]model.Task, len(tasks))
	copy(copied, tasks)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = copied
	s.base = base
	s.collisions = collisions
	s.prunePending()
	return collisions
}

// prunePending drops edits that no longer differ from the base.
func (s *TaskStore) prunePending() {
	for key, ticks := range s.pending {
		if base, ok := s.base[key]; ok && base == ticks {
			delete(s.pending, key)
		}
	}
}

// Tasks returns a copy of the task list in source order.
func (s *TaskStore) Tasks() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Len is the number of loaded tasks.
func (s *TaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// Collisions lists keys shared by more than one task in the last reload.
func (s *TaskStore) Collisions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.collisions...)
}

// Ticks returns the current tick state: the base with local edits applied.
func (s *TaskStore) Ticks() model.TickState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.base.Clone()
	for key, ticks := range s.pending {
		if _, ok := out[key]; ok {
			out[key] = ticks
		}
	}
	return out
}

// Get returns the current ticks for key, all-false when unknown.
func (s *TaskStore) Get(key string) model.Ticks {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current(key)
}

func (s *TaskStore) current(key string) model.Ticks {
	if t, ok := s.pending[key]; ok {
		return t
	}
	return s.base[key]
}

// Toggle flips milestone m of the task identified by key.
func (s *TaskStore) Toggle(key string, m model.Milestone) (model.Ticks, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.base[key]; !ok {
		return model.Ticks{}, fmt.Errorf("toggle %s of %q: %w", m, key, ErrUnknownTask)
	}
	next := s.current(key).With(m, !s.current(key).Get(m))
	s.setLocked(key, next)
	return next, nil
}

// Set replaces the ticks of the task identified by key.
func (s *TaskStore) Set(key string, ticks model.Ticks) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.base[key]; !ok {
		return fmt.Errorf("set ticks of %q: %w", key, ErrUnknownTask)
	}
	s.setLocked(key, ticks)
	return nil
}

func (s *TaskStore) setLocked(key string, ticks model.Ticks) {
	if s.base[key] == ticks {
		delete(s.pending, key)
		return
	}
	s.pending[key] = ticks
}

// Restore puts previously persisted local edits back on top of the store.
// Edits for tasks not loaded yet are held until a reload brings them in or
// DropOrphans discards them.
func (s *TaskStore) Restore(edits model.TickState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, ticks := range edits {
		s.pending[key] = ticks
	}
	s.prunePending()
}

// DropOrphans discards local edits for keys the current task list does not
// contain and returns those keys, sorted.
func (s *TaskStore) DropOrphans() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var dropped []string
	for key := range s.pending {
		if _, ok := s.base[key]; !ok {
			delete(s.pending, key)
			dropped = append(dropped, key)
		}
	}
	sort.Strings(dropped)
	return dropped
}

// Pending returns the local edits not yet saved.
func (s *TaskStore) Pending() model.TickState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending.Clone()
}

// Dirty reports whether there are unsaved local edits for loaded tasks.
func (s *TaskStore) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for key := range s.pending {
		if _, ok := s.base[key]; ok {
			return true
		}
	}
	return false
}

// Rows flattens the current tick state into one row per task key, in task order.
func (s *TaskStore) Rows() []model.TickRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]model.TickRow, 0, len(s.base))
	seen := make(map[string]bool, len(s.base))
	for _, t := range s.tasks {
		key := t.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		rows = append(rows, model.NewTickRow(key, s.current(key)))
	}
	return rows
}

// MarkSaved clears local edits that match what was persisted in rows. Edits
// made after the rows were taken are kept.
func (s *TaskStore) MarkSaved(rows []model.TickRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		if ticks, ok := s.pending[r.TaskID]; ok && ticks == r.Ticks() {
			delete(s.pending, r.TaskID)
			s.base[r.TaskID] = ticks
		}
	}
}

// Discard drops every unsaved local edit.
func (s *TaskStore) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = make(model.TickState)
}
