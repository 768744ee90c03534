package task

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is an in-memory map of pending tasks keyed by task ID.
// It is instance-based (not global) and safe for concurrent use: create,
// get, and claim on the same ID are linearizable, and operations on
// different IDs never interfere.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*Task)}
}

// Create adds a task. It returns ErrDuplicateID if the ID is already
// present, which must not happen by construction of the ID scheme.
func (r *Registry) Create(t Task) error {
	if t.ID == "" {
		return ErrEmptyID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[t.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, t.ID)
	}

	cp := t
	r.tasks[t.ID] = &cp
	return nil
}

// Get returns a snapshot of the task, or ErrNotFound.
func (r *Registry) Get(id string) (Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *t, nil
}

// Claim atomically removes the task and returns it. Exactly one of any
// number of racing claimers succeeds; the rest observe ErrNotFound. The
// claimer becomes the sole authority for the task's terminal transition
// and for any deferred downstream execution.
func (r *Registry) Claim(id string) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(r.tasks, id)
	return *t, nil
}

// MarkStatus transitions a task's status. Transitions only move forward
// through the lifecycle graph; an attempt to move backward (or to leave a
// terminal state) returns ErrInvalidTransition. Unknown IDs return
// ErrNotFound.
func (r *Registry) MarkStatus(id string, status Status) error {
	if status.rank() < 0 {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if status.rank() <= t.Status.rank() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, status)
	}
	t.Status = status
	return nil
}

// List returns snapshots of all live tasks, ordered by creation time.
func (r *Registry) List() []Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of live tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}
