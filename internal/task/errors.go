package task

import "errors"

var (
	// ErrNotFound is returned when a task ID is absent from the registry,
	// either because it never existed or because it already resolved and
	// was claimed. Callers cannot distinguish the two, by design.
	ErrNotFound = errors.New("task not found")

	// ErrDuplicateID is returned when creating a task whose ID is already
	// registered.
	ErrDuplicateID = errors.New("task already registered")

	// ErrEmptyID is returned when creating a task with an empty ID.
	ErrEmptyID = errors.New("task id must not be empty")

	// ErrInvalidTransition is returned for a status change that would move
	// backward through the task lifecycle.
	ErrInvalidTransition = errors.New("invalid status transition")
)
