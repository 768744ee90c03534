package approval

import "errors"

var (
	// ErrInitiation is returned when the identity provider is unreachable,
	// refuses the request, or returns no usable handle. The task is never
	// registered in that case.
	ErrInitiation = errors.New("approval initiation failed")

	// ErrDenied is returned on explicit denial or an irrecoverable provider
	// error during polling. Terminal.
	ErrDenied = errors.New("approval denied")

	// ErrTimeout is returned when the deadline elapses with no terminal
	// outcome. Terminal, and distinct from denial.
	ErrTimeout = errors.New("approval timed out")
)
