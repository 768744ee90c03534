package policy

import "errors"

var (
	// ErrPolicyNotFound is returned when a target has no configured policy.
	// Callers must reject the request rather than default to allow.
	ErrPolicyNotFound = errors.New("no policy configured for target")

	// ErrEmptyTargetName is returned when a policy has an empty target name.
	ErrEmptyTargetName = errors.New("policy target name must not be empty")

	// ErrDuplicateTarget is returned when two policies share a target name.
	ErrDuplicateTarget = errors.New("duplicate policy target")

	// ErrBlocked is returned when an action is rejected by policy.
	ErrBlocked = errors.New("action blocked by policy")
)
