// Package task tracks deferred high-risk invocations awaiting out-of-band
// approval. The registry is the only shared mutable state in the proxy; its
// Claim operation is the single authority that lets exactly one caller carry
// a task past approval.
package task

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an approval task.
type Status string

// Status values. Pending is the sole initial state; Executed, Failed,
// Denied, and TimedOut are terminal. A task never returns to Pending.
const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
	StatusTimedOut Status = "timed_out"
	StatusExecuted Status = "executed"
	StatusFailed   Status = "failed"
)

// Terminal reports whether s is a terminal status.
func (s Status) Terminal() bool {
	switch s {
	case StatusDenied, StatusTimedOut, StatusExecuted, StatusFailed:
		return true
	default:
		return false
	}
}

// rank orders statuses along the transition graph. Transitions must move
// strictly forward; terminal statuses share the highest rank so no terminal
// status can be overwritten by another.
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusApproved:
		return 1
	case StatusDenied, StatusTimedOut, StatusExecuted, StatusFailed:
		return 2
	default:
		return -1
	}
}

// Task is one deferred high-risk invocation. The original action name and
// arguments are held verbatim for replay after approval.
type Task struct {
	// ID uniquely identifies the task within the registry's lifetime.
	ID string

	// Target is the downstream target the action belongs to.
	Target string

	// Action is the requested tool name.
	Action string

	// Args is the original argument payload, replayed on approval.
	Args json.RawMessage

	// ApprovalHandle is the identity provider's correlation token for the
	// out-of-band request. Immutable once set.
	ApprovalHandle string

	// Status is the current lifecycle state.
	Status Status

	// CreatedAt is when the task was registered. The approval deadline is
	// measured from this instant, not from the last poll.
	CreatedAt time.Time
}

// NewID generates a registry-unique task identifier: creation time plus a
// random suffix so concurrent creations in the same nanosecond cannot
// collide.
func NewID(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixNano(), uuid.NewString()[:8])
}

// Deadline returns the instant the approval window closes.
func (t Task) Deadline(window time.Duration) time.Time {
	return t.CreatedAt.Add(window)
}
