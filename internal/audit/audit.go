// Package audit records every invocation attempt to an append-only sink.
// The sink contract is append-only: there is no mutation or deletion API.
package audit

import (
	"context"
	"encoding/json"
	"time"
)

// Classification mirrors the policy decision attached to a record.
type Classification string

// Outcome summarizes how an invocation attempt ended.
type Outcome string

// Outcome values covering every path through the interceptor.
const (
	OutcomeBlocked         Outcome = "blocked"
	OutcomePolicyError     Outcome = "policy_error"
	OutcomeForwarded       Outcome = "forwarded"
	OutcomeForwardFailed   Outcome = "forward_failed"
	OutcomeInitiationError Outcome = "initiation_error"
	OutcomeDeferred        Outcome = "deferred"
	OutcomeApproved        Outcome = "approved"
	OutcomeDenied          Outcome = "denied"
	OutcomeTimedOut        Outcome = "timed_out"
	OutcomeExecuted        Outcome = "executed"
	OutcomeFailed          Outcome = "failed"
)

// Record is one audit entry. Every invocation attempt produces at least one
// record regardless of how it ends.
type Record struct {
	Timestamp      time.Time       `json:"timestamp"`
	Target         string          `json:"target"`
	Action         string          `json:"action"`
	Arguments      json.RawMessage `json:"arguments,omitempty"`
	Classification Classification  `json:"classification"`
	Outcome        Outcome         `json:"outcome"`
	TaskID         string          `json:"task_id,omitempty"`
	Detail         string          `json:"detail,omitempty"`
}

// Sink appends records. Implementations must be safe for concurrent use.
type Sink interface {
	Append(ctx context.Context, rec Record) error
	Close() error
}

// Nop is a Sink that drops every record. Used when auditing is disabled
// and in tests that do not assert on audit output.
type Nop struct{}

// Append implements Sink.
func (Nop) Append(context.Context, Record) error { return nil }

// Close implements Sink.
func (Nop) Close() error { return nil }
