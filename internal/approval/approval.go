// Package approval drives one out-of-band approval end-to-end: initiate a
// push request with the identity provider, poll its outcome, and interpret
// the result under a deadline measured from task creation.
package approval

import "context"

// CheckStatus is the provider-level outcome of a single status check.
type CheckStatus string

// CheckStatus values.
const (
	// CheckPending means the approver has not responded yet. This is a
	// normal outcome, not an error.
	CheckPending CheckStatus = "pending"

	// CheckApproved means the provider completed the exchange: the human
	// approved the request.
	CheckApproved CheckStatus = "approved"

	// CheckDenied covers explicit denial, expiry, and invalid or expired
	// handles. The provider's error detail is carried for diagnostics.
	CheckDenied CheckStatus = "denied"
)

// BeginRequest describes one out-of-band authentication to start.
type BeginRequest struct {
	// Approver is the identity of the human who must confirm the action.
	Approver string

	// Action is the tool name awaiting approval. Carried for logging and
	// audit only; the push channel does not transport it.
	Action string

	// ChannelHint selects the provider's delivery channel (push).
	ChannelHint string
}

// CheckResult is the provider-level result of one status check.
type CheckResult struct {
	Status CheckStatus

	// ErrorCode is the provider's error code when Status is CheckDenied.
	ErrorCode string

	// Detail is the provider's human-readable error description.
	Detail string
}

// Authenticator is the identity-provider surface the orchestrator depends
// on. Implementations send client credentials with every call.
type Authenticator interface {
	// Begin starts an out-of-band authentication and returns the provider's
	// opaque correlation handle. It is attempted once; retry is the
	// caller's decision.
	Begin(ctx context.Context, req BeginRequest) (handle string, err error)

	// Check performs one poll of the handle's outcome. A non-nil error
	// means the provider was unreachable (transport failure) and the check
	// may be retried; provider-level denials are reported in CheckResult,
	// never as an error.
	Check(ctx context.Context, handle string) (CheckResult, error)
}
