package approval

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Outcome classifies one poll of the identity provider.
type Outcome struct {
	State  State
	Detail string

	// Err holds the transport failure when State is StateError.
	Err error
}

// State enumerates poll outcomes.
type State int

// State values.
const (
	// StatePending means the approver has not decided yet.
	StatePending State = iota

	// StateApproved means the exchange completed successfully.
	StateApproved

	// StateDenied is terminal: explicit denial, expiry, or an
	// irrecoverable provider error.
	StateDenied

	// StateError is a transport-level failure. Retryable; it must never be
	// conflated with StateDenied and never changes task status.
	StateError
)

// Decision is the terminal result of an awaited approval.
type Decision struct {
	Approved bool
	Detail   string
}

// Config holds the orchestrator's injectable policy knobs.
type Config struct {
	// Approver is the identity of the human approver for every request.
	Approver string

	// ChannelHint selects the out-of-band channel. Defaults to "push".
	ChannelHint string

	// PollInterval is the fixed delay between status checks.
	// Defaults to 4 seconds.
	PollInterval time.Duration

	// Window is the overall deadline, measured from task creation rather
	// than from the last poll. Defaults to 30 seconds.
	Window time.Duration
}

func (c *Config) defaults() {
	if c.ChannelHint == "" {
		c.ChannelHint = "push"
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 4 * time.Second
	}
	if c.Window <= 0 {
		c.Window = 30 * time.Second
	}
}

// Orchestrator manages the lifecycle of out-of-band approvals against an
// Authenticator. It holds no per-task state; tasks live in the registry.
type Orchestrator struct {
	auth   Authenticator
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// NewOrchestrator creates an orchestrator. The now function overrides
// time.Now for testing; pass nil for the default.
func NewOrchestrator(auth Authenticator, cfg Config, logger *slog.Logger, now func() time.Time) *Orchestrator {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{auth: auth, cfg: cfg, logger: logger, now: now}
}

// Window returns the configured approval deadline window.
func (o *Orchestrator) Window() time.Duration {
	return o.cfg.Window
}

// Initiate starts one out-of-band authentication for the named action and
// returns the provider's approval handle. It makes exactly one attempt;
// failures surface as ErrInitiation and the caller decides whether to retry.
func (o *Orchestrator) Initiate(ctx context.Context, action string) (string, error) {
	handle, err := o.auth.Begin(ctx, BeginRequest{
		Approver:    o.cfg.Approver,
		Action:      action,
		ChannelHint: o.cfg.ChannelHint,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInitiation, err)
	}
	if handle == "" {
		return "", fmt.Errorf("%w: provider returned no handle", ErrInitiation)
	}

	o.logger.Info("approval: push sent",
		"action", action,
		"approver", o.cfg.Approver,
	)
	return handle, nil
}

// Poll performs one status check and maps the provider's answer onto an
// Outcome. The three cases are kept strictly apart: still-pending is not an
// error, a completed exchange is approval, and everything else the provider
// reports is a terminal denial carrying the provider's detail. A transport
// failure is StateError, distinct from denial.
func (o *Orchestrator) Poll(ctx context.Context, handle string) Outcome {
	result, err := o.auth.Check(ctx, handle)
	if err != nil {
		return Outcome{State: StateError, Err: err}
	}

	switch result.Status {
	case CheckPending:
		return Outcome{State: StatePending}
	case CheckApproved:
		return Outcome{State: StateApproved}
	default:
		detail := result.Detail
		if detail == "" {
			detail = result.ErrorCode
		}
		return Outcome{State: StateDenied, Detail: detail}
	}
}

// Await polls the handle at the configured interval until a terminal
// outcome or the deadline. The deadline is createdAt plus the window.
// Transport errors are logged and retried within the deadline, never
// surfaced individually. A cancelled context returns ctx.Err so a dropped
// caller stops polling without resolving the task.
func (o *Orchestrator) Await(ctx context.Context, createdAt time.Time, handle string) (Decision, error) {
	deadline := createdAt.Add(o.cfg.Window)

	for {
		out := o.Poll(ctx, handle)
		switch out.State {
		case StateApproved:
			return Decision{Approved: true}, nil
		case StateDenied:
			return Decision{Detail: out.Detail}, fmt.Errorf("%w: %s", ErrDenied, out.Detail)
		case StateError:
			o.logger.Warn("approval: poll transport failure, will retry",
				"error", out.Err,
			)
		case StatePending:
			// Keep waiting.
		}

		remaining := deadline.Sub(o.now())
		if remaining <= 0 {
			return Decision{}, fmt.Errorf("%w after %s", ErrTimeout, o.cfg.Window)
		}

		wait := o.cfg.PollInterval
		if wait > remaining {
			wait = remaining
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Decision{}, ctx.Err()
		case <-timer.C:
		}
	}
}
