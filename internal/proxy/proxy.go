// Package proxy intercepts tool invocations between an agent and a
// downstream execution target. Every call is classified against the
// target's policy; high-risk calls are deferred behind an out-of-band
// approval tracked in the task registry. The proxy never lets an internal
// error escape as a protocol failure: every code path returns a well-formed
// tool result.
package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pranav-okta/Cosmos-Circuitry/internal/approval"
	"github.com/pranav-okta/Cosmos-Circuitry/internal/audit"
	"github.com/pranav-okta/Cosmos-Circuitry/internal/downstream"
	"github.com/pranav-okta/Cosmos-Circuitry/internal/policy"
	"github.com/pranav-okta/Cosmos-Circuitry/internal/task"
)

// ProgressFunc reports progress back to the caller while an approval is
// pending. Nil when the caller supplied no progress token.
type ProgressFunc func(ctx context.Context, message string)

// Proxy composes the classifier, orchestrator, registry, audit sink, and
// downstream connection into the two agent-facing operations: list and
// invoke. It owns the registry; the status handler shares it.
type Proxy struct {
	target     downstream.Target
	classifier *policy.Classifier
	orch       *approval.Orchestrator
	registry   *task.Registry
	sink       audit.Sink
	metrics    *Metrics
	logger     *slog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// Options configures a Proxy. Target, Classifier, Orchestrator, and
// Registry are required; the rest default to no-ops.
type Options struct {
	Target     downstream.Target
	Classifier *policy.Classifier
	Orch       *approval.Orchestrator
	Registry   *task.Registry
	Sink       audit.Sink
	Metrics    *Metrics
	Logger     *slog.Logger
	Tracer     trace.Tracer

	// Now overrides time.Now for testing.
	Now func() time.Time
}

// New creates a Proxy.
func New(opts Options) *Proxy {
	if opts.Sink == nil {
		opts.Sink = audit.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("cosmos/proxy")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Proxy{
		target:     opts.Target,
		classifier: opts.Classifier,
		orch:       opts.Orch,
		registry:   opts.Registry,
		sink:       opts.Sink,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		tracer:     opts.Tracer,
		now:        opts.Now,
	}
}

// Registry exposes the task registry for the sweeper and admin surface.
func (p *Proxy) Registry() *task.Registry { return p.registry }

// TargetName returns the active downstream target's name.
func (p *Proxy) TargetName() string { return p.target.Name() }

// Invoke is the central decision point for one tool call. It always
// returns a well-formed result; negative outcomes carry IsError.
func (p *Proxy) Invoke(ctx context.Context, action string, args map[string]any, progress ProgressFunc) *mcp.CallToolResult {
	ctx, span := p.tracer.Start(ctx, "proxy.invoke",
		trace.WithAttributes(
			attribute.String("cosmos.target", p.target.Name()),
			attribute.String("cosmos.action", action),
		))
	defer span.End()

	rawArgs := marshalArgs(args)

	classification, err := p.classifier.Classify(p.target.Name(), action)
	if err != nil {
		p.audit(ctx, audit.Record{
			Target:         p.target.Name(),
			Action:         action,
			Arguments:      rawArgs,
			Classification: audit.Classification("unknown"),
			Outcome:        audit.OutcomePolicyError,
			Detail:         err.Error(),
		})
		p.count(classification, "policy_error")
		return mcp.NewToolResultError(fmt.Sprintf("invocation rejected: %v", err))
	}
	span.SetAttributes(attribute.String("cosmos.classification", string(classification)))

	switch classification {
	case policy.Blocked:
		p.audit(ctx, audit.Record{
			Target:         p.target.Name(),
			Action:         action,
			Arguments:      rawArgs,
			Classification: audit.Classification(classification),
			Outcome:        audit.OutcomeBlocked,
		})
		p.count(classification, "blocked")
		p.logger.Warn("proxy: blocked action", "action", action)
		return mcp.NewToolResultError(fmt.Sprintf("action %q is blocked by policy for target %q", action, p.target.Name()))

	case policy.HighRisk:
		return p.invokeHighRisk(ctx, action, args, rawArgs, progress)

	default: // policy.Allowed — explicit default, never an accidental fallthrough
		return p.forwardAllowed(ctx, action, args, rawArgs)
	}
}

// forwardAllowed passes an allowed action straight downstream and returns
// its result verbatim, success or failure.
func (p *Proxy) forwardAllowed(ctx context.Context, action string, args map[string]any, rawArgs json.RawMessage) *mcp.CallToolResult {
	ctx, span := p.tracer.Start(ctx, "proxy.forward")
	defer span.End()

	result, err := p.target.CallTool(ctx, action, args)
	rec := audit.Record{
		Target:         p.target.Name(),
		Action:         action,
		Arguments:      rawArgs,
		Classification: audit.Classification(policy.Allowed),
		Outcome:        audit.OutcomeForwarded,
	}
	if err != nil {
		rec.Outcome = audit.OutcomeForwardFailed
		rec.Detail = err.Error()
		p.audit(ctx, rec)
		p.count(policy.Allowed, "forward_failed")
		return mcp.NewToolResultError(fmt.Sprintf("downstream execution failed: %v", err))
	}

	p.audit(ctx, rec)
	p.count(policy.Allowed, "forwarded")
	return result
}

// invokeHighRisk defers the action behind an out-of-band approval and polls
// it to a terminal outcome within this call.
func (p *Proxy) invokeHighRisk(ctx context.Context, action string, args map[string]any, rawArgs json.RawMessage, progress ProgressFunc) *mcp.CallToolResult {
	createdAt := p.now()

	handle, err := p.orch.Initiate(ctx, action)
	if err != nil {
		p.audit(ctx, audit.Record{
			Target:         p.target.Name(),
			Action:         action,
			Arguments:      rawArgs,
			Classification: audit.Classification(policy.HighRisk),
			Outcome:        audit.OutcomeInitiationError,
			Detail:         err.Error(),
		})
		p.count(policy.HighRisk, "initiation_error")
		return mcp.NewToolResultError(fmt.Sprintf("could not reach the approval service: %v", err))
	}

	t := task.Task{
		ID:             task.NewID(createdAt),
		Target:         p.target.Name(),
		Action:         action,
		Args:           rawArgs,
		ApprovalHandle: handle,
		Status:         task.StatusPending,
		CreatedAt:      createdAt,
	}
	if err := p.registry.Create(t); err != nil {
		// Cannot happen by construction of the ID scheme; fail the call
		// rather than orphan an initiated approval silently.
		p.logger.Error("proxy: task registration failed", "task_id", t.ID, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("internal error registering approval task: %v", err))
	}

	p.audit(ctx, audit.Record{
		Target:         t.Target,
		Action:         t.Action,
		Arguments:      rawArgs,
		Classification: audit.Classification(policy.HighRisk),
		Outcome:        audit.OutcomeDeferred,
		TaskID:         t.ID,
	})
	p.count(policy.HighRisk, "deferred")
	if p.metrics != nil {
		p.metrics.PendingTasks.Inc()
		defer p.metrics.PendingTasks.Dec()
	}
	p.logger.Info("proxy: awaiting approval",
		"action", action,
		"task_id", t.ID,
		"approver_handle", handle,
	)

	if progress != nil {
		progress(ctx, fmt.Sprintf("approval requested for %q; task %s pending", action, t.ID))
	}

	decision, err := p.orch.Await(ctx, createdAt, handle)
	if p.metrics != nil {
		p.metrics.ApprovalWait.Observe(p.now().Sub(createdAt).Seconds())
	}

	switch {
	case err == nil && decision.Approved:
		// MarkStatus may lose to a concurrent claim; the claim below is
		// the authority, so the error is informational only.
		_ = p.registry.MarkStatus(t.ID, task.StatusApproved)
		claimed, claimErr := p.registry.Claim(t.ID)
		if claimErr != nil {
			p.count(policy.HighRisk, "resolved_elsewhere")
			return mcp.NewToolResultText(fmt.Sprintf(
				"task %s was approved and completed by a concurrent status query", t.ID))
		}
		return p.executeApproved(ctx, claimed)

	case isDenied(err):
		if _, claimErr := p.registry.Claim(t.ID); claimErr == nil {
			p.audit(ctx, audit.Record{
				Target:         t.Target,
				Action:         t.Action,
				Classification: audit.Classification(policy.HighRisk),
				Outcome:        audit.OutcomeDenied,
				TaskID:         t.ID,
				Detail:         decision.Detail,
			})
		}
		p.count(policy.HighRisk, "denied")
		return mcp.NewToolResultError(fmt.Sprintf("approval denied for %q: %s", action, decision.Detail))

	case isTimeout(err):
		if _, claimErr := p.registry.Claim(t.ID); claimErr == nil {
			p.audit(ctx, audit.Record{
				Target:         t.Target,
				Action:         t.Action,
				Classification: audit.Classification(policy.HighRisk),
				Outcome:        audit.OutcomeTimedOut,
				TaskID:         t.ID,
			})
		}
		p.count(policy.HighRisk, "timed_out")
		return mcp.NewToolResultError(fmt.Sprintf(
			"approval for %q timed out; no response within %s", action, p.orch.Window()))

	default:
		// Caller cancelled. The task stays registered and reachable via
		// the status tool until it resolves or the sweeper retires it.
		p.count(policy.HighRisk, "caller_cancelled")
		return mcp.NewToolResultError(fmt.Sprintf(
			"call cancelled while awaiting approval; task %s remains pending and can be checked with %s", t.ID, ToolApprovalStatus))
	}
}

// executeApproved forwards a claimed, approved task downstream. The caller
// must hold the claim; this is the only place an approved task executes.
func (p *Proxy) executeApproved(ctx context.Context, t task.Task) *mcp.CallToolResult {
	ctx, span := p.tracer.Start(ctx, "proxy.execute",
		trace.WithAttributes(attribute.String("cosmos.task_id", t.ID)))
	defer span.End()

	args := unmarshalArgs(t.Args)
	result, err := p.target.CallTool(ctx, t.Action, args)

	rec := audit.Record{
		Target:         t.Target,
		Action:         t.Action,
		Arguments:      t.Args,
		Classification: audit.Classification(policy.HighRisk),
		TaskID:         t.ID,
	}
	switch {
	case err != nil:
		rec.Outcome = audit.OutcomeFailed
		rec.Detail = err.Error()
		p.audit(ctx, rec)
		p.count(policy.HighRisk, "failed")
		return mcp.NewToolResultError(fmt.Sprintf("approved action %q failed downstream: %v", t.Action, err))
	case result.IsError:
		rec.Outcome = audit.OutcomeFailed
		p.audit(ctx, rec)
		p.count(policy.HighRisk, "failed")
		return result
	default:
		rec.Outcome = audit.OutcomeExecuted
		p.audit(ctx, rec)
		p.count(policy.HighRisk, "executed")
		return result
	}
}

func (p *Proxy) audit(ctx context.Context, rec audit.Record) {
	if err := p.sink.Append(ctx, rec); err != nil {
		p.logger.Error("proxy: audit append failed", "error", err)
	}
}

func (p *Proxy) count(classification policy.Classification, outcome string) {
	if p.metrics == nil {
		return
	}
	c := string(classification)
	if c == "" {
		c = "unknown"
	}
	p.metrics.Invocations.WithLabelValues(c, outcome).Inc()
}

func marshalArgs(args map[string]any) json.RawMessage {
	if len(args) == 0 {
		return json.RawMessage(`{}`)
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return raw
}

func unmarshalArgs(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil
	}
	return args
}
