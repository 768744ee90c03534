package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pranav-okta/Cosmos-Circuitry/internal/approval"
	"github.com/pranav-okta/Cosmos-Circuitry/internal/audit"
	"github.com/pranav-okta/Cosmos-Circuitry/internal/policy"
	"github.com/pranav-okta/Cosmos-Circuitry/internal/task"
)

// statusReply is the JSON payload returned by the approval-status tool.
type statusReply struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
	Action string `json:"action,omitempty"`
	Age    string `json:"age,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// CheckStatus resolves one status query for a deferred task. It performs at
// most one provider poll. When the provider has decided, this handler races
// the original invocation for the claim; whichever side wins executes, and
// the loser reports the task as already resolved.
func (p *Proxy) CheckStatus(ctx context.Context, taskID string) *mcp.CallToolResult {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return mcp.NewToolResultError("task_id is required")
	}

	t, err := p.registry.Get(taskID)
	if err != nil {
		// Unknown and already-resolved tasks are indistinguishable on
		// purpose: the registry holds only live tasks.
		return statusResult(statusReply{TaskID: taskID, Status: "no_active_task"})
	}

	if p.now().After(t.Deadline(p.orch.Window())) {
		return p.retireExpired(ctx, t)
	}

	out := p.orch.Poll(ctx, t.ApprovalHandle)
	switch out.State {
	case approval.StatePending:
		return statusResult(statusReply{
			TaskID: t.ID,
			Status: string(task.StatusPending),
			Action: t.Action,
			Age:    p.now().Sub(t.CreatedAt).Round(time.Millisecond).String(),
		})

	case approval.StateApproved:
		_ = p.registry.MarkStatus(t.ID, task.StatusApproved)
		claimed, claimErr := p.registry.Claim(t.ID)
		if claimErr != nil {
			// The awaiting invocation won the race and is executing.
			return statusResult(statusReply{TaskID: t.ID, Status: "no_active_task"})
		}
		p.count(policy.HighRisk, "executed_via_status")
		return p.executeApproved(ctx, claimed)

	case approval.StateDenied:
		if _, claimErr := p.registry.Claim(t.ID); claimErr == nil {
			p.audit(ctx, audit.Record{
				Target:         t.Target,
				Action:         t.Action,
				Classification: audit.Classification(policy.HighRisk),
				Outcome:        audit.OutcomeDenied,
				TaskID:         t.ID,
				Detail:         out.Detail,
			})
		}
		return statusResult(statusReply{
			TaskID: t.ID,
			Status: string(task.StatusDenied),
			Action: t.Action,
			Detail: out.Detail,
		})

	default: // approval.StateError
		p.logger.Warn("proxy: status poll transport failure", "task_id", t.ID, "error", out.Err)
		return mcp.NewToolResultError(fmt.Sprintf(
			"approval service unreachable while checking task %s; try again", t.ID))
	}
}

// retireExpired claims a task whose approval window has lapsed and reports
// the timeout. The loser of the claim sees the task as already gone.
func (p *Proxy) retireExpired(ctx context.Context, t task.Task) *mcp.CallToolResult {
	if _, err := p.registry.Claim(t.ID); err != nil {
		return statusResult(statusReply{TaskID: t.ID, Status: "no_active_task"})
	}
	p.audit(ctx, audit.Record{
		Target:         t.Target,
		Action:         t.Action,
		Classification: audit.Classification(policy.HighRisk),
		Outcome:        audit.OutcomeTimedOut,
		TaskID:         t.ID,
	})
	return statusResult(statusReply{
		TaskID: t.ID,
		Status: string(task.StatusTimedOut),
		Action: t.Action,
		Detail: fmt.Sprintf("no approval within %s", p.orch.Window()),
	})
}

func statusResult(reply statusReply) *mcp.CallToolResult {
	raw, err := json.Marshal(reply)
	if err != nil {
		return mcp.NewToolResultError("internal error encoding status reply")
	}
	return mcp.NewToolResultText(string(raw))
}
