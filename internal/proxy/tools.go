package proxy

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pranav-okta/Cosmos-Circuitry/internal/policy"
)

// Synthetic tool names exposed alongside the downstream catalog.
const (
	// ToolApprovalStatus queries a deferred task by its task_id.
	ToolApprovalStatus = "cosmos_approval_status"

	// ToolHighRiskActions lists the action names that require approval
	// for the active target.
	ToolHighRiskActions = "cosmos_list_high_risk_tools"
)

// Tools returns the downstream catalog with the two synthetic tools
// appended. Downstream tools that collide with a synthetic name are dropped
// with a warning; the synthetic surface always wins.
func (p *Proxy) Tools(ctx context.Context) ([]mcp.Tool, error) {
	downstream, err := p.target.ListTools(ctx)
	if err != nil {
		return nil, err
	}

	tools := make([]mcp.Tool, 0, len(downstream)+2)
	for _, t := range downstream {
		if t.Name == ToolApprovalStatus || t.Name == ToolHighRiskActions {
			p.logger.Warn("proxy: downstream tool shadows a reserved name, dropping",
				"tool", t.Name, "target", p.target.Name())
			continue
		}
		tools = append(tools, t)
	}

	tools = append(tools,
		mcp.NewTool(ToolApprovalStatus,
			mcp.WithDescription("Check the approval status of a deferred high-risk action. Executes the action if the approval has since been granted."),
			mcp.WithString("task_id",
				mcp.Required(),
				mcp.Description("Task identifier returned when the action was deferred."),
			),
		),
		mcp.NewTool(ToolHighRiskActions,
			mcp.WithDescription("List the action names that require out-of-band approval on the active target."),
		),
	)
	return tools, nil
}

// highRiskReply is the JSON payload of the high-risk listing tool.
type highRiskReply struct {
	Target  string   `json:"target"`
	Actions []string `json:"actions"`
}

// ListHighRisk answers the synthetic policy-listing tool from the
// classifier's view of the active target.
func (p *Proxy) ListHighRisk() *mcp.CallToolResult {
	actions, err := p.classifier.HighRiskActions(p.target.Name())
	if err != nil {
		// Only reachable if the target was never configured; report it the
		// same way Invoke does instead of leaking a protocol error.
		return mcp.NewToolResultError(fmt.Sprintf("invocation rejected: %v", err))
	}
	if actions == nil {
		actions = []string{}
	}
	raw, err := json.Marshal(highRiskReply{Target: p.target.Name(), Actions: actions})
	if err != nil {
		return mcp.NewToolResultError("internal error encoding policy reply")
	}
	return mcp.NewToolResultText(string(raw))
}

// Classifier exposes classification for the admin surface.
func (p *Proxy) Classifier() *policy.Classifier { return p.classifier }
