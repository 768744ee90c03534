package proxy

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// BuildServer constructs the agent-facing MCP server: the downstream tool
// catalog registered through the interceptor, plus the two synthetic tools.
// The downstream catalog is fetched once at startup; targets that change
// their tool set require a restart.
func (p *Proxy) BuildServer(ctx context.Context, name, version string) (*server.MCPServer, error) {
	s := server.NewMCPServer(name, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	tools, err := p.Tools(ctx)
	if err != nil {
		return nil, fmt.Errorf("build server: %w", err)
	}

	for _, tool := range tools {
		switch tool.Name {
		case ToolApprovalStatus:
			s.AddTool(tool, p.handleApprovalStatus)
		case ToolHighRiskActions:
			s.AddTool(tool, p.handleHighRiskActions)
		default:
			s.AddTool(tool, p.handleInvoke)
		}
	}

	p.logger.Info("proxy: tool catalog registered",
		"target", p.target.Name(),
		"tools", len(tools),
	)
	return s, nil
}

func (p *Proxy) handleInvoke(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return p.Invoke(ctx, req.Params.Name, req.GetArguments(), progressFunc(req)), nil
}

func (p *Proxy) handleApprovalStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID := req.GetString("task_id", "")
	return p.CheckStatus(ctx, taskID), nil
}

func (p *Proxy) handleHighRiskActions(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return p.ListHighRisk(), nil
}

// progressFunc builds a progress notifier bound to the request's progress
// token, or nil when the caller supplied none.
func progressFunc(req mcp.CallToolRequest) ProgressFunc {
	if req.Params.Meta == nil || req.Params.Meta.ProgressToken == nil {
		return nil
	}
	token := req.Params.Meta.ProgressToken
	return func(ctx context.Context, message string) {
		srv := server.ServerFromContext(ctx)
		if srv == nil {
			return
		}
		_ = srv.SendNotificationToClient(ctx, "notifications/progress", map[string]any{
			"progressToken": token,
			"progress":      0,
			"message":       message,
		})
	}
}
