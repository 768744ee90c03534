// Package downstream manages the proxy's connection to the execution
// target: an MCP server reached over stdio or streamable HTTP. The proxy
// holds exactly one live connection per target for its whole lifetime;
// reconnect-on-failure is a collaborator concern.
package downstream

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// Target is the execution surface the proxy forwards approved actions to.
type Target interface {
	// Name identifies the target for policy lookup and audit.
	Name() string

	// ListTools returns the target's tool definitions.
	ListTools(ctx context.Context) ([]mcp.Tool, error)

	// CallTool executes one tool and returns its result. A non-nil error
	// means the call could not be completed; a result with IsError set is
	// the target's own failure report and is returned verbatim.
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
}

// Transport selects how the target is reached.
type Transport string

// Transport values.
const (
	TransportStdio Transport = "stdio"
	TransportHTTP  Transport = "http"
)

// Config describes one downstream target connection.
type Config struct {
	// Name is the target name, matching a policy entry.
	Name string

	// Transport is stdio or http.
	Transport Transport

	// Command and Args launch the target process for stdio transport.
	Command string
	Args    []string

	// Env is extra environment for the stdio process, KEY=VALUE form.
	Env []string

	// URL is the streamable HTTP endpoint for http transport.
	URL string
}

// Conn is one live connection to a downstream MCP server.
type Conn struct {
	name   string
	client *client.Client
	logger *slog.Logger
}

// Compile-time check.
var _ Target = (*Conn)(nil)

// Connect establishes the connection and performs the MCP initialize
// handshake. The returned Conn stays live until Close.
func Connect(ctx context.Context, cfg Config, version string, logger *slog.Logger) (*Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		c   *client.Client
		err error
	)
	switch cfg.Transport {
	case TransportStdio:
		if strings.TrimSpace(cfg.Command) == "" {
			return nil, fmt.Errorf("downstream %s: %w", cfg.Name, ErrNoCommand)
		}
		c, err = client.NewStdioMCPClient(cfg.Command, cfg.Env, cfg.Args...)
		if err != nil {
			return nil, fmt.Errorf("downstream %s: start %s: %w", cfg.Name, cfg.Command, err)
		}
	case TransportHTTP:
		if strings.TrimSpace(cfg.URL) == "" {
			return nil, fmt.Errorf("downstream %s: %w", cfg.Name, ErrNoURL)
		}
		c, err = client.NewStreamableHttpClient(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("downstream %s: dial %s: %w", cfg.Name, cfg.URL, err)
		}
		if err := c.Start(ctx); err != nil {
			return nil, fmt.Errorf("downstream %s: start transport: %w", cfg.Name, err)
		}
	default:
		return nil, fmt.Errorf("downstream %s: %w: %q", cfg.Name, ErrUnknownTransport, cfg.Transport)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "cosmos-circuitry",
		Version: version,
	}

	initRes, err := c.Initialize(ctx, initReq)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("downstream %s: initialize: %w", cfg.Name, err)
	}

	logger.Info("downstream: connected",
		"target", cfg.Name,
		"server", initRes.ServerInfo.Name,
		"server_version", initRes.ServerInfo.Version,
	)

	return &Conn{name: cfg.Name, client: c, logger: logger}, nil
}

// Name implements Target.
func (c *Conn) Name() string { return c.name }

// ListTools implements Target.
func (c *Conn) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	res, err := c.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("downstream %s: list tools: %w", c.name, err)
	}
	return res.Tools, nil
}

// CallTool implements Target.
func (c *Conn) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := c.client.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("downstream %s: call %s: %w", c.name, name, err)
	}
	return res, nil
}

// Close terminates the connection.
func (c *Conn) Close() error {
	return c.client.Close()
}
