// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for the proxy.
package config

import (
	"time"

	"github.com/pranav-okta/Cosmos-Circuitry/internal/downstream"
	"github.com/pranav-okta/Cosmos-Circuitry/internal/policy"
)

// Config is the top-level configuration structure. It is loaded once at
// startup and immutable thereafter.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// Server configures the agent-facing MCP surface.
	Server ServerConfig `yaml:"server"`

	// Admin configures the observability HTTP server. An empty bind
	// disables it.
	Admin AdminConfig `yaml:"admin"`

	// Okta configures the identity provider used for out-of-band approvals.
	Okta OktaConfig `yaml:"okta"`

	// Approval configures the polling policy for pending approvals.
	Approval ApprovalConfig `yaml:"approval"`

	// Audit configures the append-only audit sink.
	Audit AuditConfig `yaml:"audit"`

	// Telemetry configures optional trace export.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Targets lists the downstream execution targets and their policies.
	Targets []TargetConfig `yaml:"targets"`
}

// ServerConfig selects the agent-facing transport.
type ServerConfig struct {
	// Transport is "stdio" (default) or "http".
	Transport string `yaml:"transport"`

	// Bind is the listen address for http transport.
	Bind string `yaml:"bind"`
}

// AdminConfig configures the admin HTTP server.
type AdminConfig struct {
	Bind string `yaml:"bind"`
}

// OktaConfig holds identity provider credentials and the approver identity.
type OktaConfig struct {
	// OrgURL is the issuer base, e.g. "https://example.okta.com/oauth2/v1".
	OrgURL string `yaml:"org_url"`

	// ClientID and ClientSecret are sent with every provider call.
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`

	// Approver is the login of the human who receives push requests.
	Approver string `yaml:"approver"`

	// ChannelHint selects the out-of-band channel. Defaults to "push".
	ChannelHint string `yaml:"channel_hint"`
}

// ApprovalConfig holds the injectable polling policy.
type ApprovalConfig struct {
	// PollInterval is the delay between provider status checks.
	// Defaults to 4s.
	PollInterval time.Duration `yaml:"poll_interval"`

	// Deadline bounds the whole approval, measured from task creation.
	// Defaults to 30s.
	Deadline time.Duration `yaml:"deadline"`
}

// AuditConfig selects and configures the audit sink.
type AuditConfig struct {
	// Sink is "jsonl" (default), "sqlite", or "none".
	Sink string `yaml:"sink"`

	// Path is the sink file location.
	Path string `yaml:"path"`
}

// TelemetryConfig configures the OTLP trace exporter. An empty endpoint
// disables tracing.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// TargetConfig describes one downstream target and its invocation policy.
type TargetConfig struct {
	// Name identifies the target; must be unique.
	Name string `yaml:"name"`

	// Transport is "stdio" (default) or "http".
	Transport string `yaml:"transport"`

	// Command, Args, and Env launch a stdio target.
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Env     []string `yaml:"env"`

	// URL is the endpoint of an http target.
	URL string `yaml:"url"`

	// HighRisk lists action names requiring approval.
	HighRisk []string `yaml:"high_risk"`

	// Blocked lists action names that never execute. An action in both
	// lists is blocked: blocked beats high-risk.
	Blocked []string `yaml:"blocked"`
}

// Defaults applied after load.
const (
	defaultTransport    = "stdio"
	defaultAuditSink    = "jsonl"
	defaultAuditPath    = "audit.jsonl"
	defaultChannelHint  = "push"
	defaultPollInterval = 4 * time.Second
	defaultDeadline     = 30 * time.Second
)

func (c *Config) applyDefaults() {
	if c.Server.Transport == "" {
		c.Server.Transport = defaultTransport
	}
	if c.Okta.ChannelHint == "" {
		c.Okta.ChannelHint = defaultChannelHint
	}
	if c.Approval.PollInterval == 0 {
		c.Approval.PollInterval = defaultPollInterval
	}
	if c.Approval.Deadline == 0 {
		c.Approval.Deadline = defaultDeadline
	}
	if c.Audit.Sink == "" {
		c.Audit.Sink = defaultAuditSink
	}
	if c.Audit.Sink == "jsonl" && c.Audit.Path == "" {
		c.Audit.Path = defaultAuditPath
	}
	for i := range c.Targets {
		if c.Targets[i].Transport == "" {
			c.Targets[i].Transport = defaultTransport
		}
	}
}

// Policies converts the target list into classifier policies.
func (c *Config) Policies() []policy.TargetPolicy {
	out := make([]policy.TargetPolicy, 0, len(c.Targets))
	for _, t := range c.Targets {
		out = append(out, policy.TargetPolicy{
			Target:   t.Name,
			HighRisk: t.HighRisk,
			Blocked:  t.Blocked,
		})
	}
	return out
}

// Target returns the named target config, or false when absent. An empty
// name selects a sole configured target.
func (c *Config) Target(name string) (TargetConfig, bool) {
	if name == "" && len(c.Targets) == 1 {
		return c.Targets[0], true
	}
	for _, t := range c.Targets {
		if t.Name == name {
			return t, true
		}
	}
	return TargetConfig{}, false
}

// Downstream converts a target config into a connection config.
func (t TargetConfig) Downstream() downstream.Config {
	return downstream.Config{
		Name:      t.Name,
		Transport: downstream.Transport(t.Transport),
		Command:   t.Command,
		Args:      t.Args,
		Env:       t.Env,
		URL:       t.URL,
	}
}
