package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validYAML = `version: "1"
server:
  transport: stdio
okta:
  org_url: https://example.okta.com/oauth2/v1
  client_id: client-1
  client_secret: ${COSMOS_TEST_SECRET:-fallback-secret}
  approver: admin@example.com
approval:
  poll_interval: 2s
  deadline: 20s
audit:
  sink: jsonl
  path: audit.jsonl
targets:
  - name: github
    transport: stdio
    command: npx
    args: ["-y", "@example/github-mcp"]
    high_risk: [delete_repo, force_push]
    blocked: [admin_access]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cosmos.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Valid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Okta.ClientSecret != "fallback-secret" {
		t.Errorf("env default: got %q, want fallback-secret", cfg.Okta.ClientSecret)
	}
	if cfg.Approval.PollInterval != 2*time.Second {
		t.Errorf("poll_interval: got %v", cfg.Approval.PollInterval)
	}
	if got := len(cfg.Targets); got != 1 {
		t.Fatalf("targets: got %d, want 1", got)
	}
	if cfg.Targets[0].HighRisk[0] != "delete_repo" {
		t.Errorf("high_risk: got %v", cfg.Targets[0].HighRisk)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("COSMOS_TEST_SECRET", "from-env")

	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Okta.ClientSecret != "from-env" {
		t.Errorf("env expansion: got %q, want from-env", cfg.Okta.ClientSecret)
	}
}

func TestLoad_UnresolvedVariable(t *testing.T) {
	yaml := strings.Replace(validYAML, "${COSMOS_TEST_SECRET:-fallback-secret}", "${COSMOS_MISSING_VAR}", 1)
	if _, err := Load(writeConfig(t, yaml)); err == nil {
		t.Fatal("Load should fail on unresolved variable")
	}
}

func TestLoad_Defaults(t *testing.T) {
	yaml := `version: "1"
okta:
  org_url: https://example.okta.com/oauth2/v1
  client_id: c1
  approver: admin@example.com
targets:
  - name: github
    command: npx
`
	cfg, err := Load(writeConfig(t, yaml))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Transport != "stdio" {
		t.Errorf("server transport default: got %q", cfg.Server.Transport)
	}
	if cfg.Okta.ChannelHint != "push" {
		t.Errorf("channel_hint default: got %q", cfg.Okta.ChannelHint)
	}
	if cfg.Approval.PollInterval != 4*time.Second {
		t.Errorf("poll_interval default: got %v", cfg.Approval.PollInterval)
	}
	if cfg.Approval.Deadline != 30*time.Second {
		t.Errorf("deadline default: got %v", cfg.Approval.Deadline)
	}
	if cfg.Audit.Sink != "jsonl" || cfg.Audit.Path != "audit.jsonl" {
		t.Errorf("audit defaults: got %q %q", cfg.Audit.Sink, cfg.Audit.Path)
	}
	if cfg.Targets[0].Transport != "stdio" {
		t.Errorf("target transport default: got %q", cfg.Targets[0].Transport)
	}
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad version", func(c *Config) { c.Version = "2" }},
		{"bad server transport", func(c *Config) { c.Server.Transport = "grpc" }},
		{"missing org url", func(c *Config) { c.Okta.OrgURL = "" }},
		{"bad org url", func(c *Config) { c.Okta.OrgURL = "not a url" }},
		{"missing client id", func(c *Config) { c.Okta.ClientID = "" }},
		{"missing approver", func(c *Config) { c.Okta.Approver = "" }},
		{"negative interval", func(c *Config) { c.Approval.PollInterval = -time.Second }},
		{"interval exceeds deadline", func(c *Config) {
			c.Approval.PollInterval = time.Minute
			c.Approval.Deadline = time.Second
		}},
		{"bad audit sink", func(c *Config) { c.Audit.Sink = "kafka" }},
		{"audit path missing", func(c *Config) { c.Audit.Path = "" }},
		{"no targets", func(c *Config) { c.Targets = nil }},
		{"empty target name", func(c *Config) { c.Targets[0].Name = " " }},
		{"duplicate targets", func(c *Config) {
			c.Targets = append(c.Targets, c.Targets[0])
		}},
		{"stdio without command", func(c *Config) { c.Targets[0].Command = "" }},
		{"http without url", func(c *Config) {
			c.Targets[0].Transport = "http"
			c.Targets[0].URL = ""
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := baseConfig()
			tc.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Errorf("Validate should fail")
			}
		})
	}
}

func TestValidate_AdminBind(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.Admin.Bind = "127.0.0.1:9090"
	if err := Validate(cfg); err != nil {
		t.Errorf("valid admin bind rejected: %v", err)
	}

	cfg.Admin.Bind = "::bad::"
	if err := Validate(cfg); err == nil {
		t.Error("invalid admin bind accepted")
	}
}

func TestTarget_Selection(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.Targets = append(cfg.Targets, TargetConfig{Name: "jira", Transport: "http", URL: "http://localhost:1"})

	if _, ok := cfg.Target("jira"); !ok {
		t.Error("named lookup failed")
	}
	if _, ok := cfg.Target(""); ok {
		t.Error("empty name should not select among multiple targets")
	}

	cfg.Targets = cfg.Targets[:1]
	if got, ok := cfg.Target(""); !ok || got.Name != "github" {
		t.Errorf("sole target: got %v %v", got.Name, ok)
	}
}

func baseConfig() *Config {
	cfg := &Config{
		Version: "1",
		Server:  ServerConfig{Transport: "stdio"},
		Okta: OktaConfig{
			OrgURL:   "https://example.okta.com/oauth2/v1",
			ClientID: "c1",
			Approver: "admin@example.com",
		},
		Approval: ApprovalConfig{PollInterval: 4 * time.Second, Deadline: 30 * time.Second},
		Audit:    AuditConfig{Sink: "jsonl", Path: "audit.jsonl"},
		Targets: []TargetConfig{{
			Name:      "github",
			Transport: "stdio",
			Command:   "npx",
			HighRisk:  []string{"delete_repo"},
			Blocked:   []string{"admin_access"},
		}},
	}
	return cfg
}
