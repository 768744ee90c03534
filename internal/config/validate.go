package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate checks the loaded configuration for structural errors. It is
// called once at startup; a failing config never starts the proxy.
func Validate(cfg *Config) error {
	if cfg.Version != "1" {
		return fmt.Errorf("config: unsupported version %q (want \"1\")", cfg.Version)
	}

	switch cfg.Server.Transport {
	case "stdio":
	case "http":
		if err := validBind(cfg.Server.Bind); err != nil {
			return fmt.Errorf("config: server.bind: %w", err)
		}
	default:
		return fmt.Errorf("config: server.transport must be stdio or http, got %q", cfg.Server.Transport)
	}

	if cfg.Admin.Bind != "" {
		if err := validBind(cfg.Admin.Bind); err != nil {
			return fmt.Errorf("config: admin.bind: %w", err)
		}
	}

	if err := validateOkta(cfg.Okta); err != nil {
		return err
	}

	if cfg.Approval.PollInterval <= 0 {
		return fmt.Errorf("config: approval.poll_interval must be positive")
	}
	if cfg.Approval.Deadline <= 0 {
		return fmt.Errorf("config: approval.deadline must be positive")
	}
	if cfg.Approval.PollInterval > cfg.Approval.Deadline {
		return fmt.Errorf("config: approval.poll_interval %s exceeds deadline %s",
			cfg.Approval.PollInterval, cfg.Approval.Deadline)
	}

	switch cfg.Audit.Sink {
	case "none":
	case "jsonl", "sqlite":
		if strings.TrimSpace(cfg.Audit.Path) == "" {
			return fmt.Errorf("config: audit.path required for %s sink", cfg.Audit.Sink)
		}
	default:
		return fmt.Errorf("config: audit.sink must be jsonl, sqlite, or none, got %q", cfg.Audit.Sink)
	}

	if len(cfg.Targets) == 0 {
		return fmt.Errorf("config: at least one target is required")
	}
	seen := make(map[string]struct{}, len(cfg.Targets))
	for i, t := range cfg.Targets {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			return fmt.Errorf("config: targets[%d]: name must not be empty", i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("config: duplicate target %q", name)
		}
		seen[name] = struct{}{}

		switch t.Transport {
		case "stdio":
			if strings.TrimSpace(t.Command) == "" {
				return fmt.Errorf("config: target %q: stdio transport requires a command", name)
			}
		case "http":
			if _, err := url.ParseRequestURI(t.URL); err != nil {
				return fmt.Errorf("config: target %q: invalid url: %w", name, err)
			}
		default:
			return fmt.Errorf("config: target %q: transport must be stdio or http, got %q", name, t.Transport)
		}
	}

	return nil
}

func validateOkta(o OktaConfig) error {
	if strings.TrimSpace(o.OrgURL) == "" {
		return fmt.Errorf("config: okta.org_url is required")
	}
	u, err := url.ParseRequestURI(o.OrgURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: okta.org_url is not a valid URL: %q", o.OrgURL)
	}
	if strings.TrimSpace(o.ClientID) == "" {
		return fmt.Errorf("config: okta.client_id is required")
	}
	if strings.TrimSpace(o.Approver) == "" {
		return fmt.Errorf("config: okta.approver is required")
	}
	return nil
}

func validBind(bind string) error {
	if strings.TrimSpace(bind) == "" {
		return fmt.Errorf("bind address must not be empty")
	}
	if _, err := net.ResolveTCPAddr("tcp", bind); err != nil {
		return fmt.Errorf("invalid bind address %q: %w", bind, err)
	}
	return nil
}
