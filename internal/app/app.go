// Package app wires the proxy's components together and owns the process
// lifecycle: config load, logger, audit sink, identity provider client,
// downstream connection, sweeper, admin gateway, and the agent-facing MCP
// server, torn down in reverse order on shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/pranav-okta/Cosmos-Circuitry/internal/approval"
	"github.com/pranav-okta/Cosmos-Circuitry/internal/audit"
	"github.com/pranav-okta/Cosmos-Circuitry/internal/config"
	"github.com/pranav-okta/Cosmos-Circuitry/internal/downstream"
	"github.com/pranav-okta/Cosmos-Circuitry/internal/gateway"
	"github.com/pranav-okta/Cosmos-Circuitry/internal/okta"
	"github.com/pranav-okta/Cosmos-Circuitry/internal/policy"
	"github.com/pranav-okta/Cosmos-Circuitry/internal/proxy"
	"github.com/pranav-okta/Cosmos-Circuitry/internal/task"
	"github.com/pranav-okta/Cosmos-Circuitry/internal/telemetry"
)

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is the path to the YAML configuration file.
	ConfigPath string

	// TargetName selects which configured target to serve. Empty selects a
	// sole configured target.
	TargetName string

	// Version and Commit are injected at build time via ldflags.
	Version string
	Commit  string

	// LogLevel sets the minimum log level. Defaults to slog.LevelInfo.
	LogLevel slog.Level
}

// Run loads configuration, connects the downstream target, and serves until
// a shutdown signal arrives.
func Run(params RunParams) error {
	cfg, err := config.Load(params.ConfigPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	// The redactor guards both the logs and the audit trail. Seed it with
	// the one secret we know about up front.
	redactor := audit.NewRedactor()
	redactor.AddLiteral(cfg.Okta.ClientSecret)

	// Stderr keeps stdout clean for the stdio MCP transport.
	logger := slog.New(audit.NewRedactingHandler(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: params.LogLevel}),
		redactor,
	))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		ServiceName:    "cosmos-circuitry",
		ServiceVersion: params.Version,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	sink, err := openSink(cfg.Audit, redactor)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Warn("audit sink close failed", "error", err)
		}
	}()

	classifier, err := policy.NewClassifier(cfg.Policies())
	if err != nil {
		return err
	}

	targetCfg, ok := cfg.Target(params.TargetName)
	if !ok {
		return fmt.Errorf("no target %q in configuration", params.TargetName)
	}

	conn, err := downstream.Connect(ctx, targetCfg.Downstream(), params.Version, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Warn("downstream close failed", "error", err)
		}
	}()

	authenticator := okta.NewClient(okta.Config{
		OrgURL:       cfg.Okta.OrgURL,
		ClientID:     cfg.Okta.ClientID,
		ClientSecret: cfg.Okta.ClientSecret,
	})
	orch := approval.NewOrchestrator(authenticator, approval.Config{
		Approver:     cfg.Okta.Approver,
		ChannelHint:  cfg.Okta.ChannelHint,
		PollInterval: cfg.Approval.PollInterval,
		Window:       cfg.Approval.Deadline,
	}, logger, nil)

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	registry := task.NewRegistry()
	p := proxy.New(proxy.Options{
		Target:     conn,
		Classifier: classifier,
		Orch:       orch,
		Registry:   registry,
		Sink:       sink,
		Metrics:    proxy.NewMetrics(promRegistry),
		Logger:     logger,
	})

	sweeper := task.NewSweeper(task.SweeperConfig{
		Registry: registry,
		Window:   cfg.Approval.Deadline,
		Logger:   logger,
		OnSweep: func(swept task.Task) {
			_ = sink.Append(context.Background(), audit.Record{
				Target:         swept.Target,
				Action:         swept.Action,
				Classification: audit.Classification(policy.HighRisk),
				Outcome:        audit.OutcomeTimedOut,
				TaskID:         swept.ID,
			})
		},
	})
	if err := sweeper.Start(); err != nil {
		return err
	}
	defer sweeper.Stop()

	if cfg.Admin.Bind != "" {
		gw := gateway.New(gateway.Config{Bind: cfg.Admin.Bind}, p, redactor, promRegistry, params.Version, logger)
		if err := gw.Start(ctx); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := gw.Shutdown(shutdownCtx); err != nil {
				logger.Warn("gateway shutdown failed", "error", err)
			}
		}()
	}

	mcpServer, err := p.BuildServer(ctx, "cosmos-circuitry", params.Version)
	if err != nil {
		return err
	}

	logger.Info("serving",
		"version", params.Version,
		"commit", params.Commit,
		"target", targetCfg.Name,
		"transport", cfg.Server.Transport,
	)
	return serve(ctx, cfg.Server, mcpServer, logger)
}

// serve runs the agent-facing MCP server until the context is cancelled.
func serve(ctx context.Context, cfg config.ServerConfig, s *server.MCPServer, logger *slog.Logger) error {
	switch cfg.Transport {
	case "http":
		httpServer := server.NewStreamableHTTPServer(s)
		errCh := make(chan error, 1)
		go func() {
			errCh <- httpServer.Start(cfg.Bind)
		}()
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("server shutdown failed", "error", err)
			}
			return nil
		case err := <-errCh:
			return err
		}
	default: // stdio
		errCh := make(chan error, 1)
		go func() {
			errCh <- server.ServeStdio(s)
		}()
		select {
		case <-ctx.Done():
			// Stdio serving ends when the agent closes the pipe; a signal
			// just exits the process.
			return nil
		case err := <-errCh:
			return err
		}
	}
}

// openSink builds the configured audit sink.
func openSink(cfg config.AuditConfig, redactor *audit.Redactor) (audit.Sink, error) {
	switch cfg.Sink {
	case "none":
		return audit.Nop{}, nil
	case "sqlite":
		return audit.OpenSQLiteSink(cfg.Path, redactor)
	default: // jsonl
		return audit.OpenJSONLSink(cfg.Path, redactor)
	}
}
