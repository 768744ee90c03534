// Package gateway exposes the operator-facing HTTP surface: health, status,
// the live task list, and Prometheus metrics. It is read-only; approvals are
// never granted or denied through it.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pranav-okta/Cosmos-Circuitry/internal/audit"
	"github.com/pranav-okta/Cosmos-Circuitry/internal/proxy"
	"github.com/pranav-okta/Cosmos-Circuitry/internal/task"
)

// Config holds the gateway's listen settings.
type Config struct {
	Bind         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func (c *Config) defaults() {
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
}

// Gateway is the admin HTTP server. All state it reports is owned by its
// collaborators; it holds nothing but references.
type Gateway struct {
	config    Config
	logger    *slog.Logger
	proxy     *proxy.Proxy
	registry  *task.Registry
	redactor  *audit.Redactor
	gatherer  prometheus.Gatherer
	version   string
	startedAt time.Time
	server    *http.Server
}

// New creates a Gateway. Registry and proxy are required; a nil redactor
// disables argument redaction in the task list.
func New(cfg Config, p *proxy.Proxy, redactor *audit.Redactor, gatherer prometheus.Gatherer, version string, logger *slog.Logger) *Gateway {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		config:   cfg,
		logger:   logger,
		proxy:    p,
		registry: p.Registry(),
		redactor: redactor,
		gatherer: gatherer,
		version:  version,
	}
}

// Start binds the listener and serves until Shutdown. The listen error is
// returned synchronously; serve errors are logged.
func (g *Gateway) Start(ctx context.Context) error {
	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", g.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	g.logger.Info("gateway: listening", "bind", g.config.Bind)
	go func() {
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway: serve failed", "error", err)
		}
	}()
	return nil
}

// Shutdown drains the server.
func (g *Gateway) Shutdown(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	return g.server.Shutdown(ctx)
}
