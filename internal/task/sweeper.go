package task

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper retires abandoned tasks on a cron schedule. A task whose caller
// disconnected mid-poll stays in the registry, reachable only through the
// status tool; once its approval window has passed, the sweeper claims it
// and reports it timed out so the registry cannot grow without bound.
type Sweeper struct {
	registry *Registry
	window   time.Duration
	logger   *slog.Logger
	onSweep  func(Task)
	now      func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
	lock sync.Mutex // serializes sweep ticks; TryLock skips overlapping runs
}

// SweeperConfig configures a Sweeper.
type SweeperConfig struct {
	// Registry is the task registry to sweep.
	Registry *Registry

	// Window is the approval deadline measured from task creation. Tasks
	// still pending past their deadline are swept.
	Window time.Duration

	// Logger receives sweep activity. Defaults to slog.Default.
	Logger *slog.Logger

	// OnSweep, if non-nil, is called for every swept task (audit wiring).
	OnSweep func(Task)

	// Now overrides time.Now for testing.
	Now func() time.Time
}

// NewSweeper creates a sweeper. Start must be called to begin sweeping.
func NewSweeper(cfg SweeperConfig) *Sweeper {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Sweeper{
		registry: cfg.Registry,
		window:   cfg.Window,
		logger:   logger,
		onSweep:  cfg.OnSweep,
		now:      now,
	}
}

// Start begins periodic sweeping. The tick interval tracks the approval
// window so an abandoned task is retired within one window of expiring.
func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return nil
	}

	c := cron.New()
	spec := fmt.Sprintf("@every %s", tickInterval(s.window))
	if _, err := c.AddFunc(spec, s.tick); err != nil {
		return fmt.Errorf("task: sweep schedule %q: %w", spec, err)
	}
	c.Start()
	s.cron = c
	return nil
}

// Stop halts sweeping. Safe to call multiple times.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		s.cron.Stop()
		s.cron = nil
	}
}

func (s *Sweeper) tick() {
	// Skip the tick if the previous one is still running.
	if !s.lock.TryLock() {
		s.logger.Warn("task: sweep still running, skipping tick")
		return
	}
	defer s.lock.Unlock()

	s.Sweep()
}

// Sweep claims every pending task whose deadline has passed and reports it
// through OnSweep with status TimedOut. It returns the number of tasks
// retired. Exported for direct invocation in tests and shutdown paths.
func (s *Sweeper) Sweep() int {
	now := s.now()
	swept := 0
	for _, t := range s.registry.List() {
		if t.Status.Terminal() || now.Before(t.Deadline(s.window)) {
			continue
		}
		claimed, err := s.registry.Claim(t.ID)
		if err != nil {
			// Lost the claim to a concurrent status query; nothing to do.
			continue
		}
		claimed.Status = StatusTimedOut
		swept++
		s.logger.Info("task: swept expired approval",
			"task_id", claimed.ID,
			"action", claimed.Action,
			"age", now.Sub(claimed.CreatedAt),
		)
		if s.onSweep != nil {
			s.onSweep(claimed)
		}
	}
	return swept
}

// tickInterval derives the sweep cadence from the approval window,
// clamped so very short test windows do not produce sub-second cron specs.
func tickInterval(window time.Duration) time.Duration {
	if window < time.Second {
		return time.Second
	}
	return window
}
