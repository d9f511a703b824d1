package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SweepFunc performs one maintenance pass. Errors are logged and the next
// tick runs regardless.
type SweepFunc func(context.Context) error

// SweeperConfig configures the sweep cadence.
type SweeperConfig struct {
	Interval time.Duration
	Timeout  time.Duration
	Logger   *zap.Logger
}

// Sweeper runs a named maintenance task on a fixed interval in a background
// goroutine. The first pass runs right after Start so a restart does not
// delay overdue work by a full interval.
type Sweeper struct {
	name     string
	sweep    SweepFunc
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewSweeper builds a sweeper with the provided task.
func NewSweeper(name string, sweep SweepFunc, cfg SweeperConfig) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = cfg.Interval
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Sweeper{
		name:     name,
		sweep:    sweep,
		interval: cfg.Interval,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
	}
}

// Start launches the background loop. Safe to call once.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.loop()
	s.started = true
	s.logger.Sugar().Infow("sweeper started", "sweeper", s.name, "interval", s.interval)
}

// Stop cancels the loop and waits for an in-flight pass to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.mu.Unlock()
	s.wg.Wait()
	s.logger.Sugar().Infow("sweeper stopped", "sweeper", s.name)
}

func (s *Sweeper) loop() {
	defer s.wg.Done()

	s.run()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.run()
		}
	}
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	if err := s.sweep(ctx); err != nil {
		s.logger.Sugar().Warnw("sweep failed", "sweeper", s.name, "error", err)
	}
}
