package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/ussdflow/internal/logging"
)

// DefaultSweepInterval is how often expired sessions are collected.
const DefaultSweepInterval = 5 * time.Second

// Sweeper periodically evicts expired sessions.
type Sweeper struct {
	manager  *Manager
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithInterval sets the sweep period.
func WithInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) SweeperOption {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSweepLogger sets the logger.
func WithSweepLogger(l *slog.Logger) SweeperOption {
	return func(s *Sweeper) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSweeper creates a Sweeper over m.
func NewSweeper(m *Manager, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		manager:  m,
		interval: DefaultSweepInterval,
		now:      time.Now,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run sweeps every interval until ctx is cancelled. It always returns nil
// so it can run inside an errgroup without tearing the group down.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs a single eviction pass.
func (s *Sweeper) Sweep(ctx context.Context) int {
	n, err := s.manager.EvictExpired(ctx, s.now())
	if err != nil {
		s.logger.Warn("session sweep failed", "err", err)
	}
	if n > 0 {
		s.logger.Debug("expired sessions evicted", "count", n)
	}
	return n
}
