package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"k8s.io/utils/clock"
)

// ErrInvalidInterval is returned by Start when the sweep interval is not positive.
var ErrInvalidInterval = errors.New("sweep interval must be positive")

// Sweepable is a store whose idle records can be evicted.
type Sweepable interface {
	Sweep(now time.Time, grace time.Duration) int
}

// EvictionObserver is told how many records each sweep removed.
type EvictionObserver interface {
	ObserveEvictions(n int)
}

// Sweeper periodically evicts idle records so memory stays bounded when
// many distinct keys come and go.
type Sweeper struct {
	store    Sweepable
	interval time.Duration
	grace    time.Duration
	clock    clock.WithTicker
	observer EvictionObserver
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper creates a sweeper. A nil clock means the wall clock.
func NewSweeper(
	store Sweepable,
	interval, grace time.Duration,
	clk clock.WithTicker,
	observer EvictionObserver,
	logger *zap.Logger,
) *Sweeper {
	if clk == nil {
		clk = clock.RealClock{}
	}

	return &Sweeper{
		store:    store,
		interval: interval,
		grace:    grace,
		clock:    clk,
		observer: observer,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop. The ticker is created before Start
// returns, so a fake clock can be stepped right after. Starting a running
// sweeper is a no-op.
func (s *Sweeper) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return ErrInvalidInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return nil
	}

	ctx, s.cancel = context.WithCancel(ctx)
	ticker := s.clock.NewTicker(s.interval)

	go s.loop(ctx, ticker)

	s.logger.Info("sweeper started",
		zap.Duration("interval", s.interval),
		zap.Duration("grace", s.grace),
	)

	return nil
}

func (s *Sweeper) loop(ctx context.Context, ticker clock.Ticker) {
	defer close(s.done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			s.SweepOnce()
		}
	}
}

// SweepOnce runs a single eviction pass and returns the number of records removed.
func (s *Sweeper) SweepOnce() int {
	n := s.store.Sweep(s.clock.Now(), s.grace)

	if s.observer != nil {
		s.observer.ObserveEvictions(n)
	}

	if n > 0 {
		s.logger.Debug("evicted idle rate limit records", zap.Int("count", n))
	}

	return n
}

// Shutdown stops the loop and waits for it to exit.
func (s *Sweeper) Shutdown() error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()
	<-s.done

	return nil
}
