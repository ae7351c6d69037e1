package ratelimit

import (
	"time"

	"k8s.io/utils/clock"
)

// invalidRetryAfter is reported for configurations that can never admit.
const invalidRetryAfter = time.Millisecond

// Limiter is the admission API callers consult before a guarded action.
type Limiter interface {
	CheckRateLimit(identifier string, cfg LimitConfig) Decision
	CheckUserRateLimit(userID, action string, limit int64, window time.Duration) Decision
	CheckIPRateLimit(ip string, limit int64, window time.Duration) Decision
}

// LimitConfig is one quota: at most Max requests per Window, optionally
// layered with a burst cap.
type LimitConfig struct {
	Max    int64
	Window time.Duration
	Burst  *BurstConfig
}

// Observer is notified of every decision.
type Observer interface {
	ObserveDecision(scope Scope, d Decision)
}

// FixedWindowLimiter implements Limiter with a fixed window per key.
type FixedWindowLimiter struct {
	store       Store
	clock       clock.PassiveClock
	observer    Observer
	burstWindow time.Duration
}

// Option configures a FixedWindowLimiter.
type Option func(*FixedWindowLimiter)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clock.PassiveClock) Option {
	return func(l *FixedWindowLimiter) {
		l.clock = c
	}
}

// WithObserver registers an observer for decisions.
func WithObserver(o Observer) Option {
	return func(l *FixedWindowLimiter) {
		l.observer = o
	}
}

// WithBurstWindow sets the sub-window for burst configs that leave Window
// unset. Non-positive values keep DefaultBurstWindow.
func WithBurstWindow(d time.Duration) Option {
	return func(l *FixedWindowLimiter) {
		if d > 0 {
			l.burstWindow = d
		}
	}
}

// NewFixedWindowLimiter creates a limiter backed by store.
func NewFixedWindowLimiter(store Store, opts ...Option) *FixedWindowLimiter {
	l := &FixedWindowLimiter{
		store:       store,
		clock:       clock.RealClock{},
		burstWindow: DefaultBurstWindow,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// CheckRateLimit counts a request against identifier and returns the verdict.
// It never fails: bad configurations produce a denial.
func (l *FixedWindowLimiter) CheckRateLimit(identifier string, cfg LimitConfig) Decision {
	d := l.check(identifier, cfg)

	if l.observer != nil {
		l.observer.ObserveDecision(ScopeOf(identifier), d)
	}

	return d
}

// CheckUserRateLimit checks the quota of one user for one action.
func (l *FixedWindowLimiter) CheckUserRateLimit(userID, action string, limit int64, window time.Duration) Decision {
	return l.CheckRateLimit(UserKey(userID, action), LimitConfig{Max: limit, Window: window})
}

// CheckIPRateLimit checks the quota of one client IP.
func (l *FixedWindowLimiter) CheckIPRateLimit(ip string, limit int64, window time.Duration) Decision {
	return l.CheckRateLimit(IPKey(ip), LimitConfig{Max: limit, Window: window})
}

func (l *FixedWindowLimiter) check(key string, cfg LimitConfig) Decision {
	now := l.clock.Now()

	if cfg.Window <= 0 {
		return Decision{
			Limit:      cfg.Max,
			ResetTime:  now.Add(invalidRetryAfter),
			RetryAfter: invalidRetryAfter,
			Reason:     ReasonInvalid,
		}
	}

	var d Decision

	l.store.Update(key, now, func(rec *QuotaRecord) {
		rec.advance(now, cfg.Window)

		d.Limit = cfg.Max
		d.Remaining = max(cfg.Max-rec.Count, 0)
		d.ResetTime = rec.WindowStart.Add(cfg.Window)
		d.Allowed = cfg.Max > 0 && rec.Count <= cfg.Max

		switch {
		case cfg.Max <= 0:
			d.Reason = ReasonInvalid
			d.RetryAfter = d.ResetTime.Sub(now)
		case !d.Allowed:
			d.Reason = ReasonLimit
			d.RetryAfter = d.ResetTime.Sub(now)
		}

		if cfg.Burst == nil {
			return
		}

		// A burst denial owns the reported reason and retry point.
		if ok, burstReset := cfg.Burst.guard(rec, now, l.burstWindow); !ok {
			d.Allowed = false
			d.Reason = ReasonBurst
			d.RetryAfter = burstReset.Sub(now)
		}
	})

	return d
}

// Compile-time check.
var _ Limiter = (*FixedWindowLimiter)(nil)
