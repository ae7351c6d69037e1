package ratelimit

import "time"

// DefaultBurstWindow is the burst sub-window used when BurstConfig.Window is
// zero and the limiter was not given another default via WithBurstWindow.
const DefaultBurstWindow = time.Second

// BurstConfig caps how many requests a key may make inside a short
// sub-window, independent of the primary window's headroom.
type BurstConfig struct {
	Max    int64
	Window time.Duration
}

// Burst returns a BurstConfig with the default sub-window.
func Burst(limit int64) *BurstConfig {
	return &BurstConfig{Max: limit}
}

func (b *BurstConfig) window(fallback time.Duration) time.Duration {
	if b.Window <= 0 {
		return fallback
	}

	return b.Window
}

// guard counts the request in the burst sub-window and reports whether it
// stays within the cap, along with the moment the sub-window resets.
func (b *BurstConfig) guard(rec *QuotaRecord, now time.Time, fallback time.Duration) (bool, time.Time) {
	window := b.window(fallback)
	rec.advanceBurst(now, window)

	return rec.BurstCount <= b.Max, rec.BurstWindowStart.Add(window)
}
