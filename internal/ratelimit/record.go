package ratelimit

import "time"

// QuotaRecord is the mutable counter state tracked for one scope key.
//
// Records are owned by a Store and are only ever touched from inside
// Store.Update, which serializes access per key.
type QuotaRecord struct {
	WindowStart time.Time
	Count       int64

	BurstWindowStart time.Time
	BurstCount       int64

	// Window and BurstWindow are the lengths applied by the most recent check.
	// The sweeper uses them to decide whether a record has gone idle.
	Window      time.Duration
	BurstWindow time.Duration
}

// NewQuotaRecord returns a fresh record whose windows both start at now.
func NewQuotaRecord(now time.Time) *QuotaRecord {
	return &QuotaRecord{
		WindowStart:      now,
		BurstWindowStart: now,
	}
}

// Idle reports whether both windows have been expired for at least grace.
func (r *QuotaRecord) Idle(now time.Time, grace time.Duration) bool {
	if !expiredFor(now.Sub(r.WindowStart), r.Window, grace) {
		return false
	}

	if r.BurstWindow > 0 && !expiredFor(now.Sub(r.BurstWindowStart), r.BurstWindow, grace) {
		return false
	}

	return true
}

// expiredFor reports elapsed >= window+grace without overflowing on
// windows near the maximum duration.
func expiredFor(elapsed, window, grace time.Duration) bool {
	if elapsed < window {
		return false
	}

	return elapsed-window >= grace
}

// advance applies the primary window step: reset when expired, then count.
func (r *QuotaRecord) advance(now time.Time, window time.Duration) {
	if now.Sub(r.WindowStart) >= window {
		r.WindowStart = now
		r.Count = 0
	}

	r.Count++
	r.Window = window
}

// advanceBurst is the same step for the burst sub-window.
func (r *QuotaRecord) advanceBurst(now time.Time, window time.Duration) {
	if now.Sub(r.BurstWindowStart) >= window {
		r.BurstWindowStart = now
		r.BurstCount = 0
	}

	r.BurstCount++
	r.BurstWindow = window
}
