package ratelimit

import "time"

// Store owns every QuotaRecord and serializes access per key.
type Store interface {
	// Update runs fn against the record for key while holding that key's lock.
	// A missing record is created with NewQuotaRecord(now) before fn runs.
	// fn must not retain the record after it returns.
	Update(key string, now time.Time, fn func(rec *QuotaRecord))
}
