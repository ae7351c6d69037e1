package store

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/serroba/admission-go/internal/ratelimit"
)

// DefaultShards is the shard count used when NewWindowMemoryStore gets zero.
const DefaultShards = 64

// WindowMemoryStore is an in-memory implementation of ratelimit.Store.
// Keys are spread over independently locked shards so unrelated keys do
// not contend.
type WindowMemoryStore struct {
	shards []*windowShard
}

type windowShard struct {
	mu      sync.Mutex
	records map[string]*ratelimit.QuotaRecord
}

// NewWindowMemoryStore creates a store with the given number of shards.
func NewWindowMemoryStore(shards int) *WindowMemoryStore {
	if shards <= 0 {
		shards = DefaultShards
	}

	s := &WindowMemoryStore{shards: make([]*windowShard, shards)}
	for i := range s.shards {
		s.shards[i] = &windowShard{records: make(map[string]*ratelimit.QuotaRecord)}
	}

	return s
}

func (s *WindowMemoryStore) shard(key string) *windowShard {
	return s.shards[xxhash.Sum64String(key)%uint64(len(s.shards))]
}

// Update runs fn on the record for key under the shard lock, creating the
// record at now on first access.
func (s *WindowMemoryStore) Update(key string, now time.Time, fn func(rec *ratelimit.QuotaRecord)) {
	sh := s.shard(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.records[key]
	if !ok {
		rec = ratelimit.NewQuotaRecord(now)
		sh.records[key] = rec
	}

	fn(rec)
}

// Len returns the number of tracked keys.
func (s *WindowMemoryStore) Len() int {
	n := 0

	for _, sh := range s.shards {
		sh.mu.Lock()
		n += len(sh.records)
		sh.mu.Unlock()
	}

	return n
}

// Sweep drops records that have been idle for at least grace and returns
// how many were removed. Shards are locked one at a time.
func (s *WindowMemoryStore) Sweep(now time.Time, grace time.Duration) int {
	removed := 0

	for _, sh := range s.shards {
		sh.mu.Lock()

		for key, rec := range sh.records {
			if rec.Idle(now, grace) {
				delete(sh.records, key)
				removed++
			}
		}

		sh.mu.Unlock()
	}

	return removed
}

// Reset forgets every record.
func (s *WindowMemoryStore) Reset() {
	for _, sh := range s.shards {
		sh.mu.Lock()
		sh.records = make(map[string]*ratelimit.QuotaRecord)
		sh.mu.Unlock()
	}
}

// Shutdown releases all records.
func (s *WindowMemoryStore) Shutdown() error {
	s.Reset()

	return nil
}

// Compile-time check.
var _ ratelimit.Store = (*WindowMemoryStore)(nil)
