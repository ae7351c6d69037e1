package ratelimit_test

import (
	"testing"
	"time"

	"github.com/serroba/admission-go/internal/ratelimit"
	"github.com/stretchr/testify/assert"
)

func TestScopeKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		key   string
		want  string
		scope ratelimit.Scope
	}{
		{name: "user key", key: ratelimit.UserKey("42", "login"), want: "user:42:login", scope: ratelimit.ScopeUser},
		{name: "ip key", key: ratelimit.IPKey("10.0.0.1"), want: "ip:10.0.0.1", scope: ratelimit.ScopeIP},
		{name: "ipv6 key", key: ratelimit.IPKey("::1"), want: "ip:::1", scope: ratelimit.ScopeIP},
		{name: "raw identifier", key: "api-key-7", want: "api-key-7", scope: ratelimit.ScopeIdentifier},
		{name: "empty identifier", key: "", want: "", scope: ratelimit.ScopeIdentifier},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.key)
			assert.Equal(t, tt.scope, ratelimit.ScopeOf(tt.key))
		})
	}
}

func TestUserKey_DistinctPairs(t *testing.T) {
	t.Parallel()

	assert.NotEqual(t, ratelimit.UserKey("a", "login"), ratelimit.UserKey("a", "register"))
	assert.NotEqual(t, ratelimit.UserKey("a", "login"), ratelimit.UserKey("b", "login"))
}

func TestDecision_RetryAfterSeconds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		retryAfter time.Duration
		want       int64
	}{
		{retryAfter: 0, want: 0},
		{retryAfter: time.Millisecond, want: 1},
		{retryAfter: time.Second, want: 1},
		{retryAfter: 1500 * time.Millisecond, want: 2},
		{retryAfter: time.Minute, want: 60},
	}

	for _, tt := range tests {
		d := ratelimit.Decision{RetryAfter: tt.retryAfter}

		assert.Equal(t, tt.want, d.RetryAfterSeconds(), "retry after %s", tt.retryAfter)
	}
}
