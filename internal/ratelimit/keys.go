package ratelimit

import "strings"

const (
	userKeyPrefix = "user:"
	ipKeyPrefix   = "ip:"
)

// UserKey builds the scope key for a (user, action) pair.
func UserKey(userID, action string) string {
	return userKeyPrefix + userID + ":" + action
}

// IPKey builds the scope key for a client IP.
func IPKey(ip string) string {
	return ipKeyPrefix + ip
}

// ScopeOf classifies a key produced by UserKey, IPKey or passed raw.
func ScopeOf(key string) Scope {
	switch {
	case strings.HasPrefix(key, userKeyPrefix):
		return ScopeUser
	case strings.HasPrefix(key, ipKeyPrefix):
		return ScopeIP
	default:
		return ScopeIdentifier
	}
}
