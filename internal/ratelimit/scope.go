package ratelimit

import "github.com/danielgtaylor/huma/v2"

// Scope is the family a rate-limit key belongs to.
type Scope string

const (
	// ScopeIdentifier is an opaque caller-chosen key.
	ScopeIdentifier Scope = "identifier"
	// ScopeUser keys a quota by authenticated user and action.
	ScopeUser Scope = "user"
	// ScopeIP keys a quota by client IP.
	ScopeIP Scope = "ip"
)

// MetadataKey is the key used to store rate limit config in operation metadata.
const MetadataKey = "rateLimit"

// EndpointConfig defines per-endpoint admission control.
// It is attached to Huma operations via the Metadata field.
type EndpointConfig struct {
	// Scope selects how the caller is identified. ScopeUser falls back to
	// ScopeIP when the request carries no user id. Empty means ScopeIP.
	Scope Scope

	// Action names the guarded action for ScopeUser keys. Defaults to the
	// operation ID.
	Action string

	// Limit is the quota applied to the resolved key.
	Limit LimitConfig

	// Disabled skips admission control entirely for this endpoint.
	Disabled bool
}

// GetEndpointConfig extracts the EndpointConfig from operation metadata, if present.
func GetEndpointConfig(ctx huma.Context) *EndpointConfig {
	op := ctx.Operation()
	if op == nil || op.Metadata == nil {
		return nil
	}

	cfg, ok := op.Metadata[MetadataKey].(EndpointConfig)
	if !ok {
		return nil
	}

	return &cfg
}
