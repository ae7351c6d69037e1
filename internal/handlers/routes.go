package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/admission-go/internal/ratelimit"
)

// RegisterRoutes registers the admission check routes. Each operation is
// guarded by admission, not by the API-wide default policy.
func RegisterRoutes(api huma.API, h *AdmissionHandler, admission ratelimit.EndpointConfig) {
	metadata := map[string]any{ratelimit.MetadataKey: admission}

	huma.Register(api, huma.Operation{
		OperationID: "check-rate-limit",
		Method:      http.MethodPost,
		Path:        "/v1/checks",
		Summary:     "Check a raw identifier",
		Description: "Counts one request against an opaque identifier and returns the admission verdict.",
		Tags:        []string{"Admission"},
		Metadata:    metadata,
	}, h.Check)

	huma.Register(api, huma.Operation{
		OperationID: "check-user-rate-limit",
		Method:      http.MethodPost,
		Path:        "/v1/checks/user",
		Summary:     "Check a user action",
		Description: "Counts one request against the user:<userId>:<action> quota.",
		Tags:        []string{"Admission"},
		Metadata:    metadata,
	}, h.CheckUser)

	huma.Register(api, huma.Operation{
		OperationID: "check-ip-rate-limit",
		Method:      http.MethodPost,
		Path:        "/v1/checks/ip",
		Summary:     "Check a client IP",
		Description: "Counts one request against the ip:<ip> quota.",
		Tags:        []string{"Admission"},
		Metadata:    metadata,
	}, h.CheckIP)
}
