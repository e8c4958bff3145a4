package api

import (
	"github.com/embedsvc/embedsvc/internal/service"
)

// =============================================================================
// Embed API Types
// =============================================================================

// EmbedRequest is the body of POST /embed. Text is a pointer so a missing
// field can be told apart from an empty string.
type EmbedRequest struct {
	Text *string `json:"text"`
}

// EmbedResponse is the body returned by POST /embed.
type EmbedResponse = service.Result

// HealthResponse is the body returned by GET /health.
type HealthResponse = service.Health

// =============================================================================
// Status API Types
// =============================================================================

// StatusResponse represents the status endpoint response
type StatusResponse struct {
	Daemon *DaemonStatus   `json:"daemon"`
	Model  *service.Status `json:"model"`
}

// DaemonStatus contains daemon runtime information
type DaemonStatus struct {
	PID           int     `json:"pid"`
	Version       string  `json:"version"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
