package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateAPIKeyRequest struct {
	Name        string     `json:"name"`
	Permissions []string   `json:"permissions"`
	RateLimit   *int       `json:"rate_limit,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type APIKeyResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	KeyPrefix   string     `json:"key_prefix"`
	Permissions []string   `json:"permissions"`
	RateLimit   int        `json:"rate_limit"`
	IsActive    bool       `json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// APIKeyCreatedResponse carries the plaintext key. It is returned exactly
// once, at creation or rotation.
type APIKeyCreatedResponse struct {
	APIKeyResponse
	Key string `json:"key"`
}

type APIKeyUsageResponse struct {
	Endpoint   string    `json:"endpoint"`
	Method     string    `json:"method"`
	StatusCode int       `json:"status_code"`
	DurationMs int64     `json:"duration_ms"`
	ClientIP   string    `json:"client_ip"`
	CreatedAt  time.Time `json:"created_at"`
}

type APIKeyStatsResponse struct {
	TotalRequests int64   `json:"total_requests"`
	Last24hCount  int64   `json:"last_24h_count"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
}
