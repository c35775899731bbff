package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateWebhookRequest struct {
	URL              string   `json:"url"`
	Events           []string `json:"events"`
	MaxFailures      *int     `json:"max_failures,omitempty"`
	RetryBackoffSecs *int     `json:"retry_backoff_secs,omitempty"`
}

type UpdateWebhookRequest struct {
	URL              *string  `json:"url,omitempty"`
	Events           []string `json:"events,omitempty"`
	IsActive         *bool    `json:"is_active,omitempty"`
	MaxFailures      *int     `json:"max_failures,omitempty"`
	RetryBackoffSecs *int     `json:"retry_backoff_secs,omitempty"`
}

type WebhookResponse struct {
	ID               uuid.UUID  `json:"id"`
	URL              string     `json:"url"`
	Events           []string   `json:"events"`
	IsActive         bool       `json:"is_active"`
	FailureCount     int        `json:"failure_count"`
	MaxFailures      int        `json:"max_failures"`
	RetryBackoffSecs int        `json:"retry_backoff_secs"`
	LastTriggeredAt  *time.Time `json:"last_triggered_at,omitempty"`
	LastStatusCode   *int       `json:"last_status_code,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// WebhookCreatedResponse carries the signing secret. It is returned exactly
// once, at registration.
type WebhookCreatedResponse struct {
	WebhookResponse
	Secret string `json:"secret"`
}

type WebhookTestResponse struct {
	Success    bool   `json:"success"`
	StatusCode *int   `json:"status_code,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

type DeliveryResponse struct {
	ID         uuid.UUID `json:"id"`
	Event      string    `json:"event"`
	StatusCode *int      `json:"status_code,omitempty"`
	Success    bool      `json:"success"`
	DurationMs int64     `json:"duration_ms"`
	Error      *string   `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
