package models

import (
	"time"

	"github.com/google/uuid"
)

// Event names a subscription can register for.
const (
	EventPageCreated   = "page.created"
	EventPageUpdated   = "page.updated"
	EventPageDeleted   = "page.deleted"
	EventSitePublished = "site.published"
	EventTenantUpdated = "tenant.updated"
	EventUserInvited   = "user.invited"
)

var WebhookEvents = []string{
	EventPageCreated,
	EventPageUpdated,
	EventPageDeleted,
	EventSitePublished,
	EventTenantUpdated,
	EventUserInvited,
}

func IsValidWebhookEvent(event string) bool {
	for _, e := range WebhookEvents {
		if e == event {
			return true
		}
	}
	return false
}

type WebhookSubscription struct {
	ID               uuid.UUID  `json:"id"`
	TenantID         uuid.UUID  `json:"tenant_id"`
	URL              string     `json:"url"`
	Events           []string   `json:"events"`
	Secret           string     `json:"-"`
	IsActive         bool       `json:"is_active"`
	FailureCount     int        `json:"failure_count"`
	MaxFailures      int        `json:"max_failures"`
	RetryBackoffSecs int        `json:"retry_backoff_secs"`
	LastTriggeredAt  *time.Time `json:"last_triggered_at,omitempty"`
	LastStatusCode   *int       `json:"last_status_code,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// WebhookDelivery is one row of the append-only delivery log. Rows are never
// updated; retries append their own row.
type WebhookDelivery struct {
	ID             uuid.UUID `json:"id"`
	SubscriptionID uuid.UUID `json:"subscription_id"`
	TenantID       uuid.UUID `json:"tenant_id"`
	Event          string    `json:"event"`
	Payload        []byte    `json:"payload"`
	StatusCode     *int      `json:"status_code,omitempty"`
	Success        bool      `json:"success"`
	DurationMs     int64     `json:"duration_ms"`
	Error          *string   `json:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
