package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/url"

	"github.com/dkrstic/sitegrid-api/internal/database"
	"github.com/dkrstic/sitegrid-api/internal/models"
	"github.com/google/uuid"
)

var (
	ErrWebhookNotFound = errors.New("webhook not found")
	ErrInvalidEvent    = errors.New("invalid webhook event")
	ErrNoEvents        = errors.New("webhook needs at least one event")
	ErrInvalidURL      = errors.New("invalid webhook url")
)

const (
	webhookSecretLen = 32
	webhookURLMaxLen = 500

	defaultMaxFailures = 5
	defaultBackoffSecs = 60
)

const subscriptionColumns = `id, tenant_id, url, events, secret, is_active, failure_count,
	max_failures, retry_backoff_secs, last_triggered_at, last_status_code, created_at, updated_at`

type WebhookService struct {
	db *database.DB
}

func NewWebhookService(db *database.DB) *WebhookService {
	return &WebhookService{db: db}
}

// GenerateSecret produces the shared signing secret for a subscription. It is
// returned to the caller once, at registration, and never again.
func GenerateSecret() string {
	buf := make([]byte, webhookSecretLen)
	_, _ = rand.Read(buf)
	return "whsec_" + hex.EncodeToString(buf)
}

func validateWebhookURL(raw string) error {
	if raw == "" || len(raw) > webhookURLMaxLen {
		return ErrInvalidURL
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidURL
	}
	return nil
}

func normalizeEvents(events []string) ([]string, error) {
	if len(events) == 0 {
		return nil, ErrNoEvents
	}
	seen := make(map[string]bool, len(events))
	var out []string
	for _, event := range events {
		if !models.IsValidWebhookEvent(event) {
			return nil, ErrInvalidEvent
		}
		if seen[event] {
			continue
		}
		seen[event] = true
		out = append(out, event)
	}
	return out, nil
}

func (s *WebhookService) Create(ctx context.Context, tenantID uuid.UUID, rawURL string, events []string, maxFailures, backoffSecs *int) (*models.WebhookSubscription, error) {
	if err := validateWebhookURL(rawURL); err != nil {
		return nil, err
	}
	normalized, err := normalizeEvents(events)
	if err != nil {
		return nil, err
	}

	failures := defaultMaxFailures
	if maxFailures != nil && *maxFailures > 0 {
		failures = *maxFailures
	}
	backoff := defaultBackoffSecs
	if backoffSecs != nil && *backoffSecs > 0 {
		backoff = *backoffSecs
	}

	secret := GenerateSecret()

	var sub models.WebhookSubscription
	err = s.db.Pool.QueryRow(ctx, `
		INSERT INTO webhook_subscriptions (tenant_id, url, events, secret, max_failures, retry_backoff_secs)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+subscriptionColumns+`
	`, tenantID, rawURL, normalized, secret, failures, backoff).Scan(scanSubscription(&sub)...)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *WebhookService) GetByID(ctx context.Context, tenantID, webhookID uuid.UUID) (*models.WebhookSubscription, error) {
	var sub models.WebhookSubscription
	err := s.db.Pool.QueryRow(ctx, `
		SELECT `+subscriptionColumns+`
		FROM webhook_subscriptions
		WHERE id = $1 AND tenant_id = $2
	`, webhookID, tenantID).Scan(scanSubscription(&sub)...)
	if err != nil {
		return nil, ErrWebhookNotFound
	}
	return &sub, nil
}

func (s *WebhookService) List(ctx context.Context, tenantID uuid.UUID) ([]models.WebhookSubscription, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+subscriptionColumns+`
		FROM webhook_subscriptions
		WHERE tenant_id = $1
		ORDER BY created_at DESC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []models.WebhookSubscription
	for rows.Next() {
		var sub models.WebhookSubscription
		if err := rows.Scan(scanSubscription(&sub)...); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// ListMatching returns the subscriptions a dispatch fans out to: active and
// subscribed to the event. Auto-disabled subscriptions fall out of this query.
func (s *WebhookService) ListMatching(ctx context.Context, tenantID uuid.UUID, event string) ([]models.WebhookSubscription, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+subscriptionColumns+`
		FROM webhook_subscriptions
		WHERE tenant_id = $1 AND is_active = TRUE AND $2 = ANY(events)
	`, tenantID, event)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []models.WebhookSubscription
	for rows.Next() {
		var sub models.WebhookSubscription
		if err := rows.Scan(scanSubscription(&sub)...); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func (s *WebhookService) Update(ctx context.Context, tenantID, webhookID uuid.UUID, rawURL *string, events []string, isActive *bool, maxFailures, backoffSecs *int) (*models.WebhookSubscription, error) {
	sub, err := s.GetByID(ctx, tenantID, webhookID)
	if err != nil {
		return nil, err
	}

	if rawURL != nil {
		if err := validateWebhookURL(*rawURL); err != nil {
			return nil, err
		}
		sub.URL = *rawURL
	}
	if events != nil {
		normalized, err := normalizeEvents(events)
		if err != nil {
			return nil, err
		}
		sub.Events = normalized
	}
	if isActive != nil {
		// Re-enabling a disabled subscription starts its failure budget over.
		if *isActive && !sub.IsActive {
			sub.FailureCount = 0
		}
		sub.IsActive = *isActive
	}
	if maxFailures != nil && *maxFailures > 0 {
		sub.MaxFailures = *maxFailures
	}
	if backoffSecs != nil && *backoffSecs > 0 {
		sub.RetryBackoffSecs = *backoffSecs
	}

	err = s.db.Pool.QueryRow(ctx, `
		UPDATE webhook_subscriptions
		SET url = $1, events = $2, is_active = $3, failure_count = $4,
			max_failures = $5, retry_backoff_secs = $6, updated_at = NOW()
		WHERE id = $7 AND tenant_id = $8
		RETURNING updated_at
	`, sub.URL, sub.Events, sub.IsActive, sub.FailureCount,
		sub.MaxFailures, sub.RetryBackoffSecs, webhookID, tenantID).Scan(&sub.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *WebhookService) Delete(ctx context.Context, tenantID, webhookID uuid.UUID) error {
	result, err := s.db.Pool.Exec(ctx, `
		DELETE FROM webhook_subscriptions WHERE id = $1 AND tenant_id = $2
	`, webhookID, tenantID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrWebhookNotFound
	}
	return nil
}

func (s *WebhookService) ListDeliveries(ctx context.Context, tenantID, webhookID uuid.UUID, limit int) ([]models.WebhookDelivery, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, subscription_id, tenant_id, event, payload, status_code, success, duration_ms, error, created_at
		FROM webhook_deliveries
		WHERE subscription_id = $1 AND tenant_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, webhookID, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deliveries []models.WebhookDelivery
	for rows.Next() {
		var d models.WebhookDelivery
		if err := rows.Scan(
			&d.ID, &d.SubscriptionID, &d.TenantID, &d.Event, &d.Payload,
			&d.StatusCode, &d.Success, &d.DurationMs, &d.Error, &d.CreatedAt,
		); err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, nil
}

func scanSubscription(sub *models.WebhookSubscription) []any {
	return []any{
		&sub.ID, &sub.TenantID, &sub.URL, &sub.Events, &sub.Secret,
		&sub.IsActive, &sub.FailureCount, &sub.MaxFailures, &sub.RetryBackoffSecs,
		&sub.LastTriggeredAt, &sub.LastStatusCode, &sub.CreatedAt, &sub.UpdatedAt,
	}
}
