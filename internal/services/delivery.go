package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dkrstic/sitegrid-api/internal/database"
	"github.com/dkrstic/sitegrid-api/internal/models"
	"github.com/google/uuid"
)

// Outbound webhook headers.
const (
	HeaderWebhookEvent     = "X-Webhook-Event"
	HeaderWebhookDelivery  = "X-Webhook-Delivery"
	HeaderWebhookTimestamp = "X-Webhook-Timestamp"
	HeaderWebhookSignature = "X-Webhook-Signature"
	HeaderWebhookTest      = "X-Webhook-Test"
)

// DeliveryService performs one outbound call per invocation and applies the
// failure accounting: reset on success, increment on failure, auto-disable
// once the consecutive-failure count reaches the subscription's threshold.
type DeliveryService struct {
	db     *database.DB
	client *http.Client
}

// DeliveryResult is what the synchronous test path returns to the caller.
type DeliveryResult struct {
	Success    bool
	StatusCode *int
	DurationMs int64
	Err        error
}

func NewDeliveryService(db *database.DB, timeout time.Duration) *DeliveryService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &DeliveryService{
		db:     db,
		client: &http.Client{Timeout: timeout},
	}
}

type webhookEnvelope struct {
	Event     string          `json:"event"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// Deliver sends one signed attempt, updates the subscription's failure
// accounting, and appends a delivery log row. The returned subscription
// state reflects the accounting applied by this attempt.
func (s *DeliveryService) Deliver(ctx context.Context, sub *models.WebhookSubscription, event string, payload json.RawMessage) (*models.WebhookDelivery, error) {
	result, body := s.send(ctx, sub, event, payload, false)

	if result.Success {
		if err := s.recordSuccess(ctx, sub, result.StatusCode); err != nil {
			return nil, err
		}
	} else {
		if err := s.recordFailure(ctx, sub, result.StatusCode); err != nil {
			return nil, err
		}
	}

	return s.appendLog(ctx, sub, event, body, result)
}

// SendTest fires a synthetic delivery marked with the test header. It never
// touches the failure counter, the active flag, or the delivery log.
func (s *DeliveryService) SendTest(ctx context.Context, sub *models.WebhookSubscription) DeliveryResult {
	payload, _ := json.Marshal(map[string]string{
		"message":    "test delivery",
		"webhook_id": sub.ID.String(),
	})
	result, _ := s.send(ctx, sub, "webhook.test", payload, true)
	return result
}

func (s *DeliveryService) send(ctx context.Context, sub *models.WebhookSubscription, event string, payload json.RawMessage, test bool) (DeliveryResult, []byte) {
	now := time.Now().UTC()
	body, err := json.Marshal(webhookEnvelope{
		Event:     event,
		Payload:   payload,
		Timestamp: now,
	})
	if err != nil {
		return DeliveryResult{Err: fmt.Errorf("failed to marshal payload: %w", err)}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(body))
	if err != nil {
		return DeliveryResult{Err: fmt.Errorf("failed to build request: %w", err)}, body
	}

	// The signature covers the exact serialized bytes on the wire.
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderWebhookEvent, event)
	req.Header.Set(HeaderWebhookDelivery, uuid.New().String())
	req.Header.Set(HeaderWebhookTimestamp, now.Format(time.RFC3339))
	req.Header.Set(HeaderWebhookSignature, SignPayload(body, sub.Secret))
	if test {
		req.Header.Set(HeaderWebhookTest, "true")
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return DeliveryResult{DurationMs: elapsed, Err: err}, body
	}
	defer resp.Body.Close()

	status := resp.StatusCode
	result := DeliveryResult{
		StatusCode: &status,
		DurationMs: elapsed,
		Success:    status >= 200 && status < 300,
	}
	if !result.Success {
		result.Err = fmt.Errorf("endpoint returned status %d", status)
	}
	return result, body
}

func (s *DeliveryService) recordSuccess(ctx context.Context, sub *models.WebhookSubscription, status *int) error {
	err := s.db.Pool.QueryRow(ctx, `
		UPDATE webhook_subscriptions
		SET failure_count = 0, last_triggered_at = NOW(), last_status_code = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING failure_count, is_active
	`, status, sub.ID).Scan(&sub.FailureCount, &sub.IsActive)
	if err != nil {
		return fmt.Errorf("failed to record delivery success: %w", err)
	}
	sub.LastStatusCode = status
	return nil
}

// recordFailure increments the counter and flips is_active in one statement,
// so the auto-disable decision cannot split from the increment.
func (s *DeliveryService) recordFailure(ctx context.Context, sub *models.WebhookSubscription, status *int) error {
	err := s.db.Pool.QueryRow(ctx, `
		UPDATE webhook_subscriptions
		SET failure_count = failure_count + 1,
			is_active = is_active AND (failure_count + 1 < max_failures),
			last_triggered_at = NOW(),
			last_status_code = $1,
			updated_at = NOW()
		WHERE id = $2
		RETURNING failure_count, is_active
	`, status, sub.ID).Scan(&sub.FailureCount, &sub.IsActive)
	if err != nil {
		return fmt.Errorf("failed to record delivery failure: %w", err)
	}
	sub.LastStatusCode = status
	return nil
}

func (s *DeliveryService) appendLog(ctx context.Context, sub *models.WebhookSubscription, event string, body []byte, result DeliveryResult) (*models.WebhookDelivery, error) {
	var errDetail *string
	if result.Err != nil {
		msg := result.Err.Error()
		errDetail = &msg
	}
	if body == nil {
		body = []byte(`{}`)
	}

	var delivery models.WebhookDelivery
	err := s.db.Pool.QueryRow(ctx, `
		INSERT INTO webhook_deliveries (subscription_id, tenant_id, event, payload, status_code, success, duration_ms, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, subscription_id, tenant_id, event, payload, status_code, success, duration_ms, error, created_at
	`, sub.ID, sub.TenantID, event, body, result.StatusCode, result.Success, result.DurationMs, errDetail).Scan(
		&delivery.ID, &delivery.SubscriptionID, &delivery.TenantID, &delivery.Event, &delivery.Payload,
		&delivery.StatusCode, &delivery.Success, &delivery.DurationMs, &delivery.Error, &delivery.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to append delivery log: %w", err)
	}
	return &delivery, nil
}
