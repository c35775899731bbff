package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dkrstic/sitegrid-api/internal/database"
	"github.com/dkrstic/sitegrid-api/internal/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Fixtures provides factory helpers for seeding test data
type Fixtures struct {
	db      *database.DB
	counter int
}

// NewFixtures creates a new fixtures factory
func NewFixtures(db *database.DB) *Fixtures {
	return &Fixtures{db: db}
}

func (f *Fixtures) next() int {
	f.counter++
	return f.counter
}

// TenantOption customizes a tenant fixture
type TenantOption func(*models.Tenant)

func WithTenantStatus(status string) TenantOption {
	return func(t *models.Tenant) {
		t.Status = status
	}
}

// CreateTenant inserts a tenant and returns it
func (f *Fixtures) CreateTenant(t *testing.T, opts ...TenantOption) *models.Tenant {
	t.Helper()
	n := f.next()

	tenant := &models.Tenant{
		Name:      fmt.Sprintf("Tenant %d", n),
		Subdomain: fmt.Sprintf("tenant-%d", n),
		Status:    models.TenantStatusActive,
	}
	for _, opt := range opts {
		opt(tenant)
	}

	err := f.db.Pool.QueryRow(context.Background(), `
		INSERT INTO tenants (name, subdomain, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, tenant.Name, tenant.Subdomain, tenant.Status).Scan(&tenant.ID, &tenant.CreatedAt, &tenant.UpdatedAt)
	if err != nil {
		t.Fatalf("failed to create tenant fixture: %v", err)
	}
	return tenant
}

// CreateUser inserts a user belonging to the given tenant
func (f *Fixtures) CreateUser(t *testing.T, tenantID uuid.UUID) *models.User {
	t.Helper()
	n := f.next()

	user := &models.User{
		TenantID: tenantID,
		Email:    fmt.Sprintf("user%d@example.com", n),
		Name:     fmt.Sprintf("User %d", n),
		Role:     "admin",
	}

	err := f.db.Pool.QueryRow(context.Background(), `
		INSERT INTO users (tenant_id, email, name, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, user.TenantID, user.Email, user.Name, user.Role).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		t.Fatalf("failed to create user fixture: %v", err)
	}
	return user
}

// WebhookOption customizes a webhook subscription fixture
type WebhookOption func(*models.WebhookSubscription)

func WithWebhookURL(url string) WebhookOption {
	return func(s *models.WebhookSubscription) {
		s.URL = url
	}
}

func WithWebhookEvents(events ...string) WebhookOption {
	return func(s *models.WebhookSubscription) {
		s.Events = events
	}
}

func WithWebhookMaxFailures(n int) WebhookOption {
	return func(s *models.WebhookSubscription) {
		s.MaxFailures = n
	}
}

func WithWebhookInactive() WebhookOption {
	return func(s *models.WebhookSubscription) {
		s.IsActive = false
	}
}

// CreateWebhook inserts a webhook subscription for the given tenant
func (f *Fixtures) CreateWebhook(t *testing.T, tenantID uuid.UUID, opts ...WebhookOption) *models.WebhookSubscription {
	t.Helper()
	n := f.next()

	sub := &models.WebhookSubscription{
		TenantID:         tenantID,
		URL:              fmt.Sprintf("https://hooks.example.com/endpoint-%d", n),
		Events:           []string{models.EventPageCreated},
		Secret:           fmt.Sprintf("whsec_fixture%d", n),
		IsActive:         true,
		MaxFailures:      5,
		RetryBackoffSecs: 60,
	}
	for _, opt := range opts {
		opt(sub)
	}

	err := f.db.Pool.QueryRow(context.Background(), `
		INSERT INTO webhook_subscriptions (tenant_id, url, events, secret, is_active, max_failures, retry_backoff_secs)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, failure_count, created_at, updated_at
	`, sub.TenantID, sub.URL, sub.Events, sub.Secret, sub.IsActive, sub.MaxFailures, sub.RetryBackoffSecs).
		Scan(&sub.ID, &sub.FailureCount, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		t.Fatalf("failed to create webhook fixture: %v", err)
	}
	return sub
}

// APIKeyOption customizes an api key fixture
type APIKeyOption func(*models.APIKey)

func WithKeyPermissions(perms ...string) APIKeyOption {
	return func(k *models.APIKey) {
		k.Permissions = perms
	}
}

func WithKeyExpiry(expiresAt time.Time) APIKeyOption {
	return func(k *models.APIKey) {
		k.ExpiresAt = &expiresAt
	}
}

func WithKeyInactive() APIKeyOption {
	return func(k *models.APIKey) {
		k.IsActive = false
	}
}

// CreateAPIKey inserts an api key and returns the row plus the plaintext key.
// Fixture keys use bcrypt.MinCost to keep the suite fast.
func (f *Fixtures) CreateAPIKey(t *testing.T, tenantID uuid.UUID, opts ...APIKeyOption) (*models.APIKey, string) {
	t.Helper()
	n := f.next()

	plainKey := fmt.Sprintf("test_%048d", n)
	hash, err := bcrypt.GenerateFromPassword([]byte(plainKey), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash fixture key: %v", err)
	}

	key := &models.APIKey{
		TenantID:    tenantID,
		Name:        fmt.Sprintf("Key %d", n),
		KeyPrefix:   plainKey[:12],
		KeyHash:     string(hash),
		Permissions: []string{"read:pages"},
		RateLimit:   1000,
		IsActive:    true,
	}
	for _, opt := range opts {
		opt(key)
	}

	err = f.db.Pool.QueryRow(context.Background(), `
		INSERT INTO api_keys (tenant_id, name, key_prefix, key_hash, permissions, rate_limit, expires_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, key.TenantID, key.Name, key.KeyPrefix, key.KeyHash, key.Permissions, key.RateLimit, key.ExpiresAt, key.IsActive).
		Scan(&key.ID, &key.CreatedAt)
	if err != nil {
		t.Fatalf("failed to create api key fixture: %v", err)
	}
	return key, plainKey
}

// CreatePage inserts a page for the given tenant
func (f *Fixtures) CreatePage(t *testing.T, tenantID uuid.UUID) *models.Page {
	t.Helper()
	n := f.next()

	page := &models.Page{
		TenantID: tenantID,
		Title:    fmt.Sprintf("Page %d", n),
		Slug:     fmt.Sprintf("page-%d", n),
		Content:  []byte(`{"blocks":[]}`),
	}

	err := f.db.Pool.QueryRow(context.Background(), `
		INSERT INTO pages (tenant_id, title, slug, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, published, created_at, updated_at
	`, page.TenantID, page.Title, page.Slug, page.Content).
		Scan(&page.ID, &page.Published, &page.CreatedAt, &page.UpdatedAt)
	if err != nil {
		t.Fatalf("failed to create page fixture: %v", err)
	}
	return page
}
