package testutil

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dkrstic/sitegrid-api/internal/models"
	"github.com/dkrstic/sitegrid-api/internal/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockUserService is a mock implementation of handlers.UserServiceInterface
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockTokenService is a mock implementation of handlers.TokenServiceInterface
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) StoreRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	args := m.Called(ctx, userID, tokenHash, expiresAt)
	return args.Error(0)
}

func (m *MockTokenService) ValidateRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, error) {
	args := m.Called(ctx, tokenHash)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockTokenService) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}

func (m *MockTokenService) RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockJWTService is a mock implementation of handlers.JWTServiceInterface
type MockJWTService struct {
	mock.Mock
}

func (m *MockJWTService) GenerateTokenPair(userID, tenantID uuid.UUID, email string) (*services.TokenPair, error) {
	args := m.Called(userID, tenantID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.TokenPair), args.Error(1)
}

func (m *MockJWTService) ValidateRefreshToken(tokenString string) (uuid.UUID, error) {
	args := m.Called(tokenString)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockJWTService) RefreshExpiry() time.Duration {
	args := m.Called()
	return args.Get(0).(time.Duration)
}

// MockTenantService is a mock implementation of handlers.TenantServiceInterface
type MockTenantService struct {
	mock.Mock
}

func (m *MockTenantService) GetByID(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantService) Update(ctx context.Context, tenantID uuid.UUID, name string) (*models.Tenant, error) {
	args := m.Called(ctx, tenantID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

// MockPageService is a mock implementation of handlers.PageServiceInterface
type MockPageService struct {
	mock.Mock
}

func (m *MockPageService) Create(ctx context.Context, tenantID uuid.UUID, title, slug string, content []byte) (*models.Page, error) {
	args := m.Called(ctx, tenantID, title, slug, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Page), args.Error(1)
}

func (m *MockPageService) GetByID(ctx context.Context, tenantID, pageID uuid.UUID) (*models.Page, error) {
	args := m.Called(ctx, tenantID, pageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Page), args.Error(1)
}

func (m *MockPageService) List(ctx context.Context, tenantID uuid.UUID) ([]models.Page, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Page), args.Error(1)
}

func (m *MockPageService) Update(ctx context.Context, tenantID, pageID uuid.UUID, title *string, content []byte, published *bool) (*models.Page, error) {
	args := m.Called(ctx, tenantID, pageID, title, content, published)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Page), args.Error(1)
}

func (m *MockPageService) Delete(ctx context.Context, tenantID, pageID uuid.UUID) error {
	args := m.Called(ctx, tenantID, pageID)
	return args.Error(0)
}

// MockWebhookService is a mock implementation of handlers.WebhookServiceInterface
type MockWebhookService struct {
	mock.Mock
}

func (m *MockWebhookService) Create(ctx context.Context, tenantID uuid.UUID, rawURL string, events []string, maxFailures, backoffSecs *int) (*models.WebhookSubscription, error) {
	args := m.Called(ctx, tenantID, rawURL, events, maxFailures, backoffSecs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WebhookSubscription), args.Error(1)
}

func (m *MockWebhookService) GetByID(ctx context.Context, tenantID, webhookID uuid.UUID) (*models.WebhookSubscription, error) {
	args := m.Called(ctx, tenantID, webhookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WebhookSubscription), args.Error(1)
}

func (m *MockWebhookService) List(ctx context.Context, tenantID uuid.UUID) ([]models.WebhookSubscription, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.WebhookSubscription), args.Error(1)
}

func (m *MockWebhookService) Update(ctx context.Context, tenantID, webhookID uuid.UUID, rawURL *string, events []string, isActive *bool, maxFailures, backoffSecs *int) (*models.WebhookSubscription, error) {
	args := m.Called(ctx, tenantID, webhookID, rawURL, events, isActive, maxFailures, backoffSecs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WebhookSubscription), args.Error(1)
}

func (m *MockWebhookService) Delete(ctx context.Context, tenantID, webhookID uuid.UUID) error {
	args := m.Called(ctx, tenantID, webhookID)
	return args.Error(0)
}

func (m *MockWebhookService) ListDeliveries(ctx context.Context, tenantID, webhookID uuid.UUID, limit int) ([]models.WebhookDelivery, error) {
	args := m.Called(ctx, tenantID, webhookID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.WebhookDelivery), args.Error(1)
}

// MockDeliveryService is a mock implementation of handlers.DeliveryServiceInterface
type MockDeliveryService struct {
	mock.Mock
}

func (m *MockDeliveryService) SendTest(ctx context.Context, sub *models.WebhookSubscription) services.DeliveryResult {
	args := m.Called(ctx, sub)
	return args.Get(0).(services.DeliveryResult)
}

// MockAPIKeyService is a mock implementation of handlers.APIKeyServiceInterface
type MockAPIKeyService struct {
	mock.Mock
}

func (m *MockAPIKeyService) Create(ctx context.Context, tenantID uuid.UUID, name string, perms []string, rateLimit *int, expiresAt *time.Time, createdBy uuid.UUID) (*models.APIKey, string, error) {
	args := m.Called(ctx, tenantID, name, perms, rateLimit, expiresAt, createdBy)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*models.APIKey), args.String(1), args.Error(2)
}

func (m *MockAPIKeyService) List(ctx context.Context, tenantID uuid.UUID) ([]models.APIKey, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.APIKey), args.Error(1)
}

func (m *MockAPIKeyService) Revoke(ctx context.Context, tenantID, keyID uuid.UUID) error {
	args := m.Called(ctx, tenantID, keyID)
	return args.Error(0)
}

func (m *MockAPIKeyService) Delete(ctx context.Context, tenantID, keyID uuid.UUID) error {
	args := m.Called(ctx, tenantID, keyID)
	return args.Error(0)
}

func (m *MockAPIKeyService) Rotate(ctx context.Context, tenantID, keyID, rotatedBy uuid.UUID) (*models.APIKey, string, error) {
	args := m.Called(ctx, tenantID, keyID, rotatedBy)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*models.APIKey), args.String(1), args.Error(2)
}

// MockAPIKeyValidator is a mock implementation of middleware.APIKeyValidator
type MockAPIKeyValidator struct {
	mock.Mock
}

func (m *MockAPIKeyValidator) Validate(ctx context.Context, presented string) (*services.ResolvedKey, error) {
	args := m.Called(ctx, presented)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ResolvedKey), args.Error(1)
}

// MockUsageService is a mock implementation of handlers.UsageServiceInterface
type MockUsageService struct {
	mock.Mock
}

func (m *MockUsageService) List(ctx context.Context, tenantID, keyID uuid.UUID, limit int) ([]models.APIKeyUsage, error) {
	args := m.Called(ctx, tenantID, keyID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.APIKeyUsage), args.Error(1)
}

func (m *MockUsageService) Stats(ctx context.Context, tenantID, keyID uuid.UUID) (*services.UsageStats, error) {
	args := m.Called(ctx, tenantID, keyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.UsageStats), args.Error(1)
}

// MockDispatcher is a mock implementation of handlers.EventDispatcher
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(tenantID uuid.UUID, event string, payload json.RawMessage) {
	m.Called(tenantID, event, payload)
}
