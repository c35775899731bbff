package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dkrstic/sitegrid-api/internal/models"
	"github.com/dkrstic/sitegrid-api/internal/services"
	"github.com/google/uuid"
)

// UserServiceInterface defines the methods used by handlers from UserService
type UserServiceInterface interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// TokenServiceInterface defines the methods used by handlers from TokenService
type TokenServiceInterface interface {
	StoreRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	ValidateRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error
}

// JWTServiceInterface defines the methods used by handlers from JWTService
type JWTServiceInterface interface {
	GenerateTokenPair(userID, tenantID uuid.UUID, email string) (*services.TokenPair, error)
	ValidateRefreshToken(tokenString string) (uuid.UUID, error)
	RefreshExpiry() time.Duration
}

// TenantServiceInterface defines the methods used by handlers from TenantService
type TenantServiceInterface interface {
	GetByID(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error)
	Update(ctx context.Context, tenantID uuid.UUID, name string) (*models.Tenant, error)
}

// PageServiceInterface defines the methods used by handlers from PageService
type PageServiceInterface interface {
	Create(ctx context.Context, tenantID uuid.UUID, title, slug string, content []byte) (*models.Page, error)
	GetByID(ctx context.Context, tenantID, pageID uuid.UUID) (*models.Page, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]models.Page, error)
	Update(ctx context.Context, tenantID, pageID uuid.UUID, title *string, content []byte, published *bool) (*models.Page, error)
	Delete(ctx context.Context, tenantID, pageID uuid.UUID) error
}

// WebhookServiceInterface defines the methods used by handlers from WebhookService
type WebhookServiceInterface interface {
	Create(ctx context.Context, tenantID uuid.UUID, rawURL string, events []string, maxFailures, backoffSecs *int) (*models.WebhookSubscription, error)
	GetByID(ctx context.Context, tenantID, webhookID uuid.UUID) (*models.WebhookSubscription, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]models.WebhookSubscription, error)
	Update(ctx context.Context, tenantID, webhookID uuid.UUID, rawURL *string, events []string, isActive *bool, maxFailures, backoffSecs *int) (*models.WebhookSubscription, error)
	Delete(ctx context.Context, tenantID, webhookID uuid.UUID) error
	ListDeliveries(ctx context.Context, tenantID, webhookID uuid.UUID, limit int) ([]models.WebhookDelivery, error)
}

// DeliveryServiceInterface defines the methods used by handlers from DeliveryService
type DeliveryServiceInterface interface {
	SendTest(ctx context.Context, sub *models.WebhookSubscription) services.DeliveryResult
}

// APIKeyServiceInterface defines the methods used by handlers from APIKeyService
type APIKeyServiceInterface interface {
	Create(ctx context.Context, tenantID uuid.UUID, name string, perms []string, rateLimit *int, expiresAt *time.Time, createdBy uuid.UUID) (*models.APIKey, string, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]models.APIKey, error)
	Revoke(ctx context.Context, tenantID, keyID uuid.UUID) error
	Delete(ctx context.Context, tenantID, keyID uuid.UUID) error
	Rotate(ctx context.Context, tenantID, keyID, rotatedBy uuid.UUID) (*models.APIKey, string, error)
}

// UsageServiceInterface defines the methods used by handlers from UsageService
type UsageServiceInterface interface {
	List(ctx context.Context, tenantID, keyID uuid.UUID, limit int) ([]models.APIKeyUsage, error)
	Stats(ctx context.Context, tenantID, keyID uuid.UUID) (*services.UsageStats, error)
}

// EventDispatcher is the fire-and-continue surface mutation handlers call
// after a successful write. Implementations must never block the caller.
type EventDispatcher interface {
	Dispatch(tenantID uuid.UUID, event string, payload json.RawMessage)
}
