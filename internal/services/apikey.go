package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dkrstic/sitegrid-api/internal/database"
	"github.com/dkrstic/sitegrid-api/internal/models"
	"github.com/dkrstic/sitegrid-api/internal/permissions"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrAPIKeyNotFound    = errors.New("api key not found")
	ErrAPIKeyInvalid     = errors.New("invalid api key")
	ErrInvalidPermission = errors.New("invalid permission")
	ErrNoPermissions     = errors.New("api key needs at least one permission")
)

const (
	apiKeyRandomLen = 24

	// APIKeyPrefixLen is the fixed length of the non-secret lookup prefix:
	// the environment tag plus a deterministic slice of the random part.
	APIKeyPrefixLen = 12
)

const apiKeyColumns = `id, tenant_id, name, key_prefix, key_hash, permissions, rate_limit,
	expires_at, last_used_at, is_active, created_by, created_at`

type APIKeyService struct {
	db     *database.DB
	envTag string
}

// ResolvedKey is the capability set handed to the request pipeline after a
// presented credential checks out.
type ResolvedKey struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	Permissions  []string
	RateLimit    int
	TenantStatus string
}

func NewAPIKeyService(db *database.DB, envTag string) *APIKeyService {
	if envTag == "" {
		envTag = "test"
	}
	return &APIKeyService{db: db, envTag: envTag}
}

// generateKey produces the plaintext key, its bcrypt hash, and the lookup
// prefix. Format: <env>_<48 hex chars>; the first 12 characters are the
// prefix and are the only part ever stored in clear.
func (s *APIKeyService) generateKey() (plainKey, keyHash, keyPrefix string, err error) {
	randomBytes := make([]byte, apiKeyRandomLen)
	_, _ = rand.Read(randomBytes)

	plainKey = s.envTag + "_" + hex.EncodeToString(randomBytes)
	keyPrefix = plainKey[:APIKeyPrefixLen]

	hash, err := bcrypt.GenerateFromPassword([]byte(plainKey), bcrypt.DefaultCost)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to hash api key: %w", err)
	}
	return plainKey, string(hash), keyPrefix, nil
}

func normalizePermissions(perms []string) ([]string, error) {
	if len(perms) == 0 {
		return nil, ErrNoPermissions
	}
	seen := make(map[string]bool, len(perms))
	var out []string
	for _, p := range perms {
		p = strings.TrimSpace(p)
		if !permissions.Valid(p) {
			return nil, ErrInvalidPermission
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out, nil
}

// Create issues a key. The returned plaintext exists only in this response;
// the row stores the prefix and the bcrypt hash.
func (s *APIKeyService) Create(ctx context.Context, tenantID uuid.UUID, name string, perms []string, rateLimit *int, expiresAt *time.Time, createdBy uuid.UUID) (*models.APIKey, string, error) {
	normalized, err := normalizePermissions(perms)
	if err != nil {
		return nil, "", err
	}

	limit := 1000
	if rateLimit != nil && *rateLimit > 0 {
		limit = *rateLimit
	}

	plainKey, keyHash, keyPrefix, err := s.generateKey()
	if err != nil {
		return nil, "", err
	}

	var key models.APIKey
	err = s.db.Pool.QueryRow(ctx, `
		INSERT INTO api_keys (tenant_id, name, key_prefix, key_hash, permissions, rate_limit, expires_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+apiKeyColumns+`
	`, tenantID, name, keyPrefix, keyHash, normalized, limit, expiresAt, createdBy).Scan(scanAPIKey(&key)...)
	if err != nil {
		return nil, "", err
	}

	return &key, plainKey, nil
}

// Validate resolves a presented credential to its capability set. Every
// failure mode returns ErrAPIKeyInvalid so responses cannot distinguish a
// missing key from a wrong one.
func (s *APIKeyService) Validate(ctx context.Context, presented string) (*ResolvedKey, error) {
	if len(presented) <= APIKeyPrefixLen {
		return nil, ErrAPIKeyInvalid
	}
	prefix := presented[:APIKeyPrefixLen]

	rows, err := s.db.Pool.Query(ctx, `
		SELECT k.id, k.tenant_id, k.key_hash, k.permissions, k.rate_limit, k.expires_at, t.status
		FROM api_keys k
		JOIN tenants t ON t.id = k.tenant_id
		WHERE k.key_prefix = $1 AND k.is_active = TRUE
	`, prefix)
	if err != nil {
		return nil, ErrAPIKeyInvalid
	}
	defer rows.Close()

	now := time.Now()
	for rows.Next() {
		var (
			resolved  ResolvedKey
			keyHash   string
			expiresAt *time.Time
		)
		if err := rows.Scan(
			&resolved.ID, &resolved.TenantID, &keyHash, &resolved.Permissions,
			&resolved.RateLimit, &expiresAt, &resolved.TenantStatus,
		); err != nil {
			return nil, ErrAPIKeyInvalid
		}

		if expiresAt != nil && expiresAt.Before(now) {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(presented)) != nil {
			continue
		}

		// Touch last_used_at off the request path.
		keyID := resolved.ID
		go func() {
			_, _ = s.db.Pool.Exec(context.Background(), `
				UPDATE api_keys SET last_used_at = NOW() WHERE id = $1
			`, keyID)
		}()

		return &resolved, nil
	}

	return nil, ErrAPIKeyInvalid
}

func (s *APIKeyService) List(ctx context.Context, tenantID uuid.UUID) ([]models.APIKey, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+apiKeyColumns+`
		FROM api_keys
		WHERE tenant_id = $1
		ORDER BY created_at DESC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []models.APIKey
	for rows.Next() {
		var key models.APIKey
		if err := rows.Scan(scanAPIKey(&key)...); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *APIKeyService) Revoke(ctx context.Context, tenantID, keyID uuid.UUID) error {
	result, err := s.db.Pool.Exec(ctx, `
		UPDATE api_keys SET is_active = FALSE
		WHERE id = $1 AND tenant_id = $2 AND is_active = TRUE
	`, keyID, tenantID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAPIKeyNotFound
	}
	return nil
}

func (s *APIKeyService) Delete(ctx context.Context, tenantID, keyID uuid.UUID) error {
	result, err := s.db.Pool.Exec(ctx, `
		DELETE FROM api_keys WHERE id = $1 AND tenant_id = $2
	`, keyID, tenantID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAPIKeyNotFound
	}
	return nil
}

// Rotate issues a replacement with the old key's scope and limits, then
// revokes the old key, in one transaction. Once Rotate returns, the old key
// no longer validates.
func (s *APIKeyService) Rotate(ctx context.Context, tenantID, keyID uuid.UUID, rotatedBy uuid.UUID) (*models.APIKey, string, error) {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var old models.APIKey
	err = tx.QueryRow(ctx, `
		SELECT `+apiKeyColumns+`
		FROM api_keys
		WHERE id = $1 AND tenant_id = $2 AND is_active = TRUE
	`, keyID, tenantID).Scan(scanAPIKey(&old)...)
	if err != nil {
		return nil, "", ErrAPIKeyNotFound
	}

	plainKey, keyHash, keyPrefix, err := s.generateKey()
	if err != nil {
		return nil, "", err
	}

	var replacement models.APIKey
	err = tx.QueryRow(ctx, `
		INSERT INTO api_keys (tenant_id, name, key_prefix, key_hash, permissions, rate_limit, expires_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+apiKeyColumns+`
	`, tenantID, old.Name, keyPrefix, keyHash, old.Permissions, old.RateLimit, old.ExpiresAt, rotatedBy).Scan(scanAPIKey(&replacement)...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue replacement key: %w", err)
	}

	_, err = tx.Exec(ctx, `UPDATE api_keys SET is_active = FALSE WHERE id = $1`, keyID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to revoke rotated key: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, "", fmt.Errorf("failed to commit rotation: %w", err)
	}

	return &replacement, plainKey, nil
}

func scanAPIKey(key *models.APIKey) []any {
	return []any{
		&key.ID, &key.TenantID, &key.Name, &key.KeyPrefix, &key.KeyHash,
		&key.Permissions, &key.RateLimit, &key.ExpiresAt, &key.LastUsedAt,
		&key.IsActive, &key.CreatedBy, &key.CreatedAt,
	}
}
