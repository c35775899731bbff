package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJWTService(t *testing.T) {
	svc := NewJWTService("secret", 15*time.Minute, 24*time.Hour)

	assert.NotNil(t, svc)
	assert.Equal(t, 24*time.Hour, svc.RefreshExpiry())
}

func TestJWTService_GenerateTokenPair(t *testing.T) {
	svc := NewJWTService("test-secret", 15*time.Minute, 24*time.Hour)
	userID := uuid.New()
	tenantID := uuid.New()

	pair, err := svc.GenerateTokenPair(userID, tenantID, "test@example.com")

	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, int64(15*60), pair.ExpiresIn) // 15 minutes in seconds
}

func TestJWTService_ValidateAccessToken_Valid(t *testing.T) {
	svc := NewJWTService("test-secret", 15*time.Minute, 24*time.Hour)
	userID := uuid.New()
	tenantID := uuid.New()
	email := "test@example.com"

	pair, err := svc.GenerateTokenPair(userID, tenantID, email)
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(pair.AccessToken)

	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, tenantID, claims.TenantID)
	assert.Equal(t, email, claims.Email)
	assert.Equal(t, "sitegrid-api", claims.Issuer)
}

func TestJWTService_ValidateAccessToken_WrongSecret(t *testing.T) {
	svc1 := NewJWTService("secret-1", 15*time.Minute, 24*time.Hour)
	svc2 := NewJWTService("secret-2", 15*time.Minute, 24*time.Hour)

	pair, err := svc1.GenerateTokenPair(uuid.New(), uuid.New(), "test@example.com")
	require.NoError(t, err)

	_, err = svc2.ValidateAccessToken(pair.AccessToken)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse token")
}

func TestJWTService_ValidateAccessToken_Expired(t *testing.T) {
	// Create service with very short expiry
	svc := NewJWTService("test-secret", 1*time.Millisecond, 24*time.Hour)

	pair, err := svc.GenerateTokenPair(uuid.New(), uuid.New(), "test@example.com")
	require.NoError(t, err)

	// Wait for token to expire
	time.Sleep(10 * time.Millisecond)

	_, err = svc.ValidateAccessToken(pair.AccessToken)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse token")
}

func TestJWTService_ValidateAccessToken_MalformedToken(t *testing.T) {
	svc := NewJWTService("test-secret", 15*time.Minute, 24*time.Hour)

	testCases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt-token"},
		{"partial jwt", "eyJhbGciOiJIUzI1NiJ9."},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.ValidateAccessToken(tc.token)
			assert.Error(t, err)
		})
	}
}

func TestJWTService_ValidateRefreshToken_Valid(t *testing.T) {
	svc := NewJWTService("test-secret", 15*time.Minute, 24*time.Hour)
	userID := uuid.New()

	pair, err := svc.GenerateTokenPair(userID, uuid.New(), "test@example.com")
	require.NoError(t, err)

	returnedUserID, err := svc.ValidateRefreshToken(pair.RefreshToken)

	require.NoError(t, err)
	assert.Equal(t, userID, returnedUserID)
}

func TestJWTService_ValidateRefreshToken_WrongSecret(t *testing.T) {
	svc1 := NewJWTService("secret-1", 15*time.Minute, 24*time.Hour)
	svc2 := NewJWTService("secret-2", 15*time.Minute, 24*time.Hour)

	pair, err := svc1.GenerateTokenPair(uuid.New(), uuid.New(), "test@example.com")
	require.NoError(t, err)

	_, err = svc2.ValidateRefreshToken(pair.RefreshToken)

	assert.Error(t, err)
}

func TestHashToken_Deterministic(t *testing.T) {
	h1 := HashToken("some-token")
	h2 := HashToken("some-token")

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
	assert.NotEqual(t, h1, HashToken("other-token"))
}
