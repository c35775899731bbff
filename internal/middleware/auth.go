package middleware

import (
	"strings"

	"github.com/dkrstic/sitegrid-api/internal/services"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

const (
	UserIDKey   = "user_id"
	TenantIDKey = "tenant_id"
	UserEmail   = "user_email"
)

// JWTValidator is the session-token surface the middleware needs.
type JWTValidator interface {
	ValidateAccessToken(tokenString string) (*services.Claims, error)
}

func Auth(jwtService JWTValidator) drift.HandlerFunc {
	return func(c *drift.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Unauthorized("missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.Unauthorized("invalid authorization header format")
			return
		}

		claims, err := jwtService.ValidateAccessToken(parts[1])
		if err != nil {
			c.Unauthorized("invalid or expired token")
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(TenantIDKey, claims.TenantID)
		c.Set(UserEmail, claims.Email)

		c.Next()
	}
}

func GetUserID(c *drift.Context) uuid.UUID {
	if id, ok := c.Get(UserIDKey); ok {
		if uid, ok := id.(uuid.UUID); ok {
			return uid
		}
	}
	return uuid.Nil
}

// GetTenantID returns the tenant the request acts on, set by either the
// session middleware or the API-key middleware.
func GetTenantID(c *drift.Context) uuid.UUID {
	if id, ok := c.Get(TenantIDKey); ok {
		if tid, ok := id.(uuid.UUID); ok {
			return tid
		}
	}
	return uuid.Nil
}
