package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dkrstic/sitegrid-api/internal/permissions"
	"github.com/dkrstic/sitegrid-api/internal/services"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

const (
	APIKeyIDKey          = "api_key_id"
	APIKeyPermissionsKey = "api_key_permissions"

	apiKeyHeader = "X-API-Key"
)

// APIKeyValidator resolves a presented credential to its capability set.
type APIKeyValidator interface {
	Validate(ctx context.Context, presented string) (*services.ResolvedKey, error)
}

// UsageRecorder logs one authenticated call. Implementations must swallow
// their own failures.
type UsageRecorder interface {
	Record(keyID uuid.UUID, endpoint, method string, statusCode int, durationMs int64, clientIP string)
}

// ExtractAPIKey pulls the presented credential from the request. A bearer
// Authorization header wins; the X-API-Key header is the fallback. The
// second return distinguishes "nothing presented" from "presented".
func ExtractAPIKey(c *drift.Context) (string, bool) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1], true
		}
	}
	if key := c.GetHeader(apiKeyHeader); key != "" {
		return key, true
	}
	return "", false
}

// APIKeyAuth authenticates and authorizes API-key callers for one declared
// resource, then records usage after the handler runs. The pipeline order is
// fixed: extract, validate, tenant status, permission, handler, usage.
func APIKeyAuth(apiKeys APIKeyValidator, usage UsageRecorder, resource string) drift.HandlerFunc {
	return func(c *drift.Context) {
		presented, ok := ExtractAPIKey(c)
		if !ok {
			c.Unauthorized("missing api key")
			return
		}

		resolved, err := apiKeys.Validate(c.Request.Context(), presented)
		if err != nil {
			// One message for every invalid-credential mode; nothing here
			// may help a caller enumerate keys.
			c.Unauthorized("invalid api key")
			return
		}

		if resolved.TenantStatus == "suspended" {
			c.Forbidden("tenant is suspended")
			return
		}

		required := permissions.Required(c.Request.Method, resource)
		if required == permissions.None || !required.Has(resolved.Permissions) {
			c.Forbidden("missing permission: " + string(required))
			return
		}

		c.Set(APIKeyIDKey, resolved.ID)
		c.Set(TenantIDKey, resolved.TenantID)
		c.Set(APIKeyPermissionsKey, resolved.Permissions)

		// Swap in a recording writer so the usage row sees the status the
		// handler actually produced.
		rec := &statusRecorder{ResponseWriter: c.Response, status: http.StatusOK}
		c.Response = rec

		start := time.Now()
		c.Next()

		go usage.Record(
			resolved.ID,
			c.Request.URL.Path,
			c.Request.Method,
			rec.status,
			time.Since(start).Milliseconds(),
			clientIP(c.Request),
		)
	}
}

// APIKeyOrSession serves routes exposed to both programmatic and dashboard
// callers: a presented credential takes the API-key pipeline, absence falls
// back to session auth. Absence is not an invalid key.
func APIKeyOrSession(apiKeys APIKeyValidator, usage UsageRecorder, jwtService JWTValidator, resource string) drift.HandlerFunc {
	keyAuth := APIKeyAuth(apiKeys, usage, resource)
	sessionAuth := Auth(jwtService)

	return func(c *drift.Context) {
		if key, ok := ExtractAPIKey(c); ok && !looksLikeJWT(key) {
			keyAuth(c)
			return
		}
		sessionAuth(c)
	}
}

// JWTs are three dot-separated segments; API keys are <env>_<hex>.
func looksLikeJWT(token string) bool {
	return strings.Count(token, ".") == 2
}

func GetAPIKeyID(c *drift.Context) uuid.UUID {
	if id, ok := c.Get(APIKeyIDKey); ok {
		if kid, ok := id.(uuid.UUID); ok {
			return kid
		}
	}
	return uuid.Nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
