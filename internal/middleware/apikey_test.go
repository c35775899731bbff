package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dkrstic/sitegrid-api/internal/permissions"
	"github.com/dkrstic/sitegrid-api/internal/services"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubValidator struct {
	key *services.ResolvedKey
	err error

	mu        sync.Mutex
	presented []string
}

func (v *stubValidator) Validate(_ context.Context, presented string) (*services.ResolvedKey, error) {
	v.mu.Lock()
	v.presented = append(v.presented, presented)
	v.mu.Unlock()
	if v.err != nil {
		return nil, v.err
	}
	return v.key, nil
}

type usageCall struct {
	keyID      uuid.UUID
	endpoint   string
	method     string
	statusCode int
	clientIP   string
}

type recordingUsage struct {
	mu    sync.Mutex
	calls []usageCall
}

func (r *recordingUsage) Record(keyID uuid.UUID, endpoint, method string, statusCode int, durationMs int64, clientIP string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, usageCall{keyID, endpoint, method, statusCode, clientIP})
}

func (r *recordingUsage) snapshot() []usageCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]usageCall(nil), r.calls...)
}

func resolvedKey(perms ...string) *services.ResolvedKey {
	return &services.ResolvedKey{
		ID:           uuid.New(),
		TenantID:     uuid.New(),
		Permissions:  perms,
		RateLimit:    1000,
		TenantStatus: "active",
	}
}

func newKeyAuthApp(validator APIKeyValidator, usage UsageRecorder, resource string) http.Handler {
	app := drift.New()
	app.Use(APIKeyAuth(validator, usage, resource))
	app.Get("/pages", func(c *drift.Context) {
		_ = c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	app.Delete("/pages", func(c *drift.Context) {
		_ = c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	return app
}

func TestAPIKeyAuth_MissingKey(t *testing.T) {
	validator := &stubValidator{err: services.ErrAPIKeyInvalid}
	app := newKeyAuthApp(validator, &recordingUsage{}, permissions.ResourcePages)

	req := httptest.NewRequest(http.MethodGet, "/pages", nil)
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing api key")
	assert.Empty(t, validator.presented)
}

func TestAPIKeyAuth_InvalidKey_GenericMessage(t *testing.T) {
	validator := &stubValidator{err: services.ErrAPIKeyInvalid}
	app := newKeyAuthApp(validator, &recordingUsage{}, permissions.ResourcePages)

	req := httptest.NewRequest(http.MethodGet, "/pages", nil)
	req.Header.Set("X-API-Key", "test_wrongkeywrongkeywrong")
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid api key")
}

func TestAPIKeyAuth_BearerPreferredOverHeader(t *testing.T) {
	validator := &stubValidator{key: resolvedKey("read:pages")}
	app := newKeyAuthApp(validator, &recordingUsage{}, permissions.ResourcePages)

	req := httptest.NewRequest(http.MethodGet, "/pages", nil)
	req.Header.Set("Authorization", "Bearer test_bearerkey")
	req.Header.Set("X-API-Key", "test_headerkey")
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, validator.presented, 1)
	assert.Equal(t, "test_bearerkey", validator.presented[0])
}

func TestAPIKeyAuth_SuspendedTenant(t *testing.T) {
	key := resolvedKey("read:pages")
	key.TenantStatus = "suspended"
	validator := &stubValidator{key: key}
	usage := &recordingUsage{}
	app := newKeyAuthApp(validator, usage, permissions.ResourcePages)

	req := httptest.NewRequest(http.MethodGet, "/pages", nil)
	req.Header.Set("X-API-Key", "test_somekey")
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "tenant is suspended")
	assert.Empty(t, usage.snapshot())
}

func TestAPIKeyAuth_MissingPermission(t *testing.T) {
	validator := &stubValidator{key: resolvedKey("read:pages")}
	app := newKeyAuthApp(validator, &recordingUsage{}, permissions.ResourcePages)

	req := httptest.NewRequest(http.MethodDelete, "/pages", nil)
	req.Header.Set("X-API-Key", "test_somekey")
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "delete:pages")
}

func TestAPIKeyAuth_UndeclaredResourceFailsClosed(t *testing.T) {
	validator := &stubValidator{key: resolvedKey("admin:all")}
	app := newKeyAuthApp(validator, &recordingUsage{}, "")

	req := httptest.NewRequest(http.MethodGet, "/pages", nil)
	req.Header.Set("X-API-Key", "test_somekey")
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAPIKeyAuth_RecordsUsage(t *testing.T) {
	key := resolvedKey("read:pages")
	validator := &stubValidator{key: key}
	usage := &recordingUsage{}
	app := newKeyAuthApp(validator, usage, permissions.ResourcePages)

	req := httptest.NewRequest(http.MethodGet, "/pages", nil)
	req.Header.Set("X-API-Key", "test_somekey")
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	require.Eventually(t, func() bool {
		return len(usage.snapshot()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	call := usage.snapshot()[0]
	assert.Equal(t, key.ID, call.keyID)
	assert.Equal(t, "/pages", call.endpoint)
	assert.Equal(t, http.MethodGet, call.method)
	assert.Equal(t, http.StatusOK, call.statusCode)
	assert.Equal(t, "203.0.113.7", call.clientIP)
}

func TestAPIKeyAuth_UsageSeesHandlerStatus(t *testing.T) {
	validator := &stubValidator{key: resolvedKey("read:pages")}
	usage := &recordingUsage{}

	app := drift.New()
	app.Use(APIKeyAuth(validator, usage, permissions.ResourcePages))
	app.Get("/pages", func(c *drift.Context) {
		c.NotFound("page not found")
	})

	req := httptest.NewRequest(http.MethodGet, "/pages", nil)
	req.Header.Set("X-API-Key", "test_somekey")
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.Eventually(t, func() bool {
		return len(usage.snapshot()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, http.StatusNotFound, usage.snapshot()[0].statusCode)
}

func TestAPIKeyOrSession_KeyTakesKeyPipeline(t *testing.T) {
	validator := &stubValidator{key: resolvedKey("read:pages")}
	jwtSvc := newTestJWTService()

	app := drift.New()
	app.Use(APIKeyOrSession(validator, &recordingUsage{}, jwtSvc, permissions.ResourcePages))
	app.Get("/pages", func(c *drift.Context) {
		_ = c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	req := httptest.NewRequest(http.MethodGet, "/pages", nil)
	req.Header.Set("X-API-Key", "test_somekey")
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, validator.presented, 1)
}

func TestAPIKeyOrSession_JWTTakesSessionPipeline(t *testing.T) {
	validator := &stubValidator{err: services.ErrAPIKeyInvalid}
	jwtSvc := newTestJWTService()
	token := generateTestToken(t, jwtSvc, uuid.New(), uuid.New(), "user@example.com")

	app := drift.New()
	app.Use(APIKeyOrSession(validator, &recordingUsage{}, jwtSvc, permissions.ResourcePages))
	app.Get("/pages", func(c *drift.Context) {
		_ = c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	req := httptest.NewRequest(http.MethodGet, "/pages", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, validator.presented)
}

func TestAPIKeyOrSession_NothingPresented(t *testing.T) {
	validator := &stubValidator{err: services.ErrAPIKeyInvalid}
	jwtSvc := newTestJWTService()

	app := drift.New()
	app.Use(APIKeyOrSession(validator, &recordingUsage{}, jwtSvc, permissions.ResourcePages))
	app.Get("/pages", func(c *drift.Context) {
		_ = c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	req := httptest.NewRequest(http.MethodGet, "/pages", nil)
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)

	// Falls through to session auth, which wants an authorization header.
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing authorization header")
	assert.Empty(t, validator.presented)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.9:4242"
	assert.Equal(t, "192.0.2.9", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	assert.Equal(t, "203.0.113.7", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", clientIP(req))
}

func TestLooksLikeJWT(t *testing.T) {
	assert.True(t, looksLikeJWT("aaa.bbb.ccc"))
	assert.False(t, looksLikeJWT("test_0123456789abcdef"))
	assert.False(t, looksLikeJWT("aaa.bbb"))
}
