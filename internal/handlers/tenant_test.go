package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dkrstic/sitegrid-api/internal/middleware"
	"github.com/dkrstic/sitegrid-api/internal/models"
	"github.com/dkrstic/sitegrid-api/pkg/dto"
	"github.com/dkrstic/sitegrid-api/tests/testutil"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	driftmw "github.com/m1z23r/drift/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTenantHandler_Get(t *testing.T) {
	mockTenantService := new(testutil.MockTenantService)
	mockDispatcher := new(testutil.MockDispatcher)
	handler := NewTenantHandler(mockTenantService, mockDispatcher)
	jwtSvc := newTestJWTService()

	tenantID := uuid.New()
	tenant := &models.Tenant{
		ID:        tenantID,
		Name:      "Acme Sites",
		Subdomain: "acme",
		Status:    models.TenantStatusActive,
		CreatedAt: time.Now(),
	}
	mockTenantService.On("GetByID", mock.Anything, tenantID).Return(tenant, nil)

	app := drift.New()
	app.Use(middleware.Auth(jwtSvc))
	app.Get("/tenant", handler.Get)

	token := generateTestToken(t, jwtSvc, uuid.New(), tenantID, "test@example.com")
	req := httptest.NewRequest(http.MethodGet, "/tenant", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response dto.TenantResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "Acme Sites", response.Name)

	mockTenantService.AssertExpectations(t)
}

func TestTenantHandler_Update_DispatchesEvent(t *testing.T) {
	mockTenantService := new(testutil.MockTenantService)
	mockDispatcher := new(testutil.MockDispatcher)
	handler := NewTenantHandler(mockTenantService, mockDispatcher)
	jwtSvc := newTestJWTService()

	tenantID := uuid.New()
	tenant := &models.Tenant{
		ID:        tenantID,
		Name:      "Renamed",
		Subdomain: "acme",
		Status:    models.TenantStatusActive,
		CreatedAt: time.Now(),
	}
	mockTenantService.On("Update", mock.Anything, tenantID, "Renamed").Return(tenant, nil)
	mockDispatcher.On("Dispatch", tenantID, models.EventTenantUpdated, mock.Anything).Return()

	app := drift.New()
	app.Use(driftmw.BodyParser())
	app.Use(middleware.Auth(jwtSvc))
	app.Patch("/tenant", handler.Update)

	name := "Renamed"
	body := dto.UpdateTenantRequest{Name: &name}
	jsonBody, _ := json.Marshal(body)

	token := generateTestToken(t, jwtSvc, uuid.New(), tenantID, "test@example.com")
	req := httptest.NewRequest(http.MethodPatch, "/tenant", bytes.NewReader(jsonBody))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	mockTenantService.AssertExpectations(t)
	mockDispatcher.AssertExpectations(t)
}

func TestTenantHandler_Update_MissingName(t *testing.T) {
	mockTenantService := new(testutil.MockTenantService)
	mockDispatcher := new(testutil.MockDispatcher)
	handler := NewTenantHandler(mockTenantService, mockDispatcher)
	jwtSvc := newTestJWTService()

	app := drift.New()
	app.Use(driftmw.BodyParser())
	app.Use(middleware.Auth(jwtSvc))
	app.Patch("/tenant", handler.Update)

	token := generateTestToken(t, jwtSvc, uuid.New(), uuid.New(), "test@example.com")
	req := httptest.NewRequest(http.MethodPatch, "/tenant", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	mockDispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything, mock.Anything)
}
