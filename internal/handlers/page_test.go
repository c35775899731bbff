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
	"github.com/dkrstic/sitegrid-api/internal/services"
	"github.com/dkrstic/sitegrid-api/pkg/dto"
	"github.com/dkrstic/sitegrid-api/tests/testutil"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	driftmw "github.com/m1z23r/drift/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupPageTest(t *testing.T) (*testutil.MockPageService, *testutil.MockDispatcher, *PageHandler, *services.JWTService) {
	t.Helper()
	mockPageService := new(testutil.MockPageService)
	mockDispatcher := new(testutil.MockDispatcher)
	handler := NewPageHandler(mockPageService, mockDispatcher)
	jwtSvc := newTestJWTService()
	return mockPageService, mockDispatcher, handler, jwtSvc
}

func testPage(tenantID uuid.UUID) *models.Page {
	return &models.Page{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Title:     "Home",
		Slug:      "home",
		Content:   []byte(`{"blocks":[]}`),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestPageHandler_Create_DispatchesEvent(t *testing.T) {
	mockPageService, mockDispatcher, handler, jwtSvc := setupPageTest(t)

	tenantID := uuid.New()
	page := testPage(tenantID)

	mockPageService.On("Create", mock.Anything, tenantID, "Home", "home", mock.Anything).Return(page, nil)
	mockDispatcher.On("Dispatch", tenantID, models.EventPageCreated, mock.Anything).Return()

	app := drift.New()
	app.Use(driftmw.BodyParser())
	app.Use(middleware.Auth(jwtSvc))
	app.Post("/pages", handler.Create)

	body := dto.CreatePageRequest{Title: "Home", Slug: "home", Content: []byte(`{"blocks":[]}`)}
	jsonBody, _ := json.Marshal(body)

	token := generateTestToken(t, jwtSvc, uuid.New(), tenantID, "test@example.com")
	req := httptest.NewRequest(http.MethodPost, "/pages", bytes.NewReader(jsonBody))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var response dto.PageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, page.ID, response.ID)

	mockPageService.AssertExpectations(t)
	mockDispatcher.AssertExpectations(t)
}

func TestPageHandler_Create_MissingTitle_NoDispatch(t *testing.T) {
	_, mockDispatcher, handler, jwtSvc := setupPageTest(t)

	app := drift.New()
	app.Use(driftmw.BodyParser())
	app.Use(middleware.Auth(jwtSvc))
	app.Post("/pages", handler.Create)

	body := dto.CreatePageRequest{Slug: "home"}
	jsonBody, _ := json.Marshal(body)

	token := generateTestToken(t, jwtSvc, uuid.New(), uuid.New(), "test@example.com")
	req := httptest.NewRequest(http.MethodPost, "/pages", bytes.NewReader(jsonBody))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	mockDispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything, mock.Anything)
}

func TestPageHandler_Update_PublishDispatchesBothEvents(t *testing.T) {
	mockPageService, mockDispatcher, handler, jwtSvc := setupPageTest(t)

	tenantID := uuid.New()
	page := testPage(tenantID)
	page.Published = true
	published := true

	mockPageService.On("Update", mock.Anything, tenantID, page.ID,
		(*string)(nil), mock.Anything, &published).Return(page, nil)
	mockDispatcher.On("Dispatch", tenantID, models.EventPageUpdated, mock.Anything).Return()
	mockDispatcher.On("Dispatch", tenantID, models.EventSitePublished, mock.Anything).Return()

	app := drift.New()
	app.Use(driftmw.BodyParser())
	app.Use(middleware.Auth(jwtSvc))
	app.Patch("/pages/:pageId", handler.Update)

	body := dto.UpdatePageRequest{Published: &published}
	jsonBody, _ := json.Marshal(body)

	token := generateTestToken(t, jwtSvc, uuid.New(), tenantID, "test@example.com")
	req := httptest.NewRequest(http.MethodPatch, "/pages/"+page.ID.String(), bytes.NewReader(jsonBody))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	mockPageService.AssertExpectations(t)
	mockDispatcher.AssertExpectations(t)
}

func TestPageHandler_Delete_DispatchesEvent(t *testing.T) {
	mockPageService, mockDispatcher, handler, jwtSvc := setupPageTest(t)

	tenantID := uuid.New()
	pageID := uuid.New()

	mockPageService.On("Delete", mock.Anything, tenantID, pageID).Return(nil)
	mockDispatcher.On("Dispatch", tenantID, models.EventPageDeleted, mock.Anything).Return()

	app := drift.New()
	app.Use(middleware.Auth(jwtSvc))
	app.Delete("/pages/:pageId", handler.Delete)

	token := generateTestToken(t, jwtSvc, uuid.New(), tenantID, "test@example.com")
	req := httptest.NewRequest(http.MethodDelete, "/pages/"+pageID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	mockPageService.AssertExpectations(t)
	mockDispatcher.AssertExpectations(t)
}

func TestPageHandler_Delete_NotFound_NoDispatch(t *testing.T) {
	mockPageService, mockDispatcher, handler, jwtSvc := setupPageTest(t)

	tenantID := uuid.New()
	pageID := uuid.New()
	mockPageService.On("Delete", mock.Anything, tenantID, pageID).Return(services.ErrPageNotFound)

	app := drift.New()
	app.Use(middleware.Auth(jwtSvc))
	app.Delete("/pages/:pageId", handler.Delete)

	token := generateTestToken(t, jwtSvc, uuid.New(), tenantID, "test@example.com")
	req := httptest.NewRequest(http.MethodDelete, "/pages/"+pageID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	mockDispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything, mock.Anything)
}
