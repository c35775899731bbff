package handlers

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/dkrstic/sitegrid-api/internal/middleware"
	"github.com/dkrstic/sitegrid-api/internal/models"
	"github.com/dkrstic/sitegrid-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

type TenantHandler struct {
	tenantService TenantServiceInterface
	dispatcher    EventDispatcher
}

func NewTenantHandler(tenantService TenantServiceInterface, dispatcher EventDispatcher) *TenantHandler {
	return &TenantHandler{tenantService: tenantService, dispatcher: dispatcher}
}

func (h *TenantHandler) Get(c *drift.Context) {
	tenantID := middleware.GetTenantID(c)
	if tenantID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	tenant, err := h.tenantService.GetByID(context.Background(), tenantID)
	if err != nil {
		c.NotFound("tenant not found")
		return
	}

	_ = c.JSON(200, tenantResponse(tenant))
}

func (h *TenantHandler) Update(c *drift.Context) {
	tenantID := middleware.GetTenantID(c)
	if tenantID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	var req dto.UpdateTenantRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		c.BadRequest("name is required")
		return
	}

	tenant, err := h.tenantService.Update(context.Background(), tenantID, strings.TrimSpace(*req.Name))
	if err != nil {
		c.NotFound("tenant not found")
		return
	}

	payload, _ := json.Marshal(tenantResponse(tenant))
	h.dispatcher.Dispatch(tenantID, models.EventTenantUpdated, payload)

	_ = c.JSON(200, tenantResponse(tenant))
}

func tenantResponse(t *models.Tenant) dto.TenantResponse {
	return dto.TenantResponse{
		ID:        t.ID,
		Name:      t.Name,
		Subdomain: t.Subdomain,
		Status:    t.Status,
		CreatedAt: t.CreatedAt,
	}
}
