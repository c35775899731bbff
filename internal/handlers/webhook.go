package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/dkrstic/sitegrid-api/internal/middleware"
	"github.com/dkrstic/sitegrid-api/internal/models"
	"github.com/dkrstic/sitegrid-api/internal/services"
	"github.com/dkrstic/sitegrid-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

type WebhookHandler struct {
	webhookService  WebhookServiceInterface
	deliveryService DeliveryServiceInterface
}

func NewWebhookHandler(webhookService WebhookServiceInterface, deliveryService DeliveryServiceInterface) *WebhookHandler {
	return &WebhookHandler{
		webhookService:  webhookService,
		deliveryService: deliveryService,
	}
}

func (h *WebhookHandler) Create(c *drift.Context) {
	tenantID := middleware.GetTenantID(c)
	if tenantID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	var req dto.CreateWebhookRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	sub, err := h.webhookService.Create(context.Background(), tenantID, req.URL, req.Events, req.MaxFailures, req.RetryBackoffSecs)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidURL),
			errors.Is(err, services.ErrInvalidEvent),
			errors.Is(err, services.ErrNoEvents):
			c.BadRequest(err.Error())
		default:
			c.InternalServerError("failed to create webhook")
		}
		return
	}

	// The secret appears in this response and nowhere else.
	_ = c.JSON(201, dto.WebhookCreatedResponse{
		WebhookResponse: webhookResponse(sub),
		Secret:          sub.Secret,
	})
}

func (h *WebhookHandler) List(c *drift.Context) {
	tenantID := middleware.GetTenantID(c)
	if tenantID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	subs, err := h.webhookService.List(context.Background(), tenantID)
	if err != nil {
		c.InternalServerError("failed to list webhooks")
		return
	}

	response := make([]dto.WebhookResponse, 0, len(subs))
	for i := range subs {
		response = append(response, webhookResponse(&subs[i]))
	}
	_ = c.JSON(200, response)
}

func (h *WebhookHandler) Get(c *drift.Context) {
	tenantID := middleware.GetTenantID(c)
	if tenantID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	webhookID, err := uuid.Parse(c.Param("webhookId"))
	if err != nil {
		c.BadRequest("invalid webhook id")
		return
	}

	sub, err := h.webhookService.GetByID(context.Background(), tenantID, webhookID)
	if err != nil {
		c.NotFound("webhook not found")
		return
	}
	_ = c.JSON(200, webhookResponse(sub))
}

func (h *WebhookHandler) Update(c *drift.Context) {
	tenantID := middleware.GetTenantID(c)
	if tenantID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	webhookID, err := uuid.Parse(c.Param("webhookId"))
	if err != nil {
		c.BadRequest("invalid webhook id")
		return
	}

	var req dto.UpdateWebhookRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	sub, err := h.webhookService.Update(context.Background(), tenantID, webhookID, req.URL, req.Events, req.IsActive, req.MaxFailures, req.RetryBackoffSecs)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrWebhookNotFound):
			c.NotFound("webhook not found")
		case errors.Is(err, services.ErrInvalidURL),
			errors.Is(err, services.ErrInvalidEvent),
			errors.Is(err, services.ErrNoEvents):
			c.BadRequest(err.Error())
		default:
			c.InternalServerError("failed to update webhook")
		}
		return
	}
	_ = c.JSON(200, webhookResponse(sub))
}

func (h *WebhookHandler) Delete(c *drift.Context) {
	tenantID := middleware.GetTenantID(c)
	if tenantID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	webhookID, err := uuid.Parse(c.Param("webhookId"))
	if err != nil {
		c.BadRequest("invalid webhook id")
		return
	}

	if err := h.webhookService.Delete(context.Background(), tenantID, webhookID); err != nil {
		c.NotFound("webhook not found")
		return
	}
	_ = c.JSON(200, map[string]string{"message": "webhook deleted"})
}

// Test fires a synthetic delivery and returns the outcome synchronously.
// Test deliveries never count toward auto-disable.
func (h *WebhookHandler) Test(c *drift.Context) {
	tenantID := middleware.GetTenantID(c)
	if tenantID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	webhookID, err := uuid.Parse(c.Param("webhookId"))
	if err != nil {
		c.BadRequest("invalid webhook id")
		return
	}

	sub, err := h.webhookService.GetByID(context.Background(), tenantID, webhookID)
	if err != nil {
		c.NotFound("webhook not found")
		return
	}

	result := h.deliveryService.SendTest(c.Request.Context(), sub)
	response := dto.WebhookTestResponse{
		Success:    result.Success,
		StatusCode: result.StatusCode,
		DurationMs: result.DurationMs,
	}
	if result.Err != nil {
		response.Error = result.Err.Error()
	}
	_ = c.JSON(200, response)
}

func (h *WebhookHandler) ListDeliveries(c *drift.Context) {
	tenantID := middleware.GetTenantID(c)
	if tenantID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	webhookID, err := uuid.Parse(c.Param("webhookId"))
	if err != nil {
		c.BadRequest("invalid webhook id")
		return
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	deliveries, err := h.webhookService.ListDeliveries(context.Background(), tenantID, webhookID, limit)
	if err != nil {
		c.InternalServerError("failed to list deliveries")
		return
	}

	response := make([]dto.DeliveryResponse, 0, len(deliveries))
	for _, d := range deliveries {
		response = append(response, dto.DeliveryResponse{
			ID:         d.ID,
			Event:      d.Event,
			StatusCode: d.StatusCode,
			Success:    d.Success,
			DurationMs: d.DurationMs,
			Error:      d.Error,
			CreatedAt:  d.CreatedAt,
		})
	}
	_ = c.JSON(200, response)
}

func webhookResponse(sub *models.WebhookSubscription) dto.WebhookResponse {
	return dto.WebhookResponse{
		ID:               sub.ID,
		URL:              sub.URL,
		Events:           sub.Events,
		IsActive:         sub.IsActive,
		FailureCount:     sub.FailureCount,
		MaxFailures:      sub.MaxFailures,
		RetryBackoffSecs: sub.RetryBackoffSecs,
		LastTriggeredAt:  sub.LastTriggeredAt,
		LastStatusCode:   sub.LastStatusCode,
		CreatedAt:        sub.CreatedAt,
	}
}
