package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/dkrstic/sitegrid-api/internal/middleware"
	"github.com/dkrstic/sitegrid-api/internal/models"
	"github.com/dkrstic/sitegrid-api/internal/services"
	"github.com/dkrstic/sitegrid-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

type APIKeyHandler struct {
	apiKeyService APIKeyServiceInterface
	usageService  UsageServiceInterface
}

func NewAPIKeyHandler(apiKeyService APIKeyServiceInterface, usageService UsageServiceInterface) *APIKeyHandler {
	return &APIKeyHandler{
		apiKeyService: apiKeyService,
		usageService:  usageService,
	}
}

func (h *APIKeyHandler) Create(c *drift.Context) {
	userID := middleware.GetUserID(c)
	tenantID := middleware.GetTenantID(c)
	if userID == uuid.Nil || tenantID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	var req dto.CreateAPIKeyRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		c.BadRequest("name is required")
		return
	}

	key, plainKey, err := h.apiKeyService.Create(context.Background(), tenantID, req.Name, req.Permissions, req.RateLimit, req.ExpiresAt, userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoPermissions), errors.Is(err, services.ErrInvalidPermission):
			c.BadRequest(err.Error())
		default:
			c.InternalServerError("failed to create api key")
		}
		return
	}

	// The plaintext key appears in this response and nowhere else.
	_ = c.JSON(201, dto.APIKeyCreatedResponse{
		APIKeyResponse: apiKeyResponse(key),
		Key:            plainKey,
	})
}

func (h *APIKeyHandler) List(c *drift.Context) {
	tenantID := middleware.GetTenantID(c)
	if tenantID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	keys, err := h.apiKeyService.List(context.Background(), tenantID)
	if err != nil {
		c.InternalServerError("failed to list api keys")
		return
	}

	response := make([]dto.APIKeyResponse, 0, len(keys))
	for i := range keys {
		response = append(response, apiKeyResponse(&keys[i]))
	}
	_ = c.JSON(200, response)
}

func (h *APIKeyHandler) Revoke(c *drift.Context) {
	tenantID := middleware.GetTenantID(c)
	if tenantID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	keyID, err := uuid.Parse(c.Param("keyId"))
	if err != nil {
		c.BadRequest("invalid key id")
		return
	}

	if err := h.apiKeyService.Revoke(context.Background(), tenantID, keyID); err != nil {
		c.NotFound("api key not found")
		return
	}
	_ = c.JSON(200, map[string]string{"message": "api key revoked"})
}

func (h *APIKeyHandler) Delete(c *drift.Context) {
	tenantID := middleware.GetTenantID(c)
	if tenantID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	keyID, err := uuid.Parse(c.Param("keyId"))
	if err != nil {
		c.BadRequest("invalid key id")
		return
	}

	if err := h.apiKeyService.Delete(context.Background(), tenantID, keyID); err != nil {
		c.NotFound("api key not found")
		return
	}
	_ = c.JSON(200, map[string]string{"message": "api key deleted"})
}

// Rotate revokes the key and returns a replacement with the same scope. The
// old key stops validating the moment this returns.
func (h *APIKeyHandler) Rotate(c *drift.Context) {
	userID := middleware.GetUserID(c)
	tenantID := middleware.GetTenantID(c)
	if userID == uuid.Nil || tenantID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	keyID, err := uuid.Parse(c.Param("keyId"))
	if err != nil {
		c.BadRequest("invalid key id")
		return
	}

	key, plainKey, err := h.apiKeyService.Rotate(context.Background(), tenantID, keyID, userID)
	if err != nil {
		c.NotFound("api key not found")
		return
	}

	_ = c.JSON(200, dto.APIKeyCreatedResponse{
		APIKeyResponse: apiKeyResponse(key),
		Key:            plainKey,
	})
}

func (h *APIKeyHandler) Usage(c *drift.Context) {
	tenantID := middleware.GetTenantID(c)
	if tenantID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	keyID, err := uuid.Parse(c.Param("keyId"))
	if err != nil {
		c.BadRequest("invalid key id")
		return
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	usage, err := h.usageService.List(context.Background(), tenantID, keyID, limit)
	if err != nil {
		if errors.Is(err, services.ErrAPIKeyNotFound) {
			c.NotFound("api key not found")
			return
		}
		c.InternalServerError("failed to list usage")
		return
	}

	response := make([]dto.APIKeyUsageResponse, 0, len(usage))
	for _, u := range usage {
		response = append(response, dto.APIKeyUsageResponse{
			Endpoint:   u.Endpoint,
			Method:     u.Method,
			StatusCode: u.StatusCode,
			DurationMs: u.DurationMs,
			ClientIP:   u.ClientIP,
			CreatedAt:  u.CreatedAt,
		})
	}
	_ = c.JSON(200, response)
}

func (h *APIKeyHandler) Stats(c *drift.Context) {
	tenantID := middleware.GetTenantID(c)
	if tenantID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	keyID, err := uuid.Parse(c.Param("keyId"))
	if err != nil {
		c.BadRequest("invalid key id")
		return
	}

	stats, err := h.usageService.Stats(context.Background(), tenantID, keyID)
	if err != nil {
		if errors.Is(err, services.ErrAPIKeyNotFound) {
			c.NotFound("api key not found")
			return
		}
		c.InternalServerError("failed to load stats")
		return
	}

	_ = c.JSON(200, dto.APIKeyStatsResponse{
		TotalRequests: stats.TotalRequests,
		Last24hCount:  stats.Last24hCount,
		AvgDurationMs: stats.AvgDurationMs,
	})
}

func apiKeyResponse(k *models.APIKey) dto.APIKeyResponse {
	return dto.APIKeyResponse{
		ID:          k.ID,
		Name:        k.Name,
		KeyPrefix:   k.KeyPrefix,
		Permissions: k.Permissions,
		RateLimit:   k.RateLimit,
		IsActive:    k.IsActive,
		ExpiresAt:   k.ExpiresAt,
		LastUsedAt:  k.LastUsedAt,
		CreatedAt:   k.CreatedAt,
	}
}
