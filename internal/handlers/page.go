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

// PageHandler is the representative mutation surface: each successful write
// hands an event to the dispatcher and returns without waiting on delivery.
type PageHandler struct {
	pageService PageServiceInterface
	dispatcher  EventDispatcher
}

func NewPageHandler(pageService PageServiceInterface, dispatcher EventDispatcher) *PageHandler {
	return &PageHandler{pageService: pageService, dispatcher: dispatcher}
}

func (h *PageHandler) Create(c *drift.Context) {
	tenantID := middleware.GetTenantID(c)
	if tenantID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	var req dto.CreatePageRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Slug) == "" {
		c.BadRequest("title and slug are required")
		return
	}

	page, err := h.pageService.Create(context.Background(), tenantID, req.Title, req.Slug, req.Content)
	if err != nil {
		c.InternalServerError("failed to create page")
		return
	}

	payload, _ := json.Marshal(pageResponse(page))
	h.dispatcher.Dispatch(tenantID, models.EventPageCreated, payload)

	_ = c.JSON(201, pageResponse(page))
}

func (h *PageHandler) Get(c *drift.Context) {
	tenantID := middleware.GetTenantID(c)
	if tenantID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	pageID, err := uuid.Parse(c.Param("pageId"))
	if err != nil {
		c.BadRequest("invalid page id")
		return
	}

	page, err := h.pageService.GetByID(context.Background(), tenantID, pageID)
	if err != nil {
		c.NotFound("page not found")
		return
	}

	_ = c.JSON(200, pageResponse(page))
}

func (h *PageHandler) List(c *drift.Context) {
	tenantID := middleware.GetTenantID(c)
	if tenantID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	pages, err := h.pageService.List(context.Background(), tenantID)
	if err != nil {
		c.InternalServerError("failed to list pages")
		return
	}

	response := make([]dto.PageResponse, 0, len(pages))
	for i := range pages {
		response = append(response, pageResponse(&pages[i]))
	}
	_ = c.JSON(200, response)
}

func (h *PageHandler) Update(c *drift.Context) {
	tenantID := middleware.GetTenantID(c)
	if tenantID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	pageID, err := uuid.Parse(c.Param("pageId"))
	if err != nil {
		c.BadRequest("invalid page id")
		return
	}

	var req dto.UpdatePageRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	page, err := h.pageService.Update(context.Background(), tenantID, pageID, req.Title, req.Content, req.Published)
	if err != nil {
		c.NotFound("page not found")
		return
	}

	payload, _ := json.Marshal(pageResponse(page))
	h.dispatcher.Dispatch(tenantID, models.EventPageUpdated, payload)
	if req.Published != nil && *req.Published {
		h.dispatcher.Dispatch(tenantID, models.EventSitePublished, payload)
	}

	_ = c.JSON(200, pageResponse(page))
}

func (h *PageHandler) Delete(c *drift.Context) {
	tenantID := middleware.GetTenantID(c)
	if tenantID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	pageID, err := uuid.Parse(c.Param("pageId"))
	if err != nil {
		c.BadRequest("invalid page id")
		return
	}

	if err := h.pageService.Delete(context.Background(), tenantID, pageID); err != nil {
		c.NotFound("page not found")
		return
	}

	payload, _ := json.Marshal(map[string]string{"page_id": pageID.String()})
	h.dispatcher.Dispatch(tenantID, models.EventPageDeleted, payload)

	_ = c.JSON(200, map[string]string{"message": "page deleted"})
}

func pageResponse(p *models.Page) dto.PageResponse {
	content := json.RawMessage(p.Content)
	if len(content) == 0 {
		content = json.RawMessage(`{}`)
	}
	return dto.PageResponse{
		ID:        p.ID,
		Title:     p.Title,
		Slug:      p.Slug,
		Content:   content,
		Published: p.Published,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
