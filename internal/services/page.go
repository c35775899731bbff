package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkrstic/sitegrid-api/internal/database"
	"github.com/dkrstic/sitegrid-api/internal/models"
	"github.com/google/uuid"
)

var ErrPageNotFound = errors.New("page not found")

// PageService is the representative mutation surface: every write dispatches
// a webhook event after the row is committed.
type PageService struct {
	db *database.DB
}

func NewPageService(db *database.DB) *PageService {
	return &PageService{db: db}
}

func (s *PageService) Create(ctx context.Context, tenantID uuid.UUID, title, slug string, content []byte) (*models.Page, error) {
	if len(content) == 0 {
		content = []byte(`{}`)
	}

	var page models.Page
	err := s.db.Pool.QueryRow(ctx, `
		INSERT INTO pages (tenant_id, title, slug, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, tenant_id, title, slug, content, published, created_at, updated_at
	`, tenantID, title, slug, content).Scan(
		&page.ID, &page.TenantID, &page.Title, &page.Slug,
		&page.Content, &page.Published, &page.CreatedAt, &page.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return &page, nil
}

func (s *PageService) GetByID(ctx context.Context, tenantID, pageID uuid.UUID) (*models.Page, error) {
	var page models.Page
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, tenant_id, title, slug, content, published, created_at, updated_at
		FROM pages WHERE id = $1 AND tenant_id = $2
	`, pageID, tenantID).Scan(
		&page.ID, &page.TenantID, &page.Title, &page.Slug,
		&page.Content, &page.Published, &page.CreatedAt, &page.UpdatedAt,
	)
	if err != nil {
		return nil, ErrPageNotFound
	}
	return &page, nil
}

func (s *PageService) List(ctx context.Context, tenantID uuid.UUID) ([]models.Page, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, tenant_id, title, slug, content, published, created_at, updated_at
		FROM pages WHERE tenant_id = $1
		ORDER BY created_at DESC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []models.Page
	for rows.Next() {
		var page models.Page
		if err := rows.Scan(
			&page.ID, &page.TenantID, &page.Title, &page.Slug,
			&page.Content, &page.Published, &page.CreatedAt, &page.UpdatedAt,
		); err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	return pages, nil
}

func (s *PageService) Update(ctx context.Context, tenantID, pageID uuid.UUID, title *string, content []byte, published *bool) (*models.Page, error) {
	page, err := s.GetByID(ctx, tenantID, pageID)
	if err != nil {
		return nil, err
	}

	if title != nil {
		page.Title = *title
	}
	if content != nil {
		page.Content = content
	}
	if published != nil {
		page.Published = *published
	}

	err = s.db.Pool.QueryRow(ctx, `
		UPDATE pages SET title = $1, content = $2, published = $3, updated_at = NOW()
		WHERE id = $4 AND tenant_id = $5
		RETURNING updated_at
	`, page.Title, page.Content, page.Published, pageID, tenantID).Scan(&page.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update page: %w", err)
	}
	return page, nil
}

func (s *PageService) Delete(ctx context.Context, tenantID, pageID uuid.UUID) error {
	result, err := s.db.Pool.Exec(ctx, `
		DELETE FROM pages WHERE id = $1 AND tenant_id = $2
	`, pageID, tenantID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrPageNotFound
	}
	return nil
}
