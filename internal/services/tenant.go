package services

import (
	"context"
	"errors"

	"github.com/dkrstic/sitegrid-api/internal/database"
	"github.com/dkrstic/sitegrid-api/internal/models"
	"github.com/google/uuid"
)

var ErrTenantNotFound = errors.New("tenant not found")

type TenantService struct {
	db *database.DB
}

func NewTenantService(db *database.DB) *TenantService {
	return &TenantService{db: db}
}

func (s *TenantService) GetByID(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error) {
	var tenant models.Tenant
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, name, subdomain, status, created_at, updated_at
		FROM tenants WHERE id = $1
	`, tenantID).Scan(
		&tenant.ID, &tenant.Name, &tenant.Subdomain, &tenant.Status,
		&tenant.CreatedAt, &tenant.UpdatedAt,
	)
	if err != nil {
		return nil, ErrTenantNotFound
	}
	return &tenant, nil
}

func (s *TenantService) Update(ctx context.Context, tenantID uuid.UUID, name string) (*models.Tenant, error) {
	var tenant models.Tenant
	err := s.db.Pool.QueryRow(ctx, `
		UPDATE tenants SET name = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING id, name, subdomain, status, created_at, updated_at
	`, name, tenantID).Scan(
		&tenant.ID, &tenant.Name, &tenant.Subdomain, &tenant.Status,
		&tenant.CreatedAt, &tenant.UpdatedAt,
	)
	if err != nil {
		return nil, ErrTenantNotFound
	}
	return &tenant, nil
}

func (s *TenantService) IsSuspended(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	var status string
	err := s.db.Pool.QueryRow(ctx, `SELECT status FROM tenants WHERE id = $1`, tenantID).Scan(&status)
	if err != nil {
		return false, err
	}
	return status == models.TenantStatusSuspended, nil
}
