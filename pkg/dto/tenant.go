package dto

import (
	"time"

	"github.com/google/uuid"
)

type TenantResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Subdomain string    `json:"subdomain"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type UpdateTenantRequest struct {
	Name *string `json:"name,omitempty"`
}
