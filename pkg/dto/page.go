package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type CreatePageRequest struct {
	Title   string          `json:"title"`
	Slug    string          `json:"slug"`
	Content json.RawMessage `json:"content,omitempty"`
}

type UpdatePageRequest struct {
	Title     *string         `json:"title,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	Published *bool           `json:"published,omitempty"`
}

type PageResponse struct {
	ID        uuid.UUID       `json:"id"`
	Title     string          `json:"title"`
	Slug      string          `json:"slug"`
	Content   json.RawMessage `json:"content"`
	Published bool            `json:"published"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
