package categories

import (
	"time"

	"github.com/angelmondragon/storedesk-backend/pkg/db/models"
	"github.com/google/uuid"
)

// CategoryDTO is the API shape of a category.
type CategoryDTO struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	ProductCount *int64    `json:"product_count,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateCategoryRequest is the request body for creating or renaming a category.
type CreateCategoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

func FromModel(m *models.Category) CategoryDTO {
	return CategoryDTO{
		ID:        m.ID,
		Name:      m.Name,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
