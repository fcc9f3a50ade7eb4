package customers

import (
	"time"

	"github.com/angelmondragon/storedesk-backend/pkg/db/models"
	"github.com/google/uuid"
)

type CustomerDTO struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	TaxID      string     `json:"tax_id"`
	Phone      string     `json:"phone"`
	Email      string     `json:"email"`
	Address    string     `json:"address"`
	SalesCount *int64     `json:"sales_count,omitempty"`
	LastSaleAt *time.Time `json:"last_sale_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// CustomerInput is used for both create and full update.
type CustomerInput struct {
	Name    string `json:"name" validate:"required,max=200"`
	TaxID   string `json:"tax_id" validate:"omitempty,max=50"`
	Phone   string `json:"phone" validate:"omitempty,max=50"`
	Email   string `json:"email" validate:"omitempty,email,max=254"`
	Address string `json:"address" validate:"omitempty,max=500"`
}

type ListCustomersInput struct {
	Search string
	Limit  int
	Cursor string
}

type CustomerListResult struct {
	Customers  []CustomerDTO `json:"customers"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

func FromModel(m *models.Customer) CustomerDTO {
	return CustomerDTO{
		ID:        m.ID,
		Name:      m.Name,
		TaxID:     m.TaxID,
		Phone:     m.Phone,
		Email:     m.Email,
		Address:   m.Address,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
