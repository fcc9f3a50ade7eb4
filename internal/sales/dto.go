package sales

import (
	"time"

	"github.com/angelmondragon/storedesk-backend/pkg/db/models"
	"github.com/angelmondragon/storedesk-backend/pkg/enums"
	"github.com/angelmondragon/storedesk-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineInput is one requested product and quantity.
type LineInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

// CreateSaleInput is the payload for recording a sale. OperatorID comes from the
// authenticated actor, never from the body.
type CreateSaleInput struct {
	CustomerID    *uuid.UUID  `json:"customer_id"`
	PaymentMethod string      `json:"payment_method" validate:"omitempty,oneof=cash card transfer"`
	Items         []LineInput `json:"items" validate:"required,min=1,dive"`
	OperatorID    *uuid.UUID  `json:"-"`
}

// UpdateSaleDetailsInput edits header fields only.
type UpdateSaleDetailsInput struct {
	CustomerID    *uuid.UUID `json:"customer_id"`
	ClearCustomer bool       `json:"clear_customer"`
	PaymentMethod *string    `json:"payment_method" validate:"omitempty,oneof=cash card transfer"`
}

// ReplaceLineItemsInput is a full replacement of a sale's lines.
type ReplaceLineItemsInput struct {
	Items      []LineInput `json:"items" validate:"required,min=1,dive"`
	OperatorID *uuid.UUID  `json:"-"`
}

// ListSalesInput filters the sales listing. From and To bound sold_at, To exclusive.
type ListSalesInput struct {
	CustomerID    *uuid.UUID
	PaymentMethod *enums.PaymentMethod
	From          *time.Time
	To            *time.Time
	Pagination    pagination.Params
}

// InsufficientStock describes one product that cannot cover the requested quantity.
type InsufficientStock struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Requested   int       `json:"requested"`
	Available   int       `json:"available"`
}

type LineItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	ProductCode string          `json:"product_code"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type SaleDTO struct {
	ID            uuid.UUID           `json:"id"`
	SoldAt        time.Time           `json:"sold_at"`
	CustomerID    *uuid.UUID          `json:"customer_id,omitempty"`
	CustomerName  string              `json:"customer_name"`
	OperatorID    *uuid.UUID          `json:"operator_id,omitempty"`
	OperatorName  string              `json:"operator_name,omitempty"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Total         decimal.Decimal     `json:"total"`
	ItemCount     int                 `json:"item_count"`
	Items         []LineItemDTO       `json:"items,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

type SaleListResult struct {
	Sales      []SaleDTO `json:"sales"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// WalkInCustomerName labels sales without a customer.
const WalkInCustomerName = "Walk-in customer"

func saleToDTO(sale *models.Sale, lines []models.SaleLineItem) SaleDTO {
	dto := SaleDTO{
		ID:            sale.ID,
		SoldAt:        sale.SoldAt,
		CustomerID:    sale.CustomerID,
		CustomerName:  WalkInCustomerName,
		OperatorID:    sale.OperatorID,
		PaymentMethod: sale.PaymentMethod,
		Total:         sale.Total,
		CreatedAt:     sale.CreatedAt,
		UpdatedAt:     sale.UpdatedAt,
	}
	if sale.Customer != nil {
		dto.CustomerName = sale.Customer.Name
	}
	if sale.Operator != nil {
		dto.OperatorName = sale.Operator.DisplayName()
	}
	if lines != nil {
		dto.Items = make([]LineItemDTO, 0, len(lines))
		for _, line := range lines {
			item := LineItemDTO{
				ID:        line.ID,
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
				Subtotal:  line.Subtotal(),
			}
			if line.Product != nil {
				item.ProductName = line.Product.Name
				item.ProductCode = line.Product.Code
			}
			dto.Items = append(dto.Items, item)
			dto.ItemCount += line.Quantity
		}
	}
	return dto
}
