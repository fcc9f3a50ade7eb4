package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storedesk-backend/pkg/db/models"
	"github.com/angelmondragon/storedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storedesk-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const defaultHistoryLimit = 50

// Service records and lists stock movements.
type Service interface {
	WithTx(tx *gorm.DB) Service
	RecordMovement(ctx context.Context, input RecordMovementInput) (*models.StockMovement, error)
	ListForProduct(ctx context.Context, productID uuid.UUID, limit int) ([]MovementDTO, error)
	ListForSale(ctx context.Context, saleID uuid.UUID) ([]MovementDTO, error)
}

type service struct {
	repo Repository
}

// RecordMovementInput captures one stock change. StockAfter is derived.
type RecordMovementInput struct {
	ProductID     uuid.UUID
	SaleID        *uuid.UUID
	ActorUserID   *uuid.UUID
	Type          enums.StockMovementType
	StockBefore   int
	QuantityDelta int
	Note          string
}

// MovementDTO is the API representation of a stock movement.
type MovementDTO struct {
	ID            uuid.UUID               `json:"id"`
	ProductID     uuid.UUID               `json:"product_id"`
	SaleID        *uuid.UUID              `json:"sale_id,omitempty"`
	ActorUserID   *uuid.UUID              `json:"actor_user_id,omitempty"`
	Type          enums.StockMovementType `json:"type"`
	QuantityDelta int                     `json:"quantity_delta"`
	StockBefore   int                     `json:"stock_before"`
	StockAfter    int                     `json:"stock_after"`
	Note          string                  `json:"note,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
}

// NewService wires a movement service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) RecordMovement(ctx context.Context, input RecordMovementInput) (*models.StockMovement, error) {
	if input.ProductID == uuid.Nil {
		return nil, fmt.Errorf("product id is required")
	}
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("invalid stock movement type %q", input.Type)
	}
	if input.QuantityDelta == 0 {
		return nil, fmt.Errorf("quantity delta must be non-zero")
	}
	after := input.StockBefore + input.QuantityDelta
	if after < 0 {
		return nil, fmt.Errorf("stock after movement would be negative (%d)", after)
	}

	movement := &models.StockMovement{
		ProductID:     input.ProductID,
		SaleID:        input.SaleID,
		ActorUserID:   input.ActorUserID,
		Type:          input.Type,
		QuantityDelta: input.QuantityDelta,
		StockBefore:   input.StockBefore,
		StockAfter:    after,
		Note:          input.Note,
	}
	if err := s.repo.Create(ctx, movement); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert stock movement")
	}
	return movement, nil
}

func (s *service) ListForProduct(ctx context.Context, productID uuid.UUID, limit int) ([]MovementDTO, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if limit <= 0 || limit > defaultHistoryLimit {
		limit = defaultHistoryLimit
	}
	rows, err := s.repo.ListByProductID(ctx, productID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list stock movements")
	}
	return toDTOs(rows), nil
}

func (s *service) ListForSale(ctx context.Context, saleID uuid.UUID) ([]MovementDTO, error) {
	rows, err := s.repo.ListBySaleID(ctx, saleID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list sale stock movements")
	}
	return toDTOs(rows), nil
}

func toDTOs(rows []models.StockMovement) []MovementDTO {
	out := make([]MovementDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, MovementDTO{
			ID:            row.ID,
			ProductID:     row.ProductID,
			SaleID:        row.SaleID,
			ActorUserID:   row.ActorUserID,
			Type:          row.Type,
			QuantityDelta: row.QuantityDelta,
			StockBefore:   row.StockBefore,
			StockAfter:    row.StockAfter,
			Note:          row.Note,
			CreatedAt:     row.CreatedAt,
		})
	}
	return out
}
