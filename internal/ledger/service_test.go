package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/storedesk-backend/pkg/db/models"
	"github.com/angelmondragon/storedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storedesk-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeRepository struct {
	createFn      func(ctx context.Context, movement *models.StockMovement) error
	listProductFn func(ctx context.Context, productID uuid.UUID, limit int) ([]models.StockMovement, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) Create(ctx context.Context, movement *models.StockMovement) error {
	if f.createFn != nil {
		return f.createFn(ctx, movement)
	}
	return nil
}

func (f *fakeRepository) ListByProductID(ctx context.Context, productID uuid.UUID, limit int) ([]models.StockMovement, error) {
	if f.listProductFn != nil {
		return f.listProductFn(ctx, productID, limit)
	}
	return nil, nil
}

func (f *fakeRepository) ListBySaleID(ctx context.Context, saleID uuid.UUID) ([]models.StockMovement, error) {
	return nil, nil
}

func TestService_RecordMovement(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	saleID := uuid.New()
	actorID := uuid.New()
	input := RecordMovementInput{
		ProductID:     uuid.New(),
		SaleID:        &saleID,
		ActorUserID:   &actorID,
		Type:          enums.StockMovementSale,
		StockBefore:   10,
		QuantityDelta: -3,
	}

	var created *models.StockMovement
	repo.createFn = func(ctx context.Context, movement *models.StockMovement) error {
		created = movement
		return nil
	}

	got, err := svc.WithTx(nil).RecordMovement(context.Background(), input)
	if err != nil {
		t.Fatalf("RecordMovement error: %v", err)
	}
	if created == nil {
		t.Fatal("expected movement to be created")
	}
	if created.StockAfter != 7 || created.StockBefore != 10 || created.QuantityDelta != -3 {
		t.Fatalf("unexpected stock math: %+v", created)
	}
	if created.SaleID == nil || *created.SaleID != saleID {
		t.Fatalf("missing sale id: %+v", created)
	}
	if got != created {
		t.Fatalf("service should return created movement")
	}
}

func TestService_RecordMovementValidation(t *testing.T) {
	svc, err := NewService(&fakeRepository{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	tests := []struct {
		name  string
		input RecordMovementInput
	}{
		{
			name:  "missing product",
			input: RecordMovementInput{Type: enums.StockMovementAdjustment, QuantityDelta: 1},
		},
		{
			name:  "invalid type",
			input: RecordMovementInput{ProductID: uuid.New(), Type: "gift", QuantityDelta: 1},
		},
		{
			name:  "zero delta",
			input: RecordMovementInput{ProductID: uuid.New(), Type: enums.StockMovementAdjustment},
		},
		{
			name:  "negative result",
			input: RecordMovementInput{ProductID: uuid.New(), Type: enums.StockMovementAdjustment, StockBefore: 2, QuantityDelta: -3},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.RecordMovement(context.Background(), tc.input); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestService_RecordMovementWrapsRepoError(t *testing.T) {
	repo := &fakeRepository{createFn: func(ctx context.Context, movement *models.StockMovement) error {
		return errors.New("disk full")
	}}
	svc, _ := NewService(repo)

	_, err := svc.RecordMovement(context.Background(), RecordMovementInput{
		ProductID:     uuid.New(),
		Type:          enums.StockMovementAdjustment,
		QuantityDelta: 5,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestService_ListForProductClampsLimit(t *testing.T) {
	var gotLimit int
	repo := &fakeRepository{listProductFn: func(ctx context.Context, productID uuid.UUID, limit int) ([]models.StockMovement, error) {
		gotLimit = limit
		return []models.StockMovement{{ID: uuid.New(), ProductID: productID, Type: enums.StockMovementSale, QuantityDelta: -1, StockBefore: 1}}, nil
	}}
	svc, _ := NewService(repo)

	rows, err := svc.ListForProduct(context.Background(), uuid.New(), 1000)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if gotLimit != defaultHistoryLimit {
		t.Fatalf("expected limit clamp to %d, got %d", defaultHistoryLimit, gotLimit)
	}
	if len(rows) != 1 || rows[0].Type != enums.StockMovementSale {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestNewServiceRequiresRepo(t *testing.T) {
	if _, err := NewService(nil); err == nil {
		t.Fatal("expected error for nil repo")
	}
}
