package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storedesk-backend/internal/ledger"
	product "github.com/angelmondragon/storedesk-backend/internal/products"
	"github.com/angelmondragon/storedesk-backend/pkg/db"
	"github.com/angelmondragon/storedesk-backend/pkg/db/models"
	"github.com/angelmondragon/storedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storedesk-backend/pkg/errors"
	"github.com/angelmondragon/storedesk-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service records sales and keeps product stock consistent with their lines.
type Service interface {
	CreateSale(ctx context.Context, input CreateSaleInput) (*SaleDTO, error)
	UpdateSaleDetails(ctx context.Context, id uuid.UUID, input UpdateSaleDetailsInput) (*SaleDTO, error)
	ReplaceLineItems(ctx context.Context, id uuid.UUID, input ReplaceLineItemsInput) (*SaleDTO, error)
	DeleteSale(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) error
	GetSale(ctx context.Context, id uuid.UUID) (*SaleDTO, error)
	ListSales(ctx context.Context, input ListSalesInput) (*SaleListResult, error)
}

// Options tune sale side effects.
type Options struct {
	RestoreStockOnDelete bool
	Clock                func() time.Time
}

type service struct {
	repo        *Repository
	productRepo *product.Repository
	dbClient    db.TxRunner
	ledger      ledger.Service
	opts        Options
}

// NewService wires the sale service.
func NewService(repo *Repository, productRepo *product.Repository, dbClient db.TxRunner, ledgerSvc ledger.Service, opts Options) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &service{
		repo:        repo,
		productRepo: productRepo,
		dbClient:    dbClient,
		ledger:      ledgerSvc,
		opts:        opts,
	}, nil
}

func (s *service) CreateSale(ctx context.Context, input CreateSaleInput) (*SaleDTO, error) {
	if err := validateItems(input.Items); err != nil {
		return nil, err
	}
	method, err := enums.ParsePaymentMethod(input.PaymentMethod)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_method")
	}

	order, requested := requestedQuantities(input.Items)
	sale := &models.Sale{
		SoldAt:        s.opts.Clock().UTC(),
		CustomerID:    input.CustomerID,
		OperatorID:    input.OperatorID,
		PaymentMethod: method,
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		txProducts := s.productRepo.WithTx(tx)
		txLedger := s.ledger.WithTx(tx)

		if err := ensureCustomer(ctx, txRepo, input.CustomerID); err != nil {
			return err
		}
		products, err := txProducts.FindByIDsForUpdate(ctx, unionIDs(requested))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: lock products")
		}
		if err := missingProducts(order, products); err != nil {
			return err
		}
		if short := checkAvailability(order, requested, products, nil); len(short) > 0 {
			return insufficientStockError(short)
		}

		lines := buildLines(input.Items, products)
		sale.Total = totalOf(lines)
		if err := txRepo.CreateSale(ctx, sale); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert sale")
		}
		for i := range lines {
			lines[i].SaleID = sale.ID
		}
		if err := txRepo.CreateLines(ctx, lines); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert sale lines")
		}

		running := stockSnapshot(products)
		for _, line := range lines {
			if err := s.moveStock(ctx, txProducts, txLedger, stockMove{
				product: products[line.ProductID],
				before:  running[line.ProductID],
				delta:   -line.Quantity,
				saleID:  &sale.ID,
				actorID: input.OperatorID,
				kind:    enums.StockMovementSale,
			}); err != nil {
				return err
			}
			running[line.ProductID] -= line.Quantity
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return s.GetSale(ctx, sale.ID)
}

func (s *service) UpdateSaleDetails(ctx context.Context, id uuid.UUID, input UpdateSaleDetailsInput) (*SaleDTO, error) {
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		sale, err := loadForUpdate(ctx, txRepo, id)
		if err != nil {
			return err
		}
		if input.ClearCustomer {
			sale.CustomerID = nil
		} else if input.CustomerID != nil {
			if err := ensureCustomer(ctx, txRepo, input.CustomerID); err != nil {
				return err
			}
			customerID := *input.CustomerID
			sale.CustomerID = &customerID
		}
		if input.PaymentMethod != nil {
			method, err := enums.ParsePaymentMethod(*input.PaymentMethod)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_method")
			}
			sale.PaymentMethod = method
		}
		if err := txRepo.UpdateHeader(ctx, sale); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update sale")
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return s.GetSale(ctx, id)
}

// ReplaceLineItems swaps the sale's lines. Stock held by the old lines counts as
// available to the new ones; nothing changes when any product falls short.
func (s *service) ReplaceLineItems(ctx context.Context, id uuid.UUID, input ReplaceLineItemsInput) (*SaleDTO, error) {
	if err := validateItems(input.Items); err != nil {
		return nil, err
	}
	order, requested := requestedQuantities(input.Items)

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		txProducts := s.productRepo.WithTx(tx)
		txLedger := s.ledger.WithTx(tx)

		sale, err := loadForUpdate(ctx, txRepo, id)
		if err != nil {
			return err
		}
		previous, err := txRepo.ListLines(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load sale lines")
		}
		reserved := reservedQuantities(previous)

		products, err := txProducts.FindByIDsForUpdate(ctx, unionIDs(requested, reserved))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: lock products")
		}
		if err := missingProducts(order, products); err != nil {
			return err
		}
		if short := checkAvailability(order, requested, products, reserved); len(short) > 0 {
			return insufficientStockError(short)
		}

		running := stockSnapshot(products)
		for _, productID := range unionIDs(reserved) {
			qty := reserved[productID]
			if err := s.moveStock(ctx, txProducts, txLedger, stockMove{
				product: products[productID],
				before:  running[productID],
				delta:   qty,
				saleID:  &sale.ID,
				actorID: input.OperatorID,
				kind:    enums.StockMovementSaleRevisionRelease,
			}); err != nil {
				return err
			}
			running[productID] += qty
		}

		if err := txRepo.DeleteLines(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete sale lines")
		}
		lines := buildLines(input.Items, products)
		for i := range lines {
			lines[i].SaleID = sale.ID
		}
		if err := txRepo.CreateLines(ctx, lines); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert sale lines")
		}

		for _, productID := range order {
			qty := requested[productID]
			if err := s.moveStock(ctx, txProducts, txLedger, stockMove{
				product: products[productID],
				before:  running[productID],
				delta:   -qty,
				saleID:  &sale.ID,
				actorID: input.OperatorID,
				kind:    enums.StockMovementSaleRevision,
			}); err != nil {
				return err
			}
			running[productID] -= qty
		}

		sale.Total = totalOf(lines)
		if err := txRepo.UpdateHeader(ctx, sale); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update sale total")
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return s.GetSale(ctx, id)
}

// DeleteSale removes the sale and its lines. Stock returns to the shelf only
// when RestoreStockOnDelete is set.
func (s *service) DeleteSale(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) error {
	return s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		sale, err := loadForUpdate(ctx, txRepo, id)
		if err != nil {
			return err
		}

		if s.opts.RestoreStockOnDelete {
			lines, err := txRepo.ListLines(ctx, id)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load sale lines")
			}
			reserved := reservedQuantities(lines)
			txProducts := s.productRepo.WithTx(tx)
			products, err := txProducts.FindByIDsForUpdate(ctx, unionIDs(reserved))
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: lock products")
			}
			txLedger := s.ledger.WithTx(tx)
			for _, productID := range unionIDs(reserved) {
				if err := s.moveStock(ctx, txProducts, txLedger, stockMove{
					product: products[productID],
					before:  products[productID].StockQuantity,
					delta:   reserved[productID],
					saleID:  &sale.ID,
					actorID: actorID,
					kind:    enums.StockMovementSaleDeleteRestore,
				}); err != nil {
					return err
				}
			}
		}

		if err := txRepo.DeleteLines(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete sale lines")
		}
		if _, err := txRepo.DeleteSale(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete sale")
		}
		return nil
	})
}

func (s *service) GetSale(ctx context.Context, id uuid.UUID) (*SaleDTO, error) {
	sale, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load sale")
	}
	lines, err := s.repo.ListLines(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load sale lines")
	}
	if lines == nil {
		lines = []models.SaleLineItem{}
	}
	dto := saleToDTO(sale, lines)
	return &dto, nil
}

func (s *service) ListSales(ctx context.Context, input ListSalesInput) (*SaleListResult, error) {
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if input.From != nil && input.To != nil && !input.From.Before(*input.To) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from must be before to")
	}
	pageSize := pagination.NormalizeLimit(input.Pagination.Limit)

	rows, err := s.repo.List(ctx, saleListQuery{
		ListSalesInput: input,
		Limit:          pagination.LimitWithBuffer(input.Pagination.Limit),
		Cursor:         cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list sales")
	}

	result := &SaleListResult{Sales: make([]SaleDTO, 0, pageSize)}
	if len(rows) > pageSize {
		last := rows[pageSize-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		rows = rows[:pageSize]
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	units, err := s.repo.CountUnits(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count sale units")
	}
	for i := range rows {
		dto := saleToDTO(&rows[i], nil)
		dto.ItemCount = units[rows[i].ID]
		result.Sales = append(result.Sales, dto)
	}
	return result, nil
}

type stockMove struct {
	product *models.Product
	before  int
	delta   int
	saleID  *uuid.UUID
	actorID *uuid.UUID
	kind    enums.StockMovementType
}

// moveStock applies a guarded delta and records the matching movement. A guard
// miss means a concurrent writer drained the stock after it was checked.
func (s *service) moveStock(ctx context.Context, products *product.Repository, movements ledger.Service, move stockMove) error {
	ok, err := products.ApplyStockDelta(ctx, move.product.ID, move.delta)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update stock")
	}
	if !ok {
		return insufficientStockError([]InsufficientStock{{
			ProductID:   move.product.ID,
			ProductName: move.product.Name,
			Requested:   -move.delta,
			Available:   move.before,
		}})
	}
	_, err = movements.RecordMovement(ctx, ledger.RecordMovementInput{
		ProductID:     move.product.ID,
		SaleID:        move.saleID,
		ActorUserID:   move.actorID,
		Type:          move.kind,
		StockBefore:   move.before,
		QuantityDelta: move.delta,
	})
	return err
}

func loadForUpdate(ctx context.Context, repo *Repository, id uuid.UUID) (*models.Sale, error) {
	sale, err := repo.FindByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load sale")
	}
	return sale, nil
}

func ensureCustomer(ctx context.Context, repo *Repository, customerID *uuid.UUID) error {
	if customerID == nil {
		return nil
	}
	exists, err := repo.CustomerExists(ctx, *customerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check customer")
	}
	if !exists {
		return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	return nil
}

// buildLines prices each requested line at the product's current sale price.
func buildLines(items []LineInput, products map[uuid.UUID]*models.Product) []models.SaleLineItem {
	lines := make([]models.SaleLineItem, 0, len(items))
	for i, item := range items {
		lines = append(lines, models.SaleLineItem{
			ProductID: item.ProductID,
			Position:  i,
			Quantity:  item.Quantity,
			UnitPrice: products[item.ProductID].SalePrice,
		})
	}
	return lines
}

func totalOf(lines []models.SaleLineItem) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

func stockSnapshot(products map[uuid.UUID]*models.Product) map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(products))
	for id, p := range products {
		out[id] = p.StockQuantity
	}
	return out
}
