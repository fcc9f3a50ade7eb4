package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/storedesk-backend/pkg/db"
	"github.com/angelmondragon/storedesk-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storedesk-backend/pkg/errors"
	"github.com/angelmondragon/storedesk-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service manages the customer directory.
type Service interface {
	ListCustomers(ctx context.Context, input ListCustomersInput) (*CustomerListResult, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (*CustomerDTO, error)
	CreateCustomer(ctx context.Context, input CustomerInput) (*CustomerDTO, error)
	UpdateCustomer(ctx context.Context, id uuid.UUID, input CustomerInput) (*CustomerDTO, error)
	DeleteCustomer(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo     *Repository
	dbClient db.TxRunner
}

func NewService(repo *Repository, dbClient db.TxRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, dbClient: dbClient}, nil
}

func (s *service) ListCustomers(ctx context.Context, input ListCustomersInput) (*CustomerListResult, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	pageSize := pagination.NormalizeLimit(input.Limit)

	rows, err := s.repo.List(ctx, strings.ToLower(strings.TrimSpace(input.Search)), pagination.LimitWithBuffer(input.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list customers")
	}

	result := &CustomerListResult{Customers: make([]CustomerDTO, 0, pageSize)}
	if len(rows) > pageSize {
		last := rows[pageSize-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		rows = rows[:pageSize]
	}
	for i := range rows {
		result.Customers = append(result.Customers, FromModel(&rows[i]))
	}
	return result, nil
}

func (s *service) GetCustomer(ctx context.Context, id uuid.UUID) (*CustomerDTO, error) {
	customer, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.CountSales(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count customer sales")
	}
	lastSale, err := s.repo.LastSaleAt(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: last customer sale")
	}
	dto := FromModel(customer)
	dto.SalesCount = &count
	dto.LastSaleAt = lastSale
	return &dto, nil
}

func (s *service) CreateCustomer(ctx context.Context, input CustomerInput) (*CustomerDTO, error) {
	input, err := normalizeInput(input)
	if err != nil {
		return nil, err
	}
	customer := &models.Customer{}
	applyInput(customer, input)
	if err := s.repo.Create(ctx, customer); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert customer")
	}
	dto := FromModel(customer)
	return &dto, nil
}

func (s *service) UpdateCustomer(ctx context.Context, id uuid.UUID, input CustomerInput) (*CustomerDTO, error) {
	input, err := normalizeInput(input)
	if err != nil {
		return nil, err
	}

	var updated *models.Customer
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		customer, err := s.load(ctx, txRepo, id)
		if err != nil {
			return err
		}
		applyInput(customer, input)
		if err := txRepo.Save(ctx, customer); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update customer")
		}
		updated = customer
		return nil
	}); err != nil {
		return nil, err
	}

	dto := FromModel(updated)
	return &dto, nil
}

// DeleteCustomer removes the customer; their sales stay with no customer.
func (s *service) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	return s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		affected, err := s.repo.WithTx(tx).Delete(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete customer")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil
	})
}

func (s *service) load(ctx context.Context, repo *Repository, id uuid.UUID) (*models.Customer, error) {
	customer, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load customer")
	}
	return customer, nil
}

func normalizeInput(input CustomerInput) (CustomerInput, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.TaxID = strings.TrimSpace(input.TaxID)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Address = strings.TrimSpace(input.Address)
	if input.Name == "" {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	return input, nil
}

func applyInput(customer *models.Customer, input CustomerInput) {
	customer.Name = input.Name
	customer.TaxID = input.TaxID
	customer.Phone = input.Phone
	customer.Email = input.Email
	customer.Address = input.Address
}
