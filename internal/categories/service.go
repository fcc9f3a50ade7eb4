package categories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/storedesk-backend/pkg/db"
	"github.com/angelmondragon/storedesk-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storedesk-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxNameLength = 100

// Service exposes catalog category management.
type Service interface {
	ListCategories(ctx context.Context, search string) ([]CategoryDTO, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*CategoryDTO, error)
	CreateCategory(ctx context.Context, name string) (*CategoryDTO, error)
	RenameCategory(ctx context.Context, id uuid.UUID, name string) (*CategoryDTO, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo     *Repository
	dbClient db.TxRunner
}

// NewService constructs a category service instance.
func NewService(repo *Repository, dbClient db.TxRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("category repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, dbClient: dbClient}, nil
}

func (s *service) ListCategories(ctx context.Context, search string) ([]CategoryDTO, error) {
	rows, err := s.repo.List(ctx, strings.ToLower(strings.TrimSpace(search)))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) GetCategory(ctx context.Context, id uuid.UUID) (*CategoryDTO, error) {
	category, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.CountProducts(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count category products")
	}
	dto := FromModel(category)
	dto.ProductCount = &count
	return &dto, nil
}

func (s *service) CreateCategory(ctx context.Context, name string) (*CategoryDTO, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	category := &models.Category{Name: name}
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := ensureUniqueName(ctx, txRepo, name, nil); err != nil {
			return err
		}
		if err := txRepo.Create(ctx, category); err != nil {
			return translateWriteError(err, "db: insert category")
		}
		return nil
	}); err != nil {
		return nil, err
	}

	dto := FromModel(category)
	return &dto, nil
}

func (s *service) RenameCategory(ctx context.Context, id uuid.UUID, name string) (*CategoryDTO, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	var updated *models.Category
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		category, err := s.load(ctx, txRepo, id)
		if err != nil {
			return err
		}
		if err := ensureUniqueName(ctx, txRepo, name, &id); err != nil {
			return err
		}
		category.Name = name
		if err := txRepo.Save(ctx, category); err != nil {
			return translateWriteError(err, "db: update category")
		}
		updated = category
		return nil
	}); err != nil {
		return nil, err
	}

	dto := FromModel(updated)
	return &dto, nil
}

// DeleteCategory removes the category; products keep existing uncategorized.
func (s *service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		affected, err := s.repo.WithTx(tx).Delete(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete category")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil
	})
}

func (s *service) load(ctx context.Context, repo *Repository, id uuid.UUID) (*models.Category, error) {
	category, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load category")
	}
	return category, nil
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if len([]rune(name)) > maxNameLength {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "name must be at most %d characters", maxNameLength)
	}
	return name, nil
}

func ensureUniqueName(ctx context.Context, repo *Repository, name string, excludeID *uuid.UUID) error {
	exists, err := repo.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check category name")
	}
	if exists {
		return pkgerrors.Newf(pkgerrors.CodeConflict, "category %q already exists", name)
	}
	return nil
}

func translateWriteError(err error, msg string) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "category name already exists")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
