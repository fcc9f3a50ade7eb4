package db

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storedesk-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Models lists every persisted model, parents before children.
func Models() []any {
	return []any{
		&models.User{},
		&models.Category{},
		&models.Customer{},
		&models.Product{},
		&models.Event{},
		&models.Sale{},
		&models.SaleLineItem{},
		&models.StockMovement{},
		&models.BackupRecord{},
		&models.ReportRecord{},
	}
}

// AutoMigrate builds the schema from the GORM models. Postgres deployments use the
// goose migrations instead; this path serves SQLite and tests.
func AutoMigrate(ctx context.Context, conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db is required")
	}
	if err := conn.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
