package backup

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/storedesk-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	EntityUsers         = "users"
	EntityCategories    = "categories"
	EntityCustomers     = "customers"
	EntityProducts      = "products"
	EntityEvents        = "events"
	EntitySales         = "sales"
	EntitySaleLineItems = "sale_line_items"
)

// Entity describes how one entity type leaves and re-enters the database.
type Entity struct {
	Name   string
	Export func(ctx context.Context, tx *gorm.DB) ([]json.RawMessage, error)
	Purge  func(ctx context.Context, tx *gorm.DB) (int64, error)
	Import func(ctx context.Context, tx *gorm.DB, record json.RawMessage) error
}

// Manifest is the ordered list of entity types. Parents come before children so
// restoring in order never inserts a row ahead of what it references.
type Manifest []Entity

// DefaultManifest covers every business entity in dependency order.
func DefaultManifest() Manifest {
	return Manifest{
		collection[models.User](EntityUsers),
		collection[models.Category](EntityCategories),
		collection[models.Customer](EntityCustomers),
		collection[models.Product](EntityProducts),
		collection[models.Event](EntityEvents),
		collection[models.Sale](EntitySales),
		collection[models.SaleLineItem](EntitySaleLineItems),
	}
}

// Names lists entity names in manifest order.
func (m Manifest) Names() []string {
	names := make([]string, 0, len(m))
	for _, e := range m {
		names = append(names, e.Name)
	}
	return names
}

// Has reports whether the manifest declares name.
func (m Manifest) Has(name string) bool {
	for _, e := range m {
		if e.Name == name {
			return true
		}
	}
	return false
}

// Reversed returns a copy in the opposite order.
func (m Manifest) Reversed() Manifest {
	out := make(Manifest, len(m))
	for i, e := range m {
		out[len(m)-1-i] = e
	}
	return out
}

func collection[T any](name string) Entity {
	return Entity{
		Name: name,
		Export: func(ctx context.Context, tx *gorm.DB) ([]json.RawMessage, error) {
			var rows []T
			if err := tx.WithContext(ctx).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
				return nil, err
			}
			out := make([]json.RawMessage, 0, len(rows))
			for i := range rows {
				raw, err := json.Marshal(&rows[i])
				if err != nil {
					return nil, fmt.Errorf("encode %s record: %w", name, err)
				}
				out = append(out, raw)
			}
			return out, nil
		},
		Purge: func(ctx context.Context, tx *gorm.DB) (int64, error) {
			res := tx.WithContext(ctx).Where("1 = 1").Delete(new(T))
			return res.RowsAffected, res.Error
		},
		Import: func(ctx context.Context, tx *gorm.DB, record json.RawMessage) error {
			row := new(T)
			if err := json.Unmarshal(record, row); err != nil {
				return fmt.Errorf("decode %s record: %w", name, err)
			}
			return tx.WithContext(ctx).Omit(clause.Associations).Create(row).Error
		},
	}
}
