package enums

import "fmt"

// StockMovementType explains why a product's stock changed.
type StockMovementType string

const (
	StockMovementSale                StockMovementType = "sale"
	StockMovementSaleRevisionRelease StockMovementType = "sale_revision_release"
	StockMovementSaleRevision        StockMovementType = "sale_revision"
	StockMovementSaleDeleteRestore   StockMovementType = "sale_delete_restore"
	StockMovementAdjustment          StockMovementType = "adjustment"
	StockMovementInitial             StockMovementType = "initial"
)

var validStockMovementTypes = []StockMovementType{
	StockMovementSale,
	StockMovementSaleRevisionRelease,
	StockMovementSaleRevision,
	StockMovementSaleDeleteRestore,
	StockMovementAdjustment,
	StockMovementInitial,
}

// IsValid reports whether the value is a known StockMovementType.
func (t StockMovementType) IsValid() bool {
	for _, candidate := range validStockMovementTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseStockMovementType converts raw input into StockMovementType.
func ParseStockMovementType(value string) (StockMovementType, error) {
	for _, candidate := range validStockMovementTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock movement type %q", value)
}
