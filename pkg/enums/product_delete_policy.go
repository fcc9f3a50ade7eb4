package enums

import (
	"fmt"
	"strings"
)

// ProductDeletePolicy decides what happens to sale line items when a product is removed.
type ProductDeletePolicy string

const (
	ProductDeleteCascade  ProductDeletePolicy = "cascade"
	ProductDeleteRestrict ProductDeletePolicy = "restrict"
)

// ParseProductDeletePolicy converts raw config input; blank selects cascade.
func ParseProductDeletePolicy(value string) (ProductDeletePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(ProductDeleteCascade):
		return ProductDeleteCascade, nil
	case string(ProductDeleteRestrict):
		return ProductDeleteRestrict, nil
	default:
		return "", fmt.Errorf("invalid product delete policy %q", value)
	}
}
