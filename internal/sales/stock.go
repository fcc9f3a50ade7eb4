package sales

import (
	"fmt"
	"sort"

	"github.com/angelmondragon/storedesk-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storedesk-backend/pkg/errors"
	"github.com/google/uuid"
)

// requestedQuantities sums quantities per product preserving first-seen order.
func requestedQuantities(items []LineInput) ([]uuid.UUID, map[uuid.UUID]int) {
	order := make([]uuid.UUID, 0, len(items))
	totals := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		if _, seen := totals[item.ProductID]; !seen {
			order = append(order, item.ProductID)
		}
		totals[item.ProductID] += item.Quantity
	}
	return order, totals
}

// reservedQuantities sums existing line quantities per product.
func reservedQuantities(lines []models.SaleLineItem) map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		out[line.ProductID] += line.Quantity
	}
	return out
}

func validateItems(items []LineInput) error {
	if len(items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one line item is required")
	}
	for i, item := range items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d].product_id is required", i)
		}
		if item.Quantity <= 0 {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d].quantity must be greater than zero", i)
		}
	}
	return nil
}

// checkAvailability compares combined requests with stock plus what the sale
// already holds. Every shortfall is reported.
func checkAvailability(order []uuid.UUID, requested map[uuid.UUID]int, products map[uuid.UUID]*models.Product, reserved map[uuid.UUID]int) []InsufficientStock {
	var short []InsufficientStock
	for _, id := range order {
		product := products[id]
		available := product.StockQuantity + reserved[id]
		if requested[id] > available {
			short = append(short, InsufficientStock{
				ProductID:   id,
				ProductName: product.Name,
				Requested:   requested[id],
				Available:   available,
			})
		}
	}
	return short
}

func insufficientStockError(short []InsufficientStock) error {
	msg := fmt.Sprintf("insufficient stock for %s (requested %d, available %d)",
		short[0].ProductName, short[0].Requested, short[0].Available)
	if len(short) > 1 {
		msg = fmt.Sprintf("insufficient stock for %d products", len(short))
	}
	return pkgerrors.New(pkgerrors.CodeValidation, msg).
		WithDetails(map[string]any{"insufficient_stock": short})
}

func missingProducts(ids []uuid.UUID, products map[uuid.UUID]*models.Product) error {
	for _, id := range ids {
		if _, ok := products[id]; !ok {
			return pkgerrors.Newf(pkgerrors.CodeNotFound, "product %s not found", id).
				WithDetails(map[string]any{"product_id": id})
		}
	}
	return nil
}

func unionIDs(sets ...map[uuid.UUID]int) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID
	for _, set := range sets {
		for id := range set {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
