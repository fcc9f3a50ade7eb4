package sales

import (
	"testing"

	"github.com/angelmondragon/storedesk-backend/pkg/db/models"
	"github.com/google/uuid"
)

func TestRequestedQuantitiesCombinesDuplicates(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	order, totals := requestedQuantities([]LineInput{
		{ProductID: a, Quantity: 2},
		{ProductID: b, Quantity: 1},
		{ProductID: a, Quantity: 5},
	})
	if len(order) != 2 || order[0] != a || order[1] != b {
		t.Fatalf("unexpected order %v", order)
	}
	if totals[a] != 7 || totals[b] != 1 {
		t.Fatalf("unexpected totals %v", totals)
	}
}

func TestCheckAvailabilityCountsReservation(t *testing.T) {
	id := uuid.New()
	products := map[uuid.UUID]*models.Product{id: {ID: id, Name: "Flour", StockQuantity: 1}}
	requested := map[uuid.UUID]int{id: 4}

	if short := checkAvailability([]uuid.UUID{id}, requested, products, map[uuid.UUID]int{id: 3}); len(short) != 0 {
		t.Fatalf("reservation should cover the request, got %+v", short)
	}
	short := checkAvailability([]uuid.UUID{id}, requested, products, nil)
	if len(short) != 1 || short[0].Available != 1 || short[0].Requested != 4 {
		t.Fatalf("unexpected shortfall %+v", short)
	}
}
