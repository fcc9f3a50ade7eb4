package product

import (
	"github.com/angelmondragon/storedesk-backend/pkg/pagination"
	"github.com/google/uuid"
)

// ProductListFilters describe the supported filter knobs for the catalog listing.
type ProductListFilters struct {
	Query      string     `json:"q,omitempty"`
	CategoryID *uuid.UUID `json:"category_id,omitempty"`
	Active     *bool      `json:"active,omitempty"`
}

// ListProductsInput captures the inputs needed to paginate/filter products.
type ListProductsInput struct {
	Filters    ProductListFilters
	Pagination pagination.Params
}

// ProductListResult is one page of products plus the cursor for the next page.
type ProductListResult struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

type productListQuery struct {
	Filters    ProductListFilters
	Pagination pagination.Params
}
