package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlannedNeed is a planning row: "site S needs N units of material M at
// location L". Procurement reference fields (request/PO/supplier) start empty
// and are refreshed by the importer once a matching receipt shows up.
// Empty RequestNumber means the need is still in survey.
type PlannedNeed struct {
	ID                  int64           `json:"id"`
	SiteID              int64           `json:"site_id"`
	LocationID          *int64          `json:"location_id,omitempty"`
	MaterialID          int64           `json:"material_id"`
	RequestNumber       string          `json:"request_number,omitempty"`
	RequestLineID       string          `json:"request_line_id,omitempty"`
	PlannedQuantity     decimal.Decimal `json:"planned_quantity"`
	PurchaseOrderNumber string          `json:"purchase_order_number,omitempty"`
	SupplierName        string          `json:"supplier_name,omitempty"`
	NeededByDate        *time.Time      `json:"needed_by_date,omitempty"`
	ExpectedDate        *time.Time      `json:"expected_date,omitempty"`
	RemainingBalance    decimal.Decimal `json:"remaining_balance"`
	CategoryTag         string          `json:"category_tag"`
	Notes               string          `json:"notes,omitempty"`
	CreatedBy           string          `json:"created_by,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`

	// Joined for display; not columns of planned_needs.
	MaterialCode        string `json:"material_code,omitempty"`
	MaterialDescription string `json:"material_description,omitempty"`
	UnitOfMeasure       string `json:"unit_of_measure,omitempty"`
	LocationName        string `json:"location_name,omitempty"`

	// Sum of allocations recorded against this need, annotated by list queries.
	AllocatedQuantity decimal.Decimal `json:"allocated_quantity"`
}

// PlannedNeedFilters narrows list queries.
type PlannedNeedFilters struct {
	SiteID        int64
	LocationID    *int64
	MaterialID    *int64
	RequestNumber *string
	CategoryTag   *string
	Page          int
	PageSize      int
}

// DefaultCategoryTag is assigned when planning staff have not classified the
// row yet; imported rows always start here.
const DefaultCategoryTag = "UNCLASSIFIED"
