package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Allocation records that a quantity taken from a receipt was assigned to a
// physical location (optionally against a specific planned need). Rows are
// append-only: corrections are delete-then-reallocate, never negative
// adjustments. The allocation service guarantees that the sum of allocations
// for a receipt never exceeds its received quantity.
type Allocation struct {
	ID                int64           `json:"id"`
	SiteID            int64           `json:"site_id"`
	MaterialID        int64           `json:"material_id"`
	LocationID        int64           `json:"location_id"`
	ReceiptID         *int64          `json:"receipt_id,omitempty"`
	PlannedNeedID     *int64          `json:"planned_need_id,omitempty"`
	AllocatedQuantity decimal.Decimal `json:"allocated_quantity"`
	Note              string          `json:"note,omitempty"`
	CreatedBy         string          `json:"created_by"`
	CreatedAt         time.Time       `json:"created_at"`

	// Joined for display.
	LocationName string `json:"location_name,omitempty"`
	MaterialCode string `json:"material_code,omitempty"`
}
