package services

import (
	"time"

	"github.com/shopspring/decimal"

	"supply_map_backend/internal/models"
)

// PipelineState is the derived procurement stage of a planned need. It is
// computed on read from quantities, never stored, so it can never drift out
// of sync with the underlying ledgers.
type PipelineState string

const (
	StateSurvey             PipelineState = "survey"
	StateAwaitingPurchase   PipelineState = "awaiting_purchase"
	StateAwaitingDelivery   PipelineState = "awaiting_delivery"
	StateAwaitingAllocation PipelineState = "awaiting_allocation"
	StatePartiallyAllocated PipelineState = "partially_allocated"
	StateComplete           PipelineState = "complete"
)

// DeriveStatus computes the pipeline state of a planned need from its
// quantities. receipt may be nil when no ledger row has been linked yet.
//
// The target quantity is the receipt's requested quantity once a request
// exists, falling back to the planned quantity. Allocations at or above the
// target mean Complete even if legacy data over-allocated.
func DeriveStatus(need *models.PlannedNeed, receipt *models.ReceiptEntry, totalAllocated decimal.Decimal) PipelineState {
	if need.RequestNumber == "" {
		return StateSurvey
	}

	poNumber := need.PurchaseOrderNumber
	received := decimal.Zero
	target := need.PlannedQuantity
	if receipt != nil {
		if receipt.PurchaseOrderNumber != "" {
			poNumber = receipt.PurchaseOrderNumber
		}
		received = receipt.ReceivedQuantity
		if receipt.RequestedQuantity.GreaterThan(decimal.Zero) {
			target = receipt.RequestedQuantity
		}
	}

	if poNumber == "" {
		return StateAwaitingPurchase
	}
	if received.LessThanOrEqual(decimal.Zero) {
		return StateAwaitingDelivery
	}
	if totalAllocated.LessThanOrEqual(decimal.Zero) {
		return StateAwaitingAllocation
	}
	if totalAllocated.LessThan(target) {
		return StatePartiallyAllocated
	}
	return StateComplete
}

// IsOverdue reports whether the need has slipped past its date. Orthogonal
// to the pipeline state: a Complete row can still read as overdue.
func IsOverdue(need *models.PlannedNeed, now time.Time) bool {
	deadline := need.NeededByDate
	if deadline == nil {
		deadline = need.ExpectedDate
	}
	if deadline == nil {
		return false
	}
	return now.After(*deadline)
}

// AvailableBalance is the quantity of a receipt not yet consumed by
// allocations, floored at zero for display.
func AvailableBalance(received, allocated decimal.Decimal) decimal.Decimal {
	available := received.Sub(allocated)
	if available.IsNegative() {
		return decimal.Zero
	}
	return available
}
