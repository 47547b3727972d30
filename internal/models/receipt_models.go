package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReceiptEntry is the aggregate record of how much of a material, under one
// purchase request, has arrived at a site. Rows are created and updated only
// by the reconciliation importer, never by direct user input.
//
// (SiteID, RequestNumber, MaterialID, RequestLineID) is unique. The importer
// writes the consolidated row with RequestLineID == "" (collapsed across all
// line items of the request); non-empty line ids only occur in legacy data.
type ReceiptEntry struct {
	ID                  int64           `json:"id"`
	SiteID              int64           `json:"site_id"`
	MaterialID          int64           `json:"material_id"`
	RequestNumber       string          `json:"request_number"`
	RequestLineID       string          `json:"request_line_id"`
	RequestDate         *time.Time      `json:"request_date,omitempty"`
	RequestedQuantity   decimal.Decimal `json:"requested_quantity"`
	ReceivedQuantity    decimal.Decimal `json:"received_quantity"`
	PurchaseOrderNumber string          `json:"purchase_order_number,omitempty"`
	PurchaseOrderDate   *time.Time      `json:"purchase_order_date,omitempty"`
	SupplierName        string          `json:"supplier_name,omitempty"`
	ExpectedDate        *time.Time      `json:"expected_date,omitempty"`
	InvoiceNumber       string          `json:"invoice_number,omitempty"`
	InvoiceDate         *time.Time      `json:"invoice_date,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`

	// Joined for display.
	MaterialCode        string `json:"material_code,omitempty"`
	MaterialDescription string `json:"material_description,omitempty"`
	UnitOfMeasure       string `json:"unit_of_measure,omitempty"`
}
