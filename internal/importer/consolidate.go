package importer

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AggregatedRow is one (request_number, material_code) group after
// consolidation, ready to be written to the receipt ledger.
type AggregatedRow struct {
	RequestNumber       string
	MaterialCode        string
	Description         string
	Unit                string
	RequestedQuantity   decimal.Decimal
	ReceivedQuantity    decimal.Decimal
	PurchaseOrderNumber string
	SupplierName        string
	InvoiceNumber       string
	RequestDate         *time.Time
	PurchaseOrderDate   *time.Time
	ExpectedDate        *time.Time
	InvoiceDate         *time.Time
	RowCount            int
}

// RowError is a per-row parse problem. The batch keeps going; these are
// collected into the import report.
type RowError struct {
	RowNumber int    `json:"row_number"`
	Message   string `json:"message"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.RowNumber, e.Message)
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// Consolidate walks the data rows below the header and groups them by
// (request_number, material_code).
//
// The received-quantity column repeats the cumulative total of the request on
// every line-item row for the same material, so the group's received quantity
// is the MAXIMUM observed, never the sum. Summing would multiply the real
// quantity by the number of line items. Requested quantity, purchase order,
// supplier and dates take the first non-empty value.
//
// Key columns (request number, line id, material code) are forward-filled:
// merged cells in the source export come through as blanks on continuation
// rows. Repeated header rows inside the body are dropped.
func Consolidate(rows [][]string, headerIdx int, cm ColumnMap) ([]AggregatedRow, []RowError) {
	groups := map[string]*AggregatedRow{}
	var order []string
	var errs []RowError

	var lastRequest, lastLine, lastMaterial string
	for i := headerIdx + 1; i < len(rows); i++ {
		row := rows[i]
		rowNum := i + 1

		if isBlankRow(row) {
			continue
		}
		if isHeaderRow(row) {
			continue
		}

		request := cell(row, cm.index(colRequestNumber))
		lineID := cell(row, cm.index(colRequestLineID))
		material := cell(row, cm.index(colMaterialCode))

		if request == "" {
			request = lastRequest
		} else {
			lastRequest = request
			lastLine = ""
			lastMaterial = ""
		}
		if lineID == "" {
			lineID = lastLine
		} else {
			lastLine = lineID
		}
		if material == "" {
			material = lastMaterial
		} else {
			lastMaterial = material
		}

		if request == "" || material == "" {
			errs = append(errs, RowError{RowNumber: rowNum, Message: "missing request number or material code"})
			continue
		}

		requested, err := ParseQuantity(cell(row, cm.index(colRequestedQty)))
		if err != nil {
			errs = append(errs, RowError{RowNumber: rowNum, Message: "requested quantity: " + err.Error()})
			continue
		}
		received, err := ParseQuantity(cell(row, cm.index(colReceivedQty)))
		if err != nil {
			errs = append(errs, RowError{RowNumber: rowNum, Message: "received quantity: " + err.Error()})
			continue
		}

		key := request + "\x00" + material
		group, ok := groups[key]
		if !ok {
			group = &AggregatedRow{RequestNumber: request, MaterialCode: material}
			groups[key] = group
			order = append(order, key)
		}
		group.RowCount++

		if received.GreaterThan(group.ReceivedQuantity) {
			group.ReceivedQuantity = received
		}
		if group.RequestedQuantity.IsZero() {
			group.RequestedQuantity = requested
		}
		fillString(&group.Description, cell(row, cm.index(colDescription)))
		fillString(&group.Unit, cell(row, cm.index(colUnit)))
		fillString(&group.PurchaseOrderNumber, cell(row, cm.index(colPONumber)))
		fillString(&group.SupplierName, cell(row, cm.index(colSupplier)))
		fillString(&group.InvoiceNumber, cell(row, cm.index(colInvoiceNumber)))

		fillDate(&group.RequestDate, cell(row, cm.index(colRequestDate)), rowNum, "request date", &errs)
		fillDate(&group.PurchaseOrderDate, cell(row, cm.index(colPODate)), rowNum, "purchase order date", &errs)
		fillDate(&group.ExpectedDate, cell(row, cm.index(colExpectedDate)), rowNum, "expected date", &errs)
		fillDate(&group.InvoiceDate, cell(row, cm.index(colInvoiceDate)), rowNum, "invoice date", &errs)
	}

	result := make([]AggregatedRow, 0, len(order))
	for _, key := range order {
		result = append(result, *groups[key])
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].RequestNumber != result[j].RequestNumber {
			return result[i].RequestNumber < result[j].RequestNumber
		}
		return result[i].MaterialCode < result[j].MaterialCode
	})
	return result, errs
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func fillString(dst *string, value string) {
	if *dst == "" && value != "" {
		*dst = value
	}
}

// A bad date is worth a report line but never blocks the row: quantities are
// what the ledger runs on.
func fillDate(dst **time.Time, value string, rowNum int, field string, errs *[]RowError) {
	if *dst != nil || value == "" {
		return
	}
	t, err := ParseDate(value)
	if err != nil {
		*errs = append(*errs, RowError{RowNumber: rowNum, Message: field + ": " + err.Error()})
		return
	}
	*dst = t
}
