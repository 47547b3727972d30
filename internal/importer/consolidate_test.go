package importer

import (
	"testing"

	"github.com/shopspring/decimal"
)

var testHeader = []string{"Solicitação", "Item", "Código", "Descrição", "Qtd Solicitada", "Qtd Recebida", "Pedido", "Fornecedor"}

func mustDetect(t *testing.T, rows [][]string) (int, ColumnMap) {
	t.Helper()
	idx, cm, err := DetectHeader(rows)
	if err != nil {
		t.Fatalf("DetectHeader returned error: %v", err)
	}
	return idx, cm
}

func findGroup(t *testing.T, groups []AggregatedRow, request, material string) AggregatedRow {
	t.Helper()
	for _, g := range groups {
		if g.RequestNumber == request && g.MaterialCode == material {
			return g
		}
	}
	t.Fatalf("no group for request %q material %q", request, material)
	return AggregatedRow{}
}

// The source system repeats the cumulative received total on every line-item
// row of the same material, so grouped rows must take the maximum, not the
// sum. Three rows each saying 4000 mean 4000 was received, not 12000.
func TestConsolidateTakesMaxNotSum(t *testing.T) {
	rows := [][]string{
		testHeader,
		{"SC-1", "1", "CIM", "CIMENTO", "4000", "4000", "PC-9", "ACME"},
		{"SC-1", "2", "CIM", "CIMENTO", "4000", "4000", "PC-9", "ACME"},
		{"SC-1", "3", "CIM", "CIMENTO", "4000", "4000", "PC-9", "ACME"},
		{"SC-1", "4", "BLK", "BLOCO", "500", "500", "PC-9", "ACME"},
	}
	idx, cm := mustDetect(t, rows)

	groups, errs := Consolidate(rows, idx, cm)
	if len(errs) != 0 {
		t.Fatalf("unexpected row errors: %v", errs)
	}
	if len(groups) != 2 {
		t.Fatalf("group count = %d, want 2", len(groups))
	}

	cim := findGroup(t, groups, "SC-1", "CIM")
	if !cim.ReceivedQuantity.Equal(decimal.NewFromInt(4000)) {
		t.Errorf("CIM received = %s, want 4000", cim.ReceivedQuantity)
	}
	if cim.RowCount != 3 {
		t.Errorf("CIM row count = %d, want 3", cim.RowCount)
	}

	blk := findGroup(t, groups, "SC-1", "BLK")
	if !blk.ReceivedQuantity.Equal(decimal.NewFromInt(500)) {
		t.Errorf("BLK received = %s, want 500", blk.ReceivedQuantity)
	}
}

func TestConsolidateFirstNonEmptyWins(t *testing.T) {
	rows := [][]string{
		testHeader,
		{"SC-2", "1", "ARE", "AREIA", "100", "20", "", ""},
		{"SC-2", "2", "ARE", "AREIA", "", "60", "PC-1", "Fornecedor A"},
		{"SC-2", "3", "ARE", "AREIA", "", "60", "PC-2", "Fornecedor B"},
	}
	idx, cm := mustDetect(t, rows)

	groups, _ := Consolidate(rows, idx, cm)
	are := findGroup(t, groups, "SC-2", "ARE")
	if are.PurchaseOrderNumber != "PC-1" {
		t.Errorf("purchase order = %q, want first non-empty PC-1", are.PurchaseOrderNumber)
	}
	if are.SupplierName != "Fornecedor A" {
		t.Errorf("supplier = %q, want Fornecedor A", are.SupplierName)
	}
	if !are.RequestedQuantity.Equal(decimal.NewFromInt(100)) {
		t.Errorf("requested = %s, want 100", are.RequestedQuantity)
	}
	if !are.ReceivedQuantity.Equal(decimal.NewFromInt(60)) {
		t.Errorf("received = %s, want max 60", are.ReceivedQuantity)
	}
}

// Merged cells in the export come through as blanks on continuation rows;
// the key columns carry forward.
func TestConsolidateForwardFillsKeyColumns(t *testing.T) {
	rows := [][]string{
		testHeader,
		{"SC-3", "1", "CIM", "CIMENTO", "50", "10", "", ""},
		{"", "", "", "CIMENTO", "50", "30", "", ""},
		{"", "", "BLK", "BLOCO", "200", "200", "", ""},
	}
	idx, cm := mustDetect(t, rows)

	groups, errs := Consolidate(rows, idx, cm)
	if len(errs) != 0 {
		t.Fatalf("unexpected row errors: %v", errs)
	}
	if len(groups) != 2 {
		t.Fatalf("group count = %d, want 2", len(groups))
	}
	cim := findGroup(t, groups, "SC-3", "CIM")
	if !cim.ReceivedQuantity.Equal(decimal.NewFromInt(30)) {
		t.Errorf("CIM received = %s, want 30", cim.ReceivedQuantity)
	}
	blk := findGroup(t, groups, "SC-3", "BLK")
	if blk.RequestNumber != "SC-3" {
		t.Errorf("BLK request = %q, want forward-filled SC-3", blk.RequestNumber)
	}
}

func TestConsolidateDropsRepeatedHeadersAndBlankRows(t *testing.T) {
	rows := [][]string{
		testHeader,
		{"SC-4", "1", "CIM", "CIMENTO", "10", "10", "", ""},
		{"", "", "", "", "", "", "", ""},
		testHeader,
		{"SC-4", "2", "BLK", "BLOCO", "20", "20", "", ""},
	}
	idx, cm := mustDetect(t, rows)

	groups, errs := Consolidate(rows, idx, cm)
	if len(errs) != 0 {
		t.Fatalf("unexpected row errors: %v", errs)
	}
	if len(groups) != 2 {
		t.Fatalf("group count = %d, want 2", len(groups))
	}
}

func TestConsolidateCollectsRowErrors(t *testing.T) {
	rows := [][]string{
		testHeader,
		{"SC-5", "1", "CIM", "CIMENTO", "10", "not-a-number", "", ""},
		{"SC-5", "2", "BLK", "BLOCO", "20", "20", "", ""},
	}
	idx, cm := mustDetect(t, rows)

	groups, errs := Consolidate(rows, idx, cm)
	if len(errs) != 1 {
		t.Fatalf("row error count = %d, want 1: %v", len(errs), errs)
	}
	if errs[0].RowNumber != 2 {
		t.Errorf("row error line = %d, want 2", errs[0].RowNumber)
	}
	// The malformed row is dropped, the valid one still imports.
	if len(groups) != 1 {
		t.Fatalf("group count = %d, want 1", len(groups))
	}
	if groups[0].MaterialCode != "BLK" {
		t.Errorf("surviving group = %q, want BLK", groups[0].MaterialCode)
	}
}
