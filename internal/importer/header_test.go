package importer

import (
	"errors"
	"strings"
	"testing"
)

func TestDetectHeaderSkipsPreamble(t *testing.T) {
	rows := [][]string{
		{"RELATÓRIO DE SUPRIMENTOS"},
		{""},
		{"Obra: Residencial Jardim", "", ""},
		{"Nº Solicitação", "Item", "Código", "Descrição", "Qtd Solicitada", "Qtd Recebida"},
		{"SC-100", "1", "CIM-01", "CIMENTO CP-II", "100", "50"},
	}

	idx, cm, err := DetectHeader(rows)
	if err != nil {
		t.Fatalf("DetectHeader returned error: %v", err)
	}
	if idx != 3 {
		t.Errorf("header index = %d, want 3", idx)
	}
	if got := cm.index(colRequestNumber); got != 0 {
		t.Errorf("request number column = %d, want 0", got)
	}
	if got := cm.index(colMaterialCode); got != 2 {
		t.Errorf("material code column = %d, want 2", got)
	}
	if got := cm.index(colReceivedQty); got != 5 {
		t.Errorf("received quantity column = %d, want 5", got)
	}
}

func TestDetectHeaderLocaleInsensitive(t *testing.T) {
	// Same header with and without diacritics must map identically.
	accented := []string{"Nº da Solicitação", "Código do Insumo", "Descrição"}
	plain := []string{"numero da solicitacao", "codigo do insumo", "descricao"}

	cmA := mapRow(accented)
	cmB := mapRow(plain)
	for _, kind := range []columnKind{colRequestNumber, colMaterialCode, colDescription} {
		if cmA.index(kind) != cmB.index(kind) {
			t.Errorf("column kind %d mapped differently: %d vs %d", kind, cmA.index(kind), cmB.index(kind))
		}
	}
}

func TestDetectHeaderRequestOnlyFallback(t *testing.T) {
	rows := [][]string{
		{"Solicitação", "Fornecedor", "Qtd"},
		{"SC-1", "ACME", "10"},
	}
	idx, cm, err := DetectHeader(rows)
	if err != nil {
		t.Fatalf("DetectHeader returned error: %v", err)
	}
	if idx != 0 {
		t.Errorf("header index = %d, want 0", idx)
	}
	if got := cm.index(colMaterialCode); got != -1 {
		t.Errorf("material code column = %d, want -1", got)
	}
}

func TestRequireColumns(t *testing.T) {
	full := [][]string{{"Solicitação", "Código", "Qtd Solicitada", "Qtd Recebida"}}
	_, cm, err := DetectHeader(full)
	if err != nil {
		t.Fatalf("DetectHeader returned error: %v", err)
	}
	if err := cm.RequireColumns(); err != nil {
		t.Errorf("complete header rejected: %v", err)
	}

	// A header without the received-quantity column must be refused, not
	// read with every received cell as zero.
	partial := [][]string{{"Solicitação", "Código", "Qtd Solicitada"}}
	_, cm, err = DetectHeader(partial)
	if err != nil {
		t.Fatalf("DetectHeader returned error: %v", err)
	}
	err = cm.RequireColumns()
	var missing *MissingColumnError
	if !errors.As(err, &missing) {
		t.Fatalf("error type = %T, want *MissingColumnError", err)
	}
	if missing.Column != "received quantity" {
		t.Errorf("missing column = %q, want received quantity", missing.Column)
	}
	if !strings.Contains(err.Error(), "qtd recebida") {
		t.Errorf("error message should name accepted synonyms, got: %v", err)
	}
}

func TestDetectHeaderNotFound(t *testing.T) {
	rows := [][]string{
		{"just", "random", "cells"},
		{"nothing", "useful", "here"},
	}
	_, _, err := DetectHeader(rows)
	if err == nil {
		t.Fatal("expected HeaderNotFoundError, got nil")
	}
	var notFound *HeaderNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("error type = %T, want *HeaderNotFoundError", err)
	}
	if !strings.Contains(err.Error(), "solicitacao") {
		t.Errorf("error message should name expected synonyms, got: %v", err)
	}
}

func TestDetectHeaderBoundedWindow(t *testing.T) {
	rows := make([][]string, headerScanWindow+5)
	for i := range rows {
		rows[i] = []string{"filler"}
	}
	// Header beyond the window must not be found.
	rows[headerScanWindow+2] = []string{"Solicitação", "Código"}

	if _, _, err := DetectHeader(rows); err == nil {
		t.Fatal("expected header outside the scan window to be ignored")
	}
}

func TestNormalizeLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Nº Solicitação", "n solicitacao"},
		{"  QTD.  RECEBIDA ", "qtd recebida"},
		{"Código-do-Insumo", "codigo do insumo"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeLabel(tt.in); got != tt.want {
			t.Errorf("normalizeLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
