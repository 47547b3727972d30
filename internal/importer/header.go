package importer

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// headerScanWindow bounds how many leading rows are inspected for the header.
// Site spreadsheets carry logos, titles and legend blocks above the data, but
// never this many rows of them.
const headerScanWindow = 120

// Column roles the importer understands.
type columnKind int

const (
	colRequestNumber columnKind = iota
	colRequestLineID
	colMaterialCode
	colDescription
	colUnit
	colRequestDate
	colRequestedQty
	colReceivedQty
	colPONumber
	colPODate
	colSupplier
	colExpectedDate
	colInvoiceNumber
	colInvoiceDate
)

// Label synonyms, pre-normalized. Spreadsheets come from several ERP exports
// with no naming discipline, hence the width of these sets.
var columnSynonyms = map[columnKind][]string{
	colRequestNumber: {
		"solicitacao", "n solicitacao", "no solicitacao", "num solicitacao",
		"numero solicitacao", "numero da solicitacao", "sc", "n sc", "no sc",
		"requisicao", "n requisicao", "numero requisicao",
		"request", "request number", "request no",
	},
	colRequestLineID: {
		"item", "item sc", "item solicitacao", "linha", "line", "line item",
	},
	colMaterialCode: {
		"codigo", "cod", "cod insumo", "codigo insumo", "codigo do insumo",
		"cod material", "codigo material", "codigo do material", "insumo",
		"code", "material code", "material",
	},
	colDescription: {
		"descricao", "descricao insumo", "descricao do insumo",
		"descricao material", "descricao do material", "description",
	},
	colUnit: {
		"un", "und", "unid", "unidade", "um", "unit", "uom",
	},
	colRequestDate: {
		"data solicitacao", "dt solicitacao", "data da solicitacao",
		"request date",
	},
	colRequestedQty: {
		"qtd solicitada", "qtde solicitada", "quantidade solicitada",
		"qtd sc", "qtd", "qtde", "quantidade",
		"requested", "requested qty", "requested quantity",
	},
	colReceivedQty: {
		"qtd recebida", "qtde recebida", "quantidade recebida",
		"qtd entregue", "qtde entregue", "quantidade entregue",
		"received", "received qty", "received quantity",
		"delivered", "delivered quantity",
	},
	colPONumber: {
		"pedido", "n pedido", "no pedido", "numero pedido", "numero do pedido",
		"pc", "n pc", "oc", "n oc", "ordem compra", "ordem de compra",
		"po", "po number", "purchase order",
	},
	colPODate: {
		"data pedido", "dt pedido", "data do pedido", "data oc", "po date",
	},
	colSupplier: {
		"fornecedor", "nome fornecedor", "supplier", "supplier name",
	},
	colExpectedDate: {
		"previsao entrega", "prev entrega", "previsao de entrega",
		"data entrega", "data de entrega", "previsao",
		"expected date", "delivery date", "eta",
	},
	colInvoiceNumber: {
		"nota fiscal", "nf", "n nf", "no nf", "numero nf", "num nf",
		"invoice", "invoice number", "invoice no",
	},
	colInvoiceDate: {
		"data nf", "dt nf", "data nota fiscal", "invoice date",
	},
}

var synonymIndex = buildSynonymIndex()

func buildSynonymIndex() map[string]columnKind {
	idx := make(map[string]columnKind)
	for kind, labels := range columnSynonyms {
		for _, label := range labels {
			idx[label] = kind
		}
	}
	return idx
}

var diacriticStripper = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

var labelReplacer = strings.NewReplacer(
	"º", "", "°", "", "ª", "",
	".", " ", ":", " ", "-", " ", "_", " ", "/", " ",
)

// normalizeLabel collapses a header cell to a canonical form: lowercase,
// diacritics stripped, ordinal marks and punctuation removed, whitespace
// squeezed. "Nº da Solicitação" and "numero solicitacao" normalize to
// comparable strings.
func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if stripped, _, err := transform.String(diacriticStripper, s); err == nil {
		s = stripped
	}
	s = labelReplacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// HeaderNotFoundError reports that no header row was recognized, listing the
// labels the importer would have accepted.
type HeaderNotFoundError struct {
	ScannedRows int
}

func (e *HeaderNotFoundError) Error() string {
	return fmt.Sprintf(
		"no header row found in the first %d rows; expected a row with a request-number column (one of: %s) and a material-code column (one of: %s)",
		e.ScannedRows,
		strings.Join(columnSynonyms[colRequestNumber], ", "),
		strings.Join(columnSynonyms[colMaterialCode], ", "),
	)
}

// MissingColumnError reports a recognized header that lacks a required column.
type MissingColumnError struct {
	Column   string
	Synonyms []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("required column %q not found in header; expected one of: %s",
		e.Column, strings.Join(e.Synonyms, ", "))
}

// ColumnMap records which physical column holds which role. -1 means absent.
type ColumnMap map[columnKind]int

func (cm ColumnMap) index(kind columnKind) int {
	if i, ok := cm[kind]; ok {
		return i
	}
	return -1
}

// requiredColumns are the roles an import cannot run without. A header that
// lacks one of these is a different export, not a sparse one; trusting it
// would read every absent cell as empty.
var requiredColumns = []struct {
	kind columnKind
	name string
}{
	{colRequestNumber, "request number"},
	{colMaterialCode, "material code"},
	{colRequestedQty, "requested quantity"},
	{colReceivedQty, "received quantity"},
}

// RequireColumns checks that every required role is mapped and returns a
// MissingColumnError naming the accepted labels for the first absent one.
func (cm ColumnMap) RequireColumns() error {
	for _, rc := range requiredColumns {
		if cm.index(rc.kind) < 0 {
			return &MissingColumnError{Column: rc.name, Synonyms: columnSynonyms[rc.kind]}
		}
	}
	return nil
}

func mapRow(cells []string) ColumnMap {
	cm := ColumnMap{}
	for i, cell := range cells {
		kind, ok := synonymIndex[normalizeLabel(cell)]
		if !ok {
			continue
		}
		// First occurrence wins; exports sometimes repeat a label in a
		// totals block to the right of the data.
		if _, seen := cm[kind]; !seen {
			cm[kind] = i
		}
	}
	return cm
}

// isHeaderRow reports whether a row's cells match a known header layout.
// Used both for detection and for dropping repeated in-body headers.
func isHeaderRow(cells []string) bool {
	cm := mapRow(cells)
	_, hasRequest := cm[colRequestNumber]
	return hasRequest
}

// DetectHeader scans the leading rows for the header and returns its index
// plus the column mapping. Rows with both the request-number and
// material-code labels are preferred; a row with only the request-number
// label is accepted as a fallback so RequireColumns can then name exactly
// which columns the file lacks.
func DetectHeader(rows [][]string) (int, ColumnMap, error) {
	window := len(rows)
	if window > headerScanWindow {
		window = headerScanWindow
	}

	fallbackIdx := -1
	var fallbackMap ColumnMap
	for i := 0; i < window; i++ {
		cm := mapRow(rows[i])
		_, hasRequest := cm[colRequestNumber]
		if !hasRequest {
			continue
		}
		if _, hasMaterial := cm[colMaterialCode]; hasMaterial {
			return i, cm, nil
		}
		if fallbackIdx < 0 {
			fallbackIdx = i
			fallbackMap = cm
		}
	}
	if fallbackIdx >= 0 {
		return fallbackIdx, fallbackMap, nil
	}
	return -1, nil, &HeaderNotFoundError{ScannedRows: window}
}
