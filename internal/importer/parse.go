package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var xlsxMagic = []byte{0x50, 0x4B, 0x03, 0x04}

// ParseFile turns an uploaded file into a raw cell grid. XLSX is recognized
// by extension or zip magic; everything else is treated as delimited text.
func ParseFile(fileName string, data []byte) ([][]string, error) {
	if strings.HasSuffix(strings.ToLower(fileName), ".xlsx") || bytes.HasPrefix(data, xlsxMagic) {
		return parseXLSX(data)
	}
	return parseDelimited(DecodeBytes(data))
}

// detectDelimiter inspects the leading lines and picks the separator that
// occurs most. ERP exports here use ';' almost exclusively, so ties go to it.
func detectDelimiter(text string) rune {
	counts := map[rune]int{';': 0, ',': 0, '\t': 0}
	lines := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		for sep := range counts {
			counts[sep] += strings.Count(line, string(sep))
		}
		lines++
		if lines >= 10 {
			break
		}
	}
	best := ';'
	for _, sep := range []rune{'\t', ','} {
		if counts[sep] > counts[best] {
			best = sep
		}
	}
	return best
}

func parseDelimited(text string) ([][]string, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = detectDelimiter(text)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing delimited file: %w", err)
	}
	return records, nil
}

// parseXLSX opens the workbook and returns the rows of the best-scoring
// sheet. Workbooks from sites often carry cover or legend sheets, so the
// sheet with the most rows that look like data wins.
func parseXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	var bestRows [][]string
	bestScore := -1
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		score := sheetScore(rows)
		if score > bestScore {
			bestScore = score
			bestRows = rows
		}
	}
	if bestRows == nil {
		return nil, fmt.Errorf("workbook has no readable sheets")
	}
	return bestRows, nil
}

func sheetScore(rows [][]string) int {
	score := 0
	for _, row := range rows {
		filled := 0
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				filled++
			}
		}
		if filled >= 2 {
			score++
		}
	}
	return score
}

// ParseQuantity reads a quantity cell in either Brazilian ("1.234,56") or
// plain ("1234.56") notation. Empty cells parse as zero.
func ParseQuantity(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return decimal.Zero, nil
	}
	s = strings.ReplaceAll(s, " ", "")
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid quantity %q", s)
	}
	return d, nil
}

var dateLayouts = []string{
	"02/01/2006",
	"2006-01-02",
	"02/01/06",
	"02-01-2006",
	"01-02-06", // excelize's default short format for date cells
}

// ParseDate reads a date cell. Empty cells yield nil, not an error.
func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q", s)
}
