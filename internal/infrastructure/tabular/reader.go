package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/scentmatch/backend/internal/domain"
)

// Column aliases recognized in uploaded files. Catalogs arrive with Arabic,
// English or mixed headers, so resolution tries each alias in order.
var (
	nameAliases  = []string{"المنتج", "اسم المنتج", "product", "name", "product name"}
	priceAliases = []string{"السعر", "سعر", "price"}
	idAliases    = []string{"no", "معرف", "معرف_المنتج", "id", "sku", "الكود", "رقم المنتج"}
)

// ReadCatalog parses an uploaded CSV or XLSX file into product records.
// The format is picked from the filename extension; anything else returns
// domain.ErrUnsupportedFormat.
func ReadCatalog(r io.Reader, filename string) ([]domain.ProductRecord, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return readCSV(r)
	case ".xlsx":
		return readXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, filename)
	}
}

func readCSV(r io.Reader) ([]domain.ProductRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return recordsFromRows(rows)
}

func readXLSX(r io.Reader) ([]domain.ProductRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return recordsFromRows(rows)
}

func recordsFromRows(rows [][]string) ([]domain.ProductRecord, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	nameCol := resolveColumn(header, nameAliases, 0)
	priceCol := resolveColumn(header, priceAliases, 1)
	idCol := resolveColumn(header, idAliases, -1)

	var records []domain.ProductRecord
	for _, row := range rows[1:] {
		if emptyRow(row) {
			continue
		}

		record := domain.ProductRecord{
			Name:  strings.TrimSpace(cell(row, nameCol)),
			Price: parsePrice(cell(row, priceCol)),
		}
		if idCol >= 0 {
			record.ExternalID = strings.TrimSpace(cell(row, idCol))
		}
		if record.Name == "" {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// resolveColumn finds the first header matching any alias. Aliases are tried
// in order so preferred names win. Falls back to the given index when no
// alias matches, or -1 when the fallback column does not exist either.
func resolveColumn(header []string, aliases []string, fallback int) int {
	for _, alias := range aliases {
		for i, h := range header {
			if strings.EqualFold(cleanHeader(h), alias) {
				return i
			}
		}
	}
	if fallback >= 0 && fallback < len(header) {
		return fallback
	}
	return -1
}

// cleanHeader trims whitespace and a UTF-8 BOM left by exported files
func cleanHeader(h string) string {
	return strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

func emptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parsePrice is forgiving: currency symbols, thousands separators and
// surrounding text are stripped, and anything unparseable becomes zero.
func parsePrice(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		case r == ',':
			// thousands separator
		case r == '-' && b.Len() == 0:
			b.WriteRune(r)
		}
	}

	price, err := strconv.ParseFloat(b.String(), 64)
	if err != nil || price < 0 {
		return 0
	}
	return price
}
