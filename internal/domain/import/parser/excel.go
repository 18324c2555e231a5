package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ParseExcel reads the first suitable sheet of an XLSX export and feeds each
// row of cells to the same pipeline as the CSV path. Cells go in as-is, so
// decimal commas ("1,5") and commas inside names survive untouched.
func ParseExcel(reader io.Reader) (*Result, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheetName := findImportSheet(f)
	if sheetName == "" {
		return nil, fmt.Errorf("no suitable sheet found")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheetName, err)
	}

	result := newResult()
	for i, cells := range rows {
		if isBlankRecord(cells) {
			continue
		}
		result.ingestCells(i+1, cells)
	}
	return result, nil
}

func isBlankRecord(cells []string) bool {
	for _, cell := range cells {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// findImportSheet picks the sheet holding invoice rows.
func findImportSheet(f *excelize.File) string {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ""
	}

	preferredNames := []string{
		"facturas", "ventas", "importar", "import", "sheet1", "hoja1",
	}

	for _, preferred := range preferredNames {
		for _, sheet := range sheets {
			if strings.EqualFold(sheet, preferred) {
				return sheet
			}
		}
	}

	return sheets[0]
}
