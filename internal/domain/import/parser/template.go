package parser

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"
)

// TemplateRow mirrors the fixed import column order for template export.
type TemplateRow struct {
	NCF      string `csv:"NCF_SUFFIX"`
	Fecha    string `csv:"FECHA"`
	Cliente  string `csv:"CLIENTE"`
	Producto string `csv:"PRODUCTO"`
	Cantidad string `csv:"CANTIDAD"`
	Precio   string `csv:"PRECIO_UNITARIO"`
}

func templateRows() []TemplateRow {
	return []TemplateRow{
		{
			NCF:      "B0100002904",
			Fecha:    "2024-03-15",
			Cliente:  "Farmacia San Rafael",
			Producto: "Acetaminofen 500mg",
			Cantidad: "10",
			Precio:   "125.50",
		},
		{
			NCF:      "B0100002904",
			Fecha:    "2024-03-15",
			Cliente:  "Farmacia San Rafael",
			Producto: "Jarabe para la tos",
			Cantidad: "2",
			Precio:   "0",
		},
	}
}

// WriteCSVTemplate writes the header plus two example rows, one of them a
// zero-price offer line, so users see the expected shape before filling it in.
func WriteCSVTemplate(w io.Writer) error {
	if err := gocsv.Marshal(templateRows(), w); err != nil {
		return fmt.Errorf("failed to write CSV template: %w", err)
	}
	return nil
}

// WriteExcelTemplate writes the same template as an XLSX workbook.
func WriteExcelTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Facturas"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to remove default sheet: %w", err)
	}

	header := []interface{}{"NCF_SUFFIX", "FECHA", "CLIENTE", "PRODUCTO", "CANTIDAD", "PRECIO_UNITARIO"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	for i, row := range templateRows() {
		cell := fmt.Sprintf("A%d", i+2)
		values := []interface{}{row.NCF, row.Fecha, row.Cliente, row.Producto, row.Cantidad, row.Precio}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write example row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
