// Package parser turns raw CSV/Excel invoice exports into validated row
// structures. Rows are never dropped for bad data: every line becomes a Row
// carrying its own error list so callers can show exactly what went wrong.
package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Column order of the fixed import format.
const (
	colNCF = iota
	colDate
	colClient
	colProduct
	colQuantity
	colPrice
	columnCount
)

// Row is one parsed line of an import file. Raw values are kept verbatim for
// error display; resolved values are filled by the field parsers here and by
// the resolver afterwards.
type Row struct {
	LineNumber int

	// Raw fields as they appeared in the file
	NCFRaw      string
	DateRaw     string
	ClientRaw   string
	ProductRaw  string
	QuantityRaw string
	PriceRaw    string

	// Parsed fields
	NCFSuffix string
	Date      time.Time
	DateValid bool
	Quantity  float64
	UnitPrice float64
	IsOffer   bool

	// Resolution results, filled by the resolver
	ProductID   uuid.UUID
	ProductName string
	ClientID    uuid.UUID
	ClientName  string

	Errors []string
}

// Valid reports whether every required field parsed. Product resolution is
// checked separately by the grouper.
func (r *Row) Valid() bool {
	return len(r.Errors) == 0
}

// ErrorSummary joins the row's errors for display.
func (r *Row) ErrorSummary() string {
	return strings.Join(r.Errors, "; ")
}

func (r *Row) addError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// HasProduct reports whether the resolver assigned a product.
func (r *Row) HasProduct() bool {
	return r.ProductID != uuid.Nil
}

// HasClient reports whether the resolver assigned a client.
func (r *Row) HasClient() bool {
	return r.ClientID != uuid.Nil
}

// Result holds all rows of one parsed file plus summary counts.
type Result struct {
	Rows        []Row
	TotalLines  int
	ValidRows   int
	InvalidRows int
	SkippedRows int // blank lines and header rows
}

// headerKeywords identify a header row by its first cell.
var headerKeywords = map[string]bool{
	"ncf":      true,
	"fecha":    true,
	"cliente":  true,
	"producto": true,
	"cantidad": true,
	"precio":   true,
}

// headerPatterns are substrings that mark a cell as header-like.
var headerPatterns = []string{
	"ncf", "fecha", "date", "cliente", "client",
	"producto", "product", "cantidad", "qty", "precio", "price",
}

// Parse splits raw file text into rows and runs the field parsers on each.
// Field and structural failures are recorded on the row, never returned: a
// malformed line still shows up in the result so the user can see it.
func Parse(text string) *Result {
	result := newResult()

	// Normalize line endings before splitting
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		result.ingestCells(i+1, strings.Split(line, ","))
	}

	return result
}

func newResult() *Result {
	return &Result{Rows: make([]Row, 0, 256)}
}

// ingestCells runs header detection and the field parsers on one record. The
// CSV and Excel paths both land here, so a cell's content never has to
// survive a round trip through comma-joined text.
func (result *Result) ingestCells(lineNumber int, cells []string) {
	for j := range cells {
		cells[j] = strings.TrimSpace(cells[j])
	}
	result.TotalLines++

	// Headers may repeat mid-file when users concatenate exports
	if isHeaderRow(cells) {
		result.SkippedRows++
		return
	}

	row := parseRow(lineNumber, cells)
	if row.Valid() {
		result.ValidRows++
	} else {
		result.InvalidRows++
	}
	result.Rows = append(result.Rows, row)
}

// isHeaderRow detects a header line: either the first cell is a known column
// keyword, or at least three cells look header-like.
func isHeaderRow(cells []string) bool {
	if len(cells) == 0 {
		return false
	}

	first := strings.ToLower(strings.TrimSpace(cells[0]))
	first = strings.Trim(first, "\"")
	if headerKeywords[first] || strings.HasPrefix(first, "ncf") {
		return true
	}

	headerLike := 0
	for _, cell := range cells {
		lower := strings.ToLower(cell)
		for _, pattern := range headerPatterns {
			if strings.Contains(lower, pattern) {
				headerLike++
				break
			}
		}
	}
	return headerLike >= 3
}

func parseRow(lineNumber int, cells []string) Row {
	row := Row{LineNumber: lineNumber}

	if len(cells) != columnCount {
		// Keep whatever raw values are there for display
		assign := func(idx int) string {
			if idx < len(cells) {
				return cells[idx]
			}
			return ""
		}
		row.NCFRaw = assign(colNCF)
		row.DateRaw = assign(colDate)
		row.ClientRaw = assign(colClient)
		row.ProductRaw = assign(colProduct)
		row.QuantityRaw = assign(colQuantity)
		row.PriceRaw = assign(colPrice)
		row.NCFSuffix = NoSuffix
		row.addError(structuralError(len(cells)))
		return row
	}

	row.NCFRaw = cells[colNCF]
	row.DateRaw = cells[colDate]
	row.ClientRaw = cells[colClient]
	row.ProductRaw = cells[colProduct]
	row.QuantityRaw = cells[colQuantity]
	row.PriceRaw = cells[colPrice]

	if row.NCFRaw == "" {
		row.addError("NCF vacío")
	}
	row.NCFSuffix = ExtractNCFSuffix(row.NCFRaw)
	if row.NCFRaw != "" && row.NCFSuffix == NoSuffix {
		row.addError("NCF sin dígitos: " + row.NCFRaw)
	}

	if row.DateRaw == "" {
		row.addError("fecha vacía")
	} else if date, err := ParseDate(row.DateRaw); err != nil {
		row.addError("fecha inválida: " + row.DateRaw)
	} else {
		row.Date = date
		row.DateValid = true
	}

	if row.ProductRaw == "" {
		row.addError("producto vacío")
	}

	if row.QuantityRaw == "" {
		row.addError("cantidad vacía")
	} else if qty, err := ParseQuantity(row.QuantityRaw); err != nil {
		row.addError("cantidad inválida: " + row.QuantityRaw)
	} else {
		row.Quantity = qty
	}

	if row.PriceRaw == "" {
		row.addError("precio vacío")
	} else if price, isOffer, err := ParsePrice(row.PriceRaw); err != nil {
		row.addError("precio inválido: " + row.PriceRaw)
	} else {
		row.UnitPrice = price
		row.IsOffer = isOffer
	}

	return row
}

func structuralError(got int) string {
	return fmt.Sprintf("número de columnas incorrecto: se esperaban %d, hay %d", columnCount, got)
}
