package catalog

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/quisqueyasoft/ventas-ledger/internal/domain/import/normalizer"
)

// BulkProductInput is one row of a bulk product upload.
type BulkProductInput struct {
	Name       string
	Percentage decimal.Decimal
}

// BulkRowResult annotates one bulk row with its outcome.
type BulkRowResult struct {
	Name  string
	Error string // empty on success
}

// BulkImportReport summarizes a bulk product upload.
type BulkImportReport struct {
	Rows     []BulkRowResult
	Created  int
	Rejected int
}

// BulkAddProducts inserts new catalog products, rejecting rows whose
// normalized name duplicates another row in the same upload or an existing
// catalog entry. Rejections are row-local; valid rows are still created.
func (s *Service) BulkAddProducts(ctx context.Context, inputs []BulkProductInput) (*BulkImportReport, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("bulk product import: %w", err)
	}

	report := &BulkImportReport{Rows: make([]BulkRowResult, 0, len(inputs))}
	seen := make(map[string]bool, len(inputs))

	for _, in := range inputs {
		result := BulkRowResult{Name: in.Name}
		normalized := normalizer.Normalize(in.Name)

		switch {
		case normalized == "":
			result.Error = "nombre de producto vacío"
		case seen[normalized]:
			result.Error = "nombre duplicado en el archivo: " + in.Name
		default:
			if _, exists := snap.ProductByNormalizedName(normalized); exists {
				result.Error = "el producto ya existe en el catálogo: " + in.Name
			}
		}

		if result.Error == "" {
			seen[normalized] = true
			p := &Product{Name: in.Name, Percentage: in.Percentage}
			if err := s.repo.CreateProduct(ctx, p); err != nil {
				return nil, fmt.Errorf("bulk product import: %w", err)
			}
			report.Created++
		} else {
			report.Rejected++
		}
		report.Rows = append(report.Rows, result)
	}

	if report.Created > 0 {
		s.Invalidate()
	}
	return report, nil
}
