package invoice

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quisqueyasoft/ventas-ledger/internal/domain/catalog"
	"github.com/quisqueyasoft/ventas-ledger/pkg/money"
)

// CommissionService builds commission reports over committed invoices.
type CommissionService struct {
	invoices *Repository
	catalog  catalog.Provider
}

// NewCommissionService creates a commission reporting service.
func NewCommissionService(invoices *Repository, catalogSvc catalog.Provider) *CommissionService {
	return &CommissionService{invoices: invoices, catalog: catalogSvc}
}

// ReportBetween aggregates every invoice issued within [from, to] into one
// per-product commission breakdown.
func (s *CommissionService) ReportBetween(ctx context.Context, from, to time.Time) (*CommissionReport, error) {
	snap, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog for commission report: %w", err)
	}

	invoices, err := s.invoices.ListBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}

	var lines []StoredLine
	for _, inv := range invoices {
		invLines, err := s.invoices.ListLines(ctx, inv.ID)
		if err != nil {
			return nil, err
		}
		lines = append(lines, invLines...)
	}

	return BuildCommissionReport(lines, snap), nil
}

// ProductBreakdown aggregates one product's sales within a set of lines.
type ProductBreakdown struct {
	ProductID   uuid.UUID
	ProductName string
	Percentage  decimal.Decimal

	Quantity   decimal.Decimal
	OfferUnits decimal.Decimal // units given away at zero price

	Gross      *money.Money // all lines, offers included
	Net        *money.Money // commission-bearing amount, offers excluded
	Commission *money.Money // Net × Percentage / 100
}

// CommissionReport is the per-product commission breakdown for a period.
type CommissionReport struct {
	Products        []ProductBreakdown
	TotalNet        *money.Money
	TotalCommission *money.Money
}

// BuildCommissionReport folds stored lines into a per-product breakdown
// using the catalog snapshot for names and commission percentages. Offer
// lines count toward quantity and gross but never toward net or commission.
// Products missing from the snapshot are reported with a zero percentage.
func BuildCommissionReport(lines []StoredLine, snap *catalog.Snapshot) *CommissionReport {
	byProduct := make(map[uuid.UUID]*ProductBreakdown)
	order := make([]uuid.UUID, 0, 8)

	for _, line := range lines {
		b, ok := byProduct[line.ProductID]
		if !ok {
			b = &ProductBreakdown{
				ProductID: line.ProductID,
				Gross:     money.Zero(money.DOP),
				Net:       money.Zero(money.DOP),
			}
			if p, found := snap.ProductByID(line.ProductID); found {
				b.ProductName = p.Name
				b.Percentage = p.Percentage
			}
			byProduct[line.ProductID] = b
			order = append(order, line.ProductID)
		}

		b.Quantity = b.Quantity.Add(line.Quantity)
		amount := line.Quantity.Mul(line.UnitPrice)
		b.Gross = b.Gross.MustAdd(money.NewFromDecimal(amount, money.DOP))
		if line.IsOffer {
			b.OfferUnits = b.OfferUnits.Add(line.Quantity)
		} else {
			b.Net = b.Net.MustAdd(money.NewFromDecimal(amount, money.DOP))
		}
	}

	report := &CommissionReport{
		Products:        make([]ProductBreakdown, 0, len(order)),
		TotalNet:        money.Zero(money.DOP),
		TotalCommission: money.Zero(money.DOP),
	}
	for _, id := range order {
		b := byProduct[id]
		b.Commission = b.Net.PercentageDecimal(b.Percentage)
		report.Products = append(report.Products, *b)
		report.TotalNet = report.TotalNet.MustAdd(b.Net)
		report.TotalCommission = report.TotalCommission.MustAdd(b.Commission)
	}
	return report
}
