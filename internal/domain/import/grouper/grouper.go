// Package grouper aggregates validated import rows into invoice-shaped
// groups keyed by NCF suffix, computing totals and import eligibility.
package grouper

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quisqueyasoft/ventas-ledger/internal/domain/import/parser"
)

// GroupedInvoice is one candidate invoice built from rows sharing an NCF
// suffix. Read-only after commit.
type GroupedInvoice struct {
	NCFSuffix string
	Date      time.Time
	DateValid bool

	ClientID   uuid.UUID
	ClientName string

	Rows []parser.Row

	// Total excludes offer lines; GrossTotal counts every resolved line
	Total      decimal.Decimal
	GrossTotal decimal.Decimal

	HasErrors bool
}

// Eligible reports whether the invoice can be committed: every row must
// carry a resolved product and no row errors. A missing client does not
// block eligibility.
func (g *GroupedInvoice) Eligible() bool {
	return !g.HasErrors
}

// Group buckets rows by non-sentinel NCF suffix, preserving row order within
// each group. Rows without a usable NCF are returned separately so callers
// can still display them.
func Group(rows []parser.Row) (invoices []GroupedInvoice, ungrouped []parser.Row) {
	byName := make(map[string]*GroupedInvoice)
	order := make([]string, 0, 16)

	for _, row := range rows {
		if row.NCFSuffix == "" || row.NCFSuffix == parser.NoSuffix {
			ungrouped = append(ungrouped, row)
			continue
		}

		g, ok := byName[row.NCFSuffix]
		if !ok {
			g = &GroupedInvoice{NCFSuffix: row.NCFSuffix}
			byName[row.NCFSuffix] = g
			order = append(order, row.NCFSuffix)
		}
		appendRow(g, row)
	}

	invoices = make([]GroupedInvoice, 0, len(order))
	for _, suffix := range order {
		invoices = append(invoices, *byName[suffix])
	}
	sort.Slice(invoices, func(i, j int) bool {
		return invoices[i].NCFSuffix < invoices[j].NCFSuffix
	})
	return invoices, ungrouped
}

func appendRow(g *GroupedInvoice, row parser.Row) {
	// First parsed date and first resolved client win
	if !g.DateValid && row.DateValid {
		g.Date = row.Date
		g.DateValid = true
	}
	if g.ClientID == uuid.Nil && row.HasClient() {
		g.ClientID = row.ClientID
		g.ClientName = row.ClientName
	}

	if !row.Valid() || !row.HasProduct() {
		g.HasErrors = true
	}

	if row.Valid() && row.HasProduct() {
		line := decimal.NewFromFloat(row.Quantity).Mul(decimal.NewFromFloat(row.UnitPrice))
		g.GrossTotal = g.GrossTotal.Add(line)
		if !row.IsOffer {
			g.Total = g.Total.Add(line)
		}
	}

	g.Rows = append(g.Rows, row)
}

// Summary holds batch-level counts for display after parsing.
type Summary struct {
	TotalRows          int
	ValidRows          int
	InvalidRows        int
	UngroupedRows      int
	Invoices           int
	EligibleInvoices   int
	UnresolvedProducts int
	UnresolvedClients  int
}

// Summarize computes batch counts over grouped and ungrouped rows.
// Unresolved counts are distinct normalized-name counts, matching what a
// manual-match screen would list.
func Summarize(invoices []GroupedInvoice, ungrouped []parser.Row, unresolvedProducts, unresolvedClients int) Summary {
	s := Summary{
		UngroupedRows:      len(ungrouped),
		Invoices:           len(invoices),
		UnresolvedProducts: unresolvedProducts,
		UnresolvedClients:  unresolvedClients,
	}

	count := func(rows []parser.Row) {
		for _, row := range rows {
			s.TotalRows++
			if row.Valid() {
				s.ValidRows++
			} else {
				s.InvalidRows++
			}
		}
	}

	for _, inv := range invoices {
		count(inv.Rows)
		if inv.Eligible() {
			s.EligibleInvoices++
		}
	}
	count(ungrouped)

	return s
}
