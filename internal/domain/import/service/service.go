// Package service sequences the import pipeline: parse, resolve, group,
// await manual matches, commit. One ImportService instance handles one file
// at a time and exposes the batch state to callers.
package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/quisqueyasoft/ventas-ledger/internal/domain/catalog"
	"github.com/quisqueyasoft/ventas-ledger/internal/domain/import/grouper"
	"github.com/quisqueyasoft/ventas-ledger/internal/domain/import/normalizer"
	"github.com/quisqueyasoft/ventas-ledger/internal/domain/import/parser"
	"github.com/quisqueyasoft/ventas-ledger/internal/domain/import/resolver"
	"github.com/quisqueyasoft/ventas-ledger/internal/domain/invoice"
	"github.com/quisqueyasoft/ventas-ledger/pkg/metrics"
)

// State is the phase of the current import batch.
type State string

const (
	StateIdle                  State = "idle"
	StateParsing               State = "parsing"
	StateAwaitingManualMatches State = "awaiting_manual_matches"
	StateReady                 State = "ready"
	StateCommitting            State = "committing"
	StateDone                  State = "done"
	StatePartiallyFailed       State = "partially_failed"
)

// UnresolvedName is one distinct free-text name awaiting a human decision.
type UnresolvedName struct {
	Type       normalizer.MatchType
	Normalized string
	Sample     string // raw spelling from the first row carrying it
	RowCount   int
}

// CommitOutcome is the per-invoice result of a commit attempt.
type CommitOutcome struct {
	NCFSuffix string
	InvoiceID uuid.UUID
	Err       error
}

// InvoiceCreator is the persistence collaborator for finalized invoices.
type InvoiceCreator interface {
	Create(ctx context.Context, cmd invoice.CreateCommand) (*invoice.Invoice, error)
}

// Options carries the batch-level limits. A zero MaxFileBytes disables the
// upload size guard; a CommitBatchSize of zero or less commits everything in
// one batch.
type Options struct {
	Thresholds      resolver.Thresholds
	MaxFileBytes    int64
	CommitBatchSize int
}

// ImportService orchestrates the pipeline for one file at a time.
type ImportService struct {
	catalog         catalog.Provider
	store           resolver.MatchStore
	invoices        InvoiceCreator
	thresholds      resolver.Thresholds
	maxFileBytes    int64
	commitBatchSize int
	metrics         *metrics.Metrics
	logger          *slog.Logger
	tracer          trace.Tracer

	mu    sync.Mutex
	state State
	batch *batch
}

// batch is the in-memory state of one parsed file. Restarting an import
// discards it entirely and reprocesses the file.
type batch struct {
	snapshot  *catalog.Snapshot
	resolver  *resolver.Resolver
	rows      []parser.Row
	invoices  []grouper.GroupedInvoice
	ungrouped []parser.Row
	outcomes  []CommitOutcome
}

// NewImportService wires the orchestrator with its collaborators.
func NewImportService(
	catalogSvc catalog.Provider,
	store resolver.MatchStore,
	invoices InvoiceCreator,
	opts Options,
	m *metrics.Metrics,
	logger *slog.Logger,
) *ImportService {
	return &ImportService{
		catalog:         catalogSvc,
		store:           store,
		invoices:        invoices,
		thresholds:      opts.Thresholds,
		maxFileBytes:    opts.MaxFileBytes,
		commitBatchSize: opts.CommitBatchSize,
		metrics:         m,
		logger:          logger,
		tracer:          otel.Tracer("import"),
		state:           StateIdle,
	}
}

// State returns the current batch phase.
func (s *ImportService) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Reset discards all in-memory batch state.
func (s *ImportService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateIdle
	s.batch = nil
}

// Begin parses file text and runs resolution and grouping over every row.
// The service ends in AwaitingManualMatches when any product or client name
// needs a human decision, or Ready when at least one invoice is eligible.
func (s *ImportService) Begin(ctx context.Context, text string) error {
	if err := s.checkFileSize(int64(len(text))); err != nil {
		return err
	}
	return s.beginParsed(ctx, parser.Parse(text))
}

// BeginExcel parses an XLSX upload through the same pipeline.
func (s *ImportService) BeginExcel(ctx context.Context, r io.Reader) error {
	if s.maxFileBytes > 0 {
		data, err := io.ReadAll(io.LimitReader(r, s.maxFileBytes+1))
		if err != nil {
			return fmt.Errorf("reading upload: %w", err)
		}
		if err := s.checkFileSize(int64(len(data))); err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}
	result, err := parser.ParseExcel(r)
	if err != nil {
		return err
	}
	return s.beginParsed(ctx, result)
}

// checkFileSize rejects oversized uploads before any batch state changes.
func (s *ImportService) checkFileSize(n int64) error {
	if s.maxFileBytes > 0 && n > s.maxFileBytes {
		return fmt.Errorf("file exceeds the maximum size of %d bytes", s.maxFileBytes)
	}
	return nil
}

func (s *ImportService) beginParsed(ctx context.Context, result *parser.Result) error {
	ctx, span := s.tracer.Start(ctx, "import.Begin")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateParsing
	s.batch = nil
	s.metrics.ImportsStarted.Inc()

	snap, err := s.catalog.Snapshot(ctx)
	if err != nil {
		s.state = StateIdle
		span.SetStatus(codes.Error, "catalog unavailable")
		span.RecordError(err)
		return fmt.Errorf("catalog must be available before resolution: %w", err)
	}

	res, err := resolver.New(ctx, snap, s.store, s.thresholds)
	if err != nil {
		s.state = StateIdle
		span.SetStatus(codes.Error, "match store unavailable")
		span.RecordError(err)
		return err
	}

	s.metrics.RowsParsed.Add(float64(len(result.Rows)))
	s.metrics.RowsInvalid.Add(float64(result.InvalidRows))

	b := &batch{snapshot: snap, resolver: res, rows: result.Rows}
	s.resolveRows(b)
	s.regroup(b)
	s.batch = b
	s.settleState()

	span.SetAttributes(
		attribute.Int("rows.total", len(result.Rows)),
		attribute.Int("rows.invalid", result.InvalidRows),
		attribute.Int("invoices", len(b.invoices)),
	)
	s.logger.Info("import parsed",
		slog.Int("rows", len(result.Rows)),
		slog.Int("invalid_rows", result.InvalidRows),
		slog.Int("invoices", len(b.invoices)),
		slog.String("state", string(s.state)),
	)
	return nil
}

// resolveRows assigns catalog identities to every row. The resolver memoizes
// per normalized name, so repeated names cost one resolution each.
func (s *ImportService) resolveRows(b *batch) {
	for i := range b.rows {
		row := &b.rows[i]

		if row.ProductRaw != "" {
			if res := b.resolver.ResolveProduct(row.ProductRaw); res.Resolved() {
				row.ProductID = res.EntityID
				row.ProductName = res.EntityName
			} else {
				row.ProductID = uuid.Nil
				row.ProductName = ""
			}
		}
		if row.ClientRaw != "" {
			if res := b.resolver.ResolveClient(row.ClientRaw); res.Resolved() {
				row.ClientID = res.EntityID
				row.ClientName = res.EntityName
			} else {
				row.ClientID = uuid.Nil
				row.ClientName = ""
			}
		}
	}
}

func (s *ImportService) regroup(b *batch) {
	b.invoices, b.ungrouped = grouper.Group(b.rows)
}

// settleState picks the post-parse state. Unresolved names park the batch in
// AwaitingManualMatches even when some invoices are already eligible, so the
// user sees the full correction list before committing. A batch with nothing
// to fix and nothing to commit goes back to Idle: there is no correction a
// manual match could apply.
func (s *ImportService) settleState() {
	if s.batch == nil {
		s.state = StateIdle
		return
	}
	if len(s.unresolvedLocked(normalizer.MatchTypeProduct)) > 0 {
		s.state = StateAwaitingManualMatches
		return
	}
	for _, inv := range s.batch.invoices {
		if inv.Eligible() {
			s.state = StateReady
			return
		}
	}
	if len(s.unresolvedLocked(normalizer.MatchTypeClient)) > 0 {
		s.state = StateAwaitingManualMatches
		return
	}
	s.state = StateIdle
}

// Unresolved lists distinct names of one type still without a catalog match.
func (s *ImportService) Unresolved(matchType normalizer.MatchType) []UnresolvedName {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unresolvedLocked(matchType)
}

func (s *ImportService) unresolvedLocked(matchType normalizer.MatchType) []UnresolvedName {
	if s.batch == nil {
		return nil
	}

	seen := make(map[string]int) // normalized -> index in out
	var out []UnresolvedName

	for _, row := range s.batch.rows {
		var raw string
		var resolved bool
		switch matchType {
		case normalizer.MatchTypeProduct:
			raw, resolved = row.ProductRaw, row.HasProduct()
		case normalizer.MatchTypeClient:
			raw, resolved = row.ClientRaw, row.HasClient()
		default:
			return nil
		}
		if raw == "" || resolved {
			continue
		}

		normalized := normalizer.Normalize(raw)
		if normalized == "" {
			continue
		}
		if idx, ok := seen[normalized]; ok {
			out[idx].RowCount++
			continue
		}
		seen[normalized] = len(out)
		out = append(out, UnresolvedName{
			Type:       matchType,
			Normalized: normalized,
			Sample:     raw,
			RowCount:   1,
		})
	}
	return out
}

// AssignManualMatch records a human correction. The match store write must
// succeed before any row is updated; on success every row sharing the
// normalized name is re-resolved, not just the one that prompted the dialog.
func (s *ImportService) AssignManualMatch(ctx context.Context, matchType normalizer.MatchType, csvName string, entityID uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "import.AssignManualMatch")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.batch == nil {
		return fmt.Errorf("no import in progress")
	}
	switch s.state {
	case StateCommitting:
		return fmt.Errorf("cannot assign matches while committing")
	case StateDone, StatePartiallyFailed:
		return fmt.Errorf("import already committed (state %s)", s.state)
	}

	res, err := s.batch.resolver.AssignManual(ctx, matchType, csvName, entityID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	s.metrics.ManualMatchesSaved.Inc()

	normalized := normalizer.Normalize(csvName)
	fanout := 0
	for i := range s.batch.rows {
		row := &s.batch.rows[i]
		switch matchType {
		case normalizer.MatchTypeProduct:
			if normalizer.Normalize(row.ProductRaw) == normalized {
				row.ProductID = res.EntityID
				row.ProductName = res.EntityName
				fanout++
			}
		case normalizer.MatchTypeClient:
			if normalizer.Normalize(row.ClientRaw) == normalized {
				row.ClientID = res.EntityID
				row.ClientName = res.EntityName
				fanout++
			}
		}
	}

	s.regroup(s.batch)
	s.settleState()

	span.SetAttributes(attribute.Int("rows.updated", fanout))
	s.logger.Info("manual match assigned",
		slog.String("match_type", string(matchType)),
		slog.String("name", csvName),
		slog.Int("rows_updated", fanout),
	)
	return nil
}

// Invoices returns the current grouped invoices.
func (s *ImportService) Invoices() []grouper.GroupedInvoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batch == nil {
		return nil
	}
	return s.batch.invoices
}

// Ungrouped returns rows without a usable NCF, kept visible for correction.
func (s *ImportService) Ungrouped() []parser.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batch == nil {
		return nil
	}
	return s.batch.ungrouped
}

// Summary returns batch-level counts for display.
func (s *ImportService) Summary() grouper.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batch == nil {
		return grouper.Summary{}
	}
	return grouper.Summarize(
		s.batch.invoices,
		s.batch.ungrouped,
		len(s.unresolvedLocked(normalizer.MatchTypeProduct)),
		len(s.unresolvedLocked(normalizer.MatchTypeClient)),
	)
}

// Outcomes returns the per-invoice results of the last commit.
func (s *ImportService) Outcomes() []CommitOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batch == nil {
		return nil
	}
	return s.batch.outcomes
}

// Commit submits every eligible invoice to the persistence collaborator,
// in batches of CommitBatchSize. One invoice's failure never aborts the
// rest; already-committed invoices stay committed. The service ends in Done
// when all succeeded, or PartiallyFailed on any mix of results.
func (s *ImportService) Commit(ctx context.Context) ([]CommitOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "import.Commit")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.batch == nil {
		return nil, fmt.Errorf("no import in progress")
	}
	if s.state != StateReady {
		return nil, fmt.Errorf("import is not ready to commit (state %s)", s.state)
	}
	s.state = StateCommitting

	var eligible []grouper.GroupedInvoice
	for _, inv := range s.batch.invoices {
		if inv.Eligible() {
			eligible = append(eligible, inv)
		}
	}

	batchSize := s.commitBatchSize
	if batchSize <= 0 {
		batchSize = len(eligible)
	}

	outcomes := make([]CommitOutcome, 0, len(eligible))
	failed := 0

	for start := 0; start < len(eligible); start += batchSize {
		// Cancellation between batches marks the remainder failed instead
		// of dropping them from the outcome list.
		if err := ctx.Err(); err != nil {
			for _, inv := range eligible[start:] {
				outcomes = append(outcomes, CommitOutcome{NCFSuffix: inv.NCFSuffix, Err: err})
				failed++
				s.metrics.InvoicesFailed.Inc()
			}
			span.RecordError(err)
			break
		}

		end := min(start+batchSize, len(eligible))
		for _, inv := range eligible[start:end] {
			cmd := buildCommand(inv)
			created, err := s.invoices.Create(ctx, cmd)

			outcome := CommitOutcome{NCFSuffix: inv.NCFSuffix, Err: err}
			if err != nil {
				failed++
				s.metrics.InvoicesFailed.Inc()
				span.RecordError(err)
				s.logger.Warn("invoice commit failed",
					slog.String("ncf_suffix", inv.NCFSuffix),
					slog.Any("error", err),
				)
			} else {
				outcome.InvoiceID = created.ID
				s.metrics.InvoicesCommitted.Inc()
			}
			outcomes = append(outcomes, outcome)
		}
	}

	s.batch.outcomes = outcomes
	if failed == 0 {
		s.state = StateDone
	} else {
		s.state = StatePartiallyFailed
	}

	span.SetAttributes(
		attribute.Int("invoices.committed", len(outcomes)-failed),
		attribute.Int("invoices.failed", failed),
	)
	s.logger.Info("import commit finished",
		slog.Int("committed", len(outcomes)-failed),
		slog.Int("failed", failed),
		slog.String("state", string(s.state)),
	)
	return outcomes, nil
}

// buildCommand translates an eligible group into a creation command.
func buildCommand(inv grouper.GroupedInvoice) invoice.CreateCommand {
	cmd := invoice.CreateCommand{
		NCFSuffix: inv.NCFSuffix,
		IssuedOn:  inv.Date,
	}
	if inv.ClientID != uuid.Nil {
		clientID := inv.ClientID
		cmd.ClientID = &clientID
	}
	for _, row := range inv.Rows {
		cmd.Lines = append(cmd.Lines, invoice.Line{
			ProductID: row.ProductID,
			Quantity:  row.Quantity,
			UnitPrice: row.UnitPrice,
			IsOffer:   row.IsOffer,
		})
	}
	return cmd
}

// RowStatus is the user-facing annotation for one row.
type RowStatus struct {
	LineNumber int
	Valid      bool
	Message    string
}

// RowStatuses builds the pass/fail annotation for every row, joining parse
// errors with unresolved-name notes.
func (s *ImportService) RowStatuses() []RowStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batch == nil {
		return nil
	}

	statuses := make([]RowStatus, 0, len(s.batch.rows))
	for _, row := range s.batch.rows {
		msgs := append([]string(nil), row.Errors...)
		if row.Valid() && row.ProductRaw != "" && !row.HasProduct() {
			msgs = append(msgs, "producto no reconocido: "+row.ProductRaw)
		}
		statuses = append(statuses, RowStatus{
			LineNumber: row.LineNumber,
			Valid:      len(msgs) == 0,
			Message:    strings.Join(msgs, "; "),
		})
	}
	return statuses
}
