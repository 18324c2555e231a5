// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/quisqueyasoft/ventas-ledger/internal/domain/catalog"
	"github.com/quisqueyasoft/ventas-ledger/internal/domain/import/normalizer"
)

// MatchPruner removes saved manual matches by matched entity IDs.
type MatchPruner interface {
	ListByType(ctx context.Context, matchType normalizer.MatchType) ([]normalizer.ManualMatch, error)
	DeleteByMatchedIDs(ctx context.Context, matchType normalizer.MatchType, ids []uuid.UUID) (int64, error)
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron     *cron.Cron
	catalog  *catalog.Service
	matches  MatchPruner
	schedule string
	logger   *slog.Logger
}

// NewScheduler creates a new job scheduler.
func NewScheduler(catalogSvc *catalog.Service, matches MatchPruner, schedule string, logger *slog.Logger) *Scheduler {
	// Standard 5-field format, seconds disabled
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:     c,
		catalog:  catalogSvc,
		matches:  matches,
		schedule: schedule,
		logger:   logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	// Stale match pruning: drops saved matches whose target entity
	// no longer exists in the catalog
	_, err := s.cron.AddFunc(s.schedule, s.pruneStaleMatches)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers the stale match pruning (for testing/admin).
func (s *Scheduler) RunNow() {
	go s.pruneStaleMatches()
}

// pruneStaleMatches deletes saved manual matches that point at catalog
// entries that have since been removed.
func (s *Scheduler) pruneStaleMatches() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	s.logger.Info("starting stale match pruning")

	snap, err := s.catalog.Refresh(ctx)
	if err != nil {
		s.logger.Error("failed to refresh catalog snapshot", slog.Any("error", err))
		return
	}

	pruned := int64(0)

	for _, matchType := range []normalizer.MatchType{normalizer.MatchTypeProduct, normalizer.MatchTypeClient} {
		saved, err := s.matches.ListByType(ctx, matchType)
		if err != nil {
			s.logger.Error("failed to list saved matches",
				slog.String("match_type", string(matchType)),
				slog.Any("error", err),
			)
			continue
		}

		var stale []uuid.UUID
		for _, m := range saved {
			exists := false
			switch matchType {
			case normalizer.MatchTypeProduct:
				_, exists = snap.ProductByID(m.MatchedID)
			case normalizer.MatchTypeClient:
				_, exists = snap.ClientByID(m.MatchedID)
			}
			if !exists {
				stale = append(stale, m.MatchedID)
			}
		}
		if len(stale) == 0 {
			continue
		}

		deleted, err := s.matches.DeleteByMatchedIDs(ctx, matchType, stale)
		if err != nil {
			s.logger.Warn("failed to prune stale matches",
				slog.String("match_type", string(matchType)),
				slog.Any("error", err),
			)
			continue
		}
		pruned += deleted
	}

	s.logger.Info("stale match pruning completed",
		slog.Int64("matches_pruned", pruned),
	)
}
