package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/quisqueyasoft/ventas-ledger/internal/domain/catalog"
	"github.com/quisqueyasoft/ventas-ledger/internal/domain/import/normalizer"
	"github.com/quisqueyasoft/ventas-ledger/internal/domain/import/resolver"
	importservice "github.com/quisqueyasoft/ventas-ledger/internal/domain/import/service"
	"github.com/quisqueyasoft/ventas-ledger/internal/domain/invoice"
	"github.com/quisqueyasoft/ventas-ledger/pkg/config"
	"github.com/quisqueyasoft/ventas-ledger/pkg/cron"
	"github.com/quisqueyasoft/ventas-ledger/pkg/db"
	"github.com/quisqueyasoft/ventas-ledger/pkg/metrics"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config  *config.Config
	DB      *db.DB
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// Repositories
	CatalogRepo *catalog.Repository
	MatchStore  *normalizer.PostgresMatchStore
	InvoiceRepo *invoice.Repository

	// Services
	CatalogService    *catalog.Service
	SearchIndex       *catalog.SearchIndex
	SuggestionEngine  *catalog.SuggestionEngine
	ImportService     *importservice.ImportService
	CommissionService *invoice.CommissionService
	Scheduler         *cron.Scheduler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(prometheus.DefaultRegisterer),
	}

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	if err := deps.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() error {
	d.CatalogRepo = catalog.NewRepository(d.DB.Pool)
	d.MatchStore = normalizer.NewPostgresMatchStore(d.DB.Pool)
	d.InvoiceRepo = invoice.NewRepository(d.DB.Pool)

	d.Logger.Info("repositories initialized")
	return nil
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() error {
	d.CatalogService = catalog.NewService(d.CatalogRepo)

	searchIndex, err := catalog.NewSearchIndex(d.Config.Search.IndexPath)
	if err != nil {
		return fmt.Errorf("failed to init search index: %w", err)
	}
	d.SearchIndex = searchIndex

	d.SuggestionEngine = catalog.NewSuggestionEngine()

	d.ImportService = importservice.NewImportService(
		d.CatalogService,
		d.MatchStore,
		d.InvoiceRepo,
		importservice.Options{
			Thresholds: resolver.Thresholds{
				Product: d.Config.Resolver.ProductThreshold,
				Client:  d.Config.Resolver.ClientThreshold,
			},
			MaxFileBytes:    d.Config.Import.MaxFileBytes,
			CommitBatchSize: d.Config.Import.CommitBatchSize,
		},
		d.Metrics,
		d.Logger,
	)

	d.CommissionService = invoice.NewCommissionService(d.InvoiceRepo, d.CatalogService)

	d.Scheduler = cron.NewScheduler(d.CatalogService, d.MatchStore, d.Config.Jobs.PruneSchedule, d.Logger)
	if err := d.Scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	d.Logger.Info("services initialized")
	return nil
}

// SearchCatalog queries the bleve index for catalog entries matching the
// free-text query, for the manual-match picker.
func (d *Dependencies) SearchCatalog(matchType normalizer.MatchType, query string, limit int) ([]catalog.SearchResult, error) {
	return d.SearchIndex.Search(matchType, query, limit)
}

// RefreshCatalogIndexes reloads the catalog and rebuilds the search index
// and suggestion engine. Call after catalog edits.
func (d *Dependencies) RefreshCatalogIndexes(ctx context.Context) error {
	snap, err := d.CatalogService.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("failed to load catalog snapshot: %w", err)
	}
	if err := d.SearchIndex.IndexSnapshot(snap); err != nil {
		return fmt.Errorf("failed to rebuild search index: %w", err)
	}
	d.SuggestionEngine.Rebuild(snap)
	return nil
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
	}
	if d.SearchIndex != nil {
		if err := d.SearchIndex.Close(); err != nil {
			d.Logger.Warn("failed to close search index", slog.Any("error", err))
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
