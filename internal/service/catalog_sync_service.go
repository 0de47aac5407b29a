package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/topfive-api/internal/dto"
	"github.com/noah-isme/topfive-api/internal/models"
	"github.com/noah-isme/topfive-api/pkg/config"
	"github.com/noah-isme/topfive-api/pkg/jobs"
	appErrors "github.com/noah-isme/topfive-api/pkg/errors"
	"github.com/noah-isme/topfive-api/pkg/youtube"
)

// JobTypeCatalogSync is the queue job type of the periodic import.
const JobTypeCatalogSync = "catalog.sync"

type catalogSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]youtube.Video, error)
}

type suggestionImporter interface {
	BulkImport(ctx context.Context, actor models.Actor, items []models.ImportItem) (*dto.ImportResult, error)
}

// CatalogSyncService searches the catalog and imports the results as
// approved suggestions.
type CatalogSyncService struct {
	catalog  catalogSearcher
	importer suggestionImporter
	catCfg   config.CatalogConfig
	syncCfg  config.SyncConfig
	logger   *zap.Logger
	queue    *jobs.Queue
}

// NewCatalogSyncService constructs the service. The scheduler queue is built
// lazily by Start.
func NewCatalogSyncService(catalog catalogSearcher, importer suggestionImporter, catCfg config.CatalogConfig, syncCfg config.SyncConfig, logger *zap.Logger) *CatalogSyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogSyncService{catalog: catalog, importer: importer, catCfg: catCfg, syncCfg: syncCfg, logger: logger}
}

// Sync runs one import on behalf of actor.
func (s *CatalogSyncService) Sync(ctx context.Context, actor models.Actor) (*dto.ImportResult, error) {
	if !actor.IsPrivileged() {
		return nil, appErrors.ErrForbidden
	}
	if s.catalog == nil {
		return nil, appErrors.Clone(appErrors.ErrSourceResolution, "video catalog is not configured")
	}

	searchCtx := ctx
	if s.catCfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, s.catCfg.RequestTimeout)
		defer cancel()
	}
	videos, err := s.catalog.Search(searchCtx, s.catCfg.SearchQuery, s.catCfg.MaxResults)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrSourceResolution.Code, appErrors.ErrSourceResolution.Status, "catalog search failed")
	}

	items := make([]models.ImportItem, 0, len(videos))
	for _, v := range videos {
		items = append(items, models.ImportItem{
			ExternalID:   v.ID,
			Title:        v.Title,
			ThumbnailURL: v.ThumbnailURL,
			ViewCount:    v.ViewCount,
		})
	}

	result, err := s.importer.BulkImport(ctx, actor, items)
	if err != nil {
		return nil, err
	}
	s.logger.Info("catalog sync finished",
		zap.String("query", s.catCfg.SearchQuery),
		zap.Int("found", len(videos)),
		zap.Int("created", result.Created))
	return result, nil
}

// Start schedules the periodic import when enabled. Stop must be called on shutdown.
func (s *CatalogSyncService) Start(ctx context.Context) error {
	if !s.syncCfg.Enabled {
		return nil
	}
	if s.syncCfg.Interval <= 0 {
		return fmt.Errorf("catalog sync: interval must be positive")
	}
	actor := models.SystemActor(s.syncCfg.ActorID)
	s.queue = jobs.NewQueue("catalog-sync", func(ctx context.Context, job jobs.Job) error {
		_, err := s.Sync(ctx, actor)
		return err
	}, jobs.QueueConfig{
		Workers:    1,
		BufferSize: 1,
		MaxRetries: s.syncCfg.MaxRetries,
		RetryDelay: s.syncCfg.RetryDelay,
		Logger:     s.logger,
	})
	s.queue.Start(ctx)
	if err := s.queue.Schedule(JobTypeCatalogSync, s.syncCfg.Interval, true); err != nil {
		s.queue.Stop()
		return fmt.Errorf("catalog sync: %w", err)
	}
	s.logger.Info("catalog sync scheduled", zap.Duration("interval", s.syncCfg.Interval))
	return nil
}

// Stop halts the scheduler.
func (s *CatalogSyncService) Stop() {
	if s.queue != nil {
		s.queue.Stop()
	}
}

// Stats reports scheduler counters; zero when the scheduler is off.
func (s *CatalogSyncService) Stats() jobs.Stats {
	if s.queue == nil {
		return jobs.Stats{}
	}
	return s.queue.Stats()
}
