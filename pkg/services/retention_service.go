package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-content/pkg/database"
	"github.com/ekaya-inc/ekaya-content/pkg/repositories"
)

// Defaults used when RetentionConfig fields are zero.
const (
	DefaultDeletedRetention     = 30 * 24 * time.Hour
	DefaultStaleGeneratingAfter = 2 * time.Hour
)

// RetentionConfig controls housekeeping of content projects.
type RetentionConfig struct {
	// DeletedRetention is how long soft-deleted projects are kept before purge.
	DeletedRetention time.Duration
	// StaleGeneratingAfter is how long a project may sit in generating
	// without progress before it is marked failed.
	StaleGeneratingAfter time.Duration
}

// PruneResult reports what a single Prune pass changed.
type PruneResult struct {
	Purged int64
	Failed int64
}

// RetentionService purges soft-deleted projects and recovers projects left
// in generating by a crashed or restarted process.
type RetentionService interface {
	Prune(ctx context.Context) (PruneResult, error)

	// RunScheduler starts a background goroutine that prunes on the given interval.
	// It runs immediately on startup, then repeats every interval.
	// Cancel the context to stop the scheduler.
	RunScheduler(ctx context.Context, interval time.Duration)
}

type retentionService struct {
	projects repositories.ProjectRepository
	scope    database.ScopeFunc
	cfg      RetentionConfig
	now      func() time.Time
	logger   *zap.Logger
}

func NewRetentionService(
	projects repositories.ProjectRepository,
	scope database.ScopeFunc,
	cfg RetentionConfig,
	logger *zap.Logger,
) RetentionService {
	if cfg.DeletedRetention <= 0 {
		cfg.DeletedRetention = DefaultDeletedRetention
	}
	if cfg.StaleGeneratingAfter <= 0 {
		cfg.StaleGeneratingAfter = DefaultStaleGeneratingAfter
	}
	return &retentionService{
		projects: projects,
		scope:    scope,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger.Named("retention-service"),
	}
}

var _ RetentionService = (*retentionService)(nil)

func (s *retentionService) Prune(ctx context.Context) (PruneResult, error) {
	var result PruneResult

	scopedCtx, cleanup, err := s.scope(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to acquire database scope: %w", err)
	}
	defer cleanup()

	now := s.now()

	result.Purged, err = s.projects.PurgeDeleted(scopedCtx, now.Add(-s.cfg.DeletedRetention))
	if err != nil {
		return result, fmt.Errorf("failed to purge deleted projects: %w", err)
	}

	result.Failed, err = s.projects.FailStale(scopedCtx, now.Add(-s.cfg.StaleGeneratingAfter))
	if err != nil {
		return result, fmt.Errorf("failed to recover stale projects: %w", err)
	}

	if result.Purged > 0 || result.Failed > 0 {
		s.logger.Info("Retention cleanup completed",
			zap.Int64("purged", result.Purged),
			zap.Int64("stale_failed", result.Failed))
	}
	return result, nil
}

// RunScheduler starts a background loop that prunes projects.
func (s *retentionService) RunScheduler(ctx context.Context, interval time.Duration) {
	go func() {
		s.logger.Info("Retention scheduler started",
			zap.Duration("interval", interval),
			zap.Duration("deleted_retention", s.cfg.DeletedRetention),
			zap.Duration("stale_generating_after", s.cfg.StaleGeneratingAfter))

		// Run immediately on startup, then at each interval
		s.pruneLogged(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Retention scheduler stopped")
				return
			case <-ticker.C:
				s.pruneLogged(ctx)
			}
		}
	}()
}

func (s *retentionService) pruneLogged(ctx context.Context) {
	if _, err := s.Prune(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("Retention scheduler: prune failed", zap.Error(err))
	}
}
