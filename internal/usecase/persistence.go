package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/user/listing-pipeline/internal/entity"
	"github.com/user/listing-pipeline/internal/repository"
	"github.com/user/listing-pipeline/pkg/metrics"
)

const StagePersistence = "persistence"

// PersistenceStage copies the run's staging documents into the processed
// collection.
type PersistenceStage struct {
	staging   repository.ListingStore
	processed repository.ListingStore
	logger    *zap.Logger
}

func NewPersistenceStage(staging, processed repository.ListingStore, logger *zap.Logger) *PersistenceStage {
	return &PersistenceStage{staging: staging, processed: processed, logger: logger}
}

func (s *PersistenceStage) Name() string { return StagePersistence }

func (s *PersistenceStage) Run(ctx context.Context, run entity.CrawlRun) error {
	count := 0
	err := s.staging.ForEachInRun(ctx, run.ID, func(p *entity.ProcessedListing) error {
		if err := s.processed.Upsert(ctx, p); err != nil {
			return fmt.Errorf("persist listing %s: %w", p.Key(), err)
		}
		metrics.ListingsPersistedTotal.WithLabelValues("processed").Inc()
		count++
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("processed listings persisted", zap.Int("count", count))
	return nil
}
