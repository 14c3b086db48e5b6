package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/user/listing-pipeline/internal/entity"
	"github.com/user/listing-pipeline/internal/repository"
)

const StageProximity = "proximity"

// ProximityStage attaches the nearest point of interest per category.
type ProximityStage struct {
	staging repository.ListingStore
	pois    repository.POIIndex
	logger  *zap.Logger
}

func NewProximityStage(staging repository.ListingStore, pois repository.POIIndex, logger *zap.Logger) *ProximityStage {
	return &ProximityStage{staging: staging, pois: pois, logger: logger}
}

func (s *ProximityStage) Name() string { return StageProximity }

func (s *ProximityStage) Run(ctx context.Context, run entity.CrawlRun) error {
	var total, enriched int
	err := s.staging.ForEachInRun(ctx, run.ID, func(p *entity.ProcessedListing) error {
		s.Enrich(p)
		total++
		if len(p.Nearby) > 0 {
			enriched++
		}
		if err := s.staging.Upsert(ctx, p); err != nil {
			return fmt.Errorf("update listing %s: %w", p.Key(), err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("proximity enrichment done",
		zap.Int("listings", total),
		zap.Int("enriched", enriched),
		zap.Strings("categories", s.pois.Categories()))
	return nil
}

// Enrich sets p.Nearby. Listings without valid coordinates get none.
func (s *ProximityStage) Enrich(p *entity.ProcessedListing) {
	p.Nearby = nil
	loc := p.Location()
	if !p.CoordinatesValid || loc == nil {
		return
	}
	nearby := make(map[string]entity.NearestPOI)
	for _, category := range s.pois.Categories() {
		if poi, ok := s.pois.Nearest(category, *loc); ok {
			nearby[category] = poi
		}
	}
	if len(nearby) > 0 {
		p.Nearby = nearby
	}
}
