package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/user/listing-pipeline/internal/entity"
	"github.com/user/listing-pipeline/internal/repository"
)

const StageCorrection = "geo_correction"

// CorrectionStage assigns locality and neighborhood from reference
// polygons and repairs swapped coordinates.
type CorrectionStage struct {
	staging repository.ListingStore
	locator repository.GeoLocator
	logger  *zap.Logger
}

func NewCorrectionStage(staging repository.ListingStore, locator repository.GeoLocator, logger *zap.Logger) *CorrectionStage {
	return &CorrectionStage{staging: staging, locator: locator, logger: logger}
}

func (s *CorrectionStage) Name() string { return StageCorrection }

func (s *CorrectionStage) Run(ctx context.Context, run entity.CrawlRun) error {
	var total, located, swapped int
	err := s.staging.ForEachInRun(ctx, run.ID, func(p *entity.ProcessedListing) error {
		s.Correct(p)
		total++
		if p.CoordinatesValid {
			located++
		}
		if p.CorrectedCoordinates != nil {
			swapped++
		}
		if err := s.staging.Upsert(ctx, p); err != nil {
			return fmt.Errorf("update listing %s: %w", p.Key(), err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("geographic correction done",
		zap.Int("listings", total),
		zap.Int("located", located),
		zap.Int("swapped_coordinates", swapped))
	return nil
}

// Correct recomputes the geographic fields of p.
func (s *CorrectionStage) Correct(p *entity.ProcessedListing) {
	p.Locality, p.Neighborhood, p.CorrectedCoordinates = nil, nil, nil
	p.CoordinatesValid = false

	if c := p.Coordinates; c != nil {
		if place, ok := s.locator.Locate(*c); ok {
			p.CoordinatesValid = true
			setPlace(p, place)
		} else {
			swapped := entity.Coordinates{Lon: c.Lat, Lat: c.Lon}
			if place, ok := s.locator.Locate(swapped); ok {
				p.CoordinatesValid = true
				p.CorrectedCoordinates = &swapped
				setPlace(p, place)
			}
		}
	}

	if p.Neighborhood == nil && p.Sector != nil {
		if name, ok := s.locator.NeighborhoodByName(*p.Sector); ok {
			p.Neighborhood = &name
		}
	}
}

func setPlace(p *entity.ProcessedListing, place repository.Place) {
	if place.Locality != "" {
		locality := place.Locality
		p.Locality = &locality
	}
	if place.Neighborhood != "" {
		neighborhood := place.Neighborhood
		p.Neighborhood = &neighborhood
	}
}
