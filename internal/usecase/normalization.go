package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/user/listing-pipeline/internal/entity"
	"github.com/user/listing-pipeline/internal/feature"
	"github.com/user/listing-pipeline/internal/repository"
	"github.com/user/listing-pipeline/pkg/metrics"
)

const StageNormalization = "normalization"

// NormalizationStage derives features and writes the staging documents.
type NormalizationStage struct {
	raw     repository.RawListingRepository
	staging repository.ListingStore
	deriver *feature.Deriver
	logger  *zap.Logger
}

func NewNormalizationStage(raw repository.RawListingRepository, staging repository.ListingStore, deriver *feature.Deriver, logger *zap.Logger) *NormalizationStage {
	return &NormalizationStage{raw: raw, staging: staging, deriver: deriver, logger: logger}
}

func (s *NormalizationStage) Name() string { return StageNormalization }

func (s *NormalizationStage) Run(ctx context.Context, run entity.CrawlRun) error {
	count := 0
	err := s.raw.ForEachInRun(ctx, run.ID, func(rec *entity.ListingRecord) error {
		p := s.Normalize(rec, run)
		if err := s.staging.Upsert(ctx, &p); err != nil {
			return fmt.Errorf("stage listing %s: %w", rec.Key(), err)
		}
		metrics.ListingsPersistedTotal.WithLabelValues("staging").Inc()
		count++
		return nil
	})
	if err != nil {
		return err
	}
	if count == 0 {
		s.logger.Warn("no raw listings for run", zap.String("run_id", run.ID))
	}
	s.logger.Info("listings normalized", zap.Int("count", count))
	return nil
}

// Normalize builds the staging document for rec without modifying it.
func (s *NormalizationStage) Normalize(rec *entity.ListingRecord, run entity.CrawlRun) entity.ProcessedListing {
	r := *rec
	r.Images = flattenImages(rec.Images)
	return entity.ProcessedListing{
		ListingRecord: r,
		Features:      s.deriver.DeriveListing(rec),
		RunID:         run.ID,
		RunAt:         run.StartedAt,
	}
}

// flattenImages trims URLs, drops empties and keeps the first occurrence
// of each.
func flattenImages(images []string) []string {
	out := make([]string, 0, len(images))
	seen := make(map[string]struct{}, len(images))
	for _, img := range images {
		img = strings.TrimSpace(img)
		if img == "" {
			continue
		}
		if _, dup := seen[img]; dup {
			continue
		}
		seen[img] = struct{}{}
		out = append(out, img)
	}
	return out
}
