package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/user/listing-pipeline/internal/entity"
	"github.com/user/listing-pipeline/internal/repository"
	"github.com/user/listing-pipeline/pkg/metrics"
	"github.com/user/listing-pipeline/pkg/utils"
)

const StageAcquisition = "acquisition"

type AcquisitionConfig struct {
	Workers   int
	Extractor ExtractorConfig // Website and RunID are filled per source and run
}

// AcquisitionStage discovers listings for every source and writes the
// extracted records to the raw store.
type AcquisitionStage struct {
	sources    []entity.Source
	discoverer *Discoverer
	sessions   repository.SessionProvider
	seen       repository.SeenRepository
	raw        repository.RawListingRepository
	failures   repository.FailedListingRepository
	cfg        AcquisitionConfig
	logger     *zap.Logger
}

func NewAcquisitionStage(
	sources []entity.Source,
	discoverer *Discoverer,
	sessions repository.SessionProvider,
	seen repository.SeenRepository,
	raw repository.RawListingRepository,
	failures repository.FailedListingRepository,
	cfg AcquisitionConfig,
	logger *zap.Logger,
) *AcquisitionStage {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &AcquisitionStage{
		sources:    sources,
		discoverer: discoverer,
		sessions:   sessions,
		seen:       seen,
		raw:        raw,
		failures:   failures,
		cfg:        cfg,
		logger:     logger,
	}
}

func (s *AcquisitionStage) Name() string { return StageAcquisition }

func (s *AcquisitionStage) Run(ctx context.Context, run entity.CrawlRun) error {
	for _, src := range s.sources {
		if err := s.runSource(ctx, run, src); err != nil {
			return fmt.Errorf("source %s: %w", src.Website, err)
		}
	}
	return nil
}

type acquisitionStats struct {
	discovered  atomic.Int64
	duplicates  atomic.Int64
	saved       atomic.Int64
	storeErrors atomic.Int64
}

func (s *AcquisitionStage) runSource(ctx context.Context, run entity.CrawlRun, src entity.Source) error {
	if err := s.seen.Reset(ctx, run.ID, src.Website); err != nil {
		return err
	}

	var stats acquisitionStats
	refs := make(chan entity.ListingRef, s.cfg.Workers*2)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(refs)
		for _, op := range src.Operations {
			for ref := range s.discoverer.Discover(gctx, src, op) {
				stats.discovered.Add(1)
				if !s.markSeen(gctx, run, src, ref) {
					stats.duplicates.Add(1)
					continue
				}
				select {
				case refs <- ref:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
		}
		return nil
	})

	for i := 0; i < s.cfg.Workers; i++ {
		g.Go(func() error {
			return s.worker(gctx, run, src, i, refs, &stats)
		})
	}

	err := g.Wait()
	s.logger.Info("source acquisition finished",
		zap.String("website", src.Website),
		zap.Int64("discovered", stats.discovered.Load()),
		zap.Int64("duplicates", stats.duplicates.Load()),
		zap.Int64("saved", stats.saved.Load()),
		zap.Int64("store_errors", stats.storeErrors.Load()))
	if err != nil {
		return err
	}
	if stats.saved.Load() == 0 && stats.storeErrors.Load() > 0 {
		return errors.New("raw store rejected every record")
	}
	return nil
}

// worker owns one rendering session for its whole lifetime.
func (s *AcquisitionStage) worker(
	ctx context.Context,
	run entity.CrawlRun,
	src entity.Source,
	id int,
	refs <-chan entity.ListingRef,
	stats *acquisitionStats,
) error {
	session, err := s.sessions.NewSession(ctx)
	if err != nil {
		return fmt.Errorf("worker %d: acquire rendering session: %w", id, err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			s.logger.Warn("failed to close rendering session", zap.Int("worker", id), zap.Error(err))
		}
	}()

	cfg := s.cfg.Extractor
	cfg.Website = src.Website
	cfg.RunID = run.ID
	extractor := NewDetailExtractor(session, s.failures, cfg, s.logger.With(zap.Int("worker", id)))

	for ref := range refs {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, rec := range extractor.Extract(ctx, ref.URL) {
			if err := s.raw.Upsert(ctx, &rec); err != nil {
				stats.storeErrors.Add(1)
				s.logger.Warn("failed to store raw listing",
					zap.String("code", rec.Code),
					zap.String("url", ref.URL),
					zap.Error(err))
				continue
			}
			stats.saved.Add(1)
			metrics.ListingsPersistedTotal.WithLabelValues("raw").Inc()
		}
	}
	return nil
}

// markSeen reports whether ref is new in this run. A dedup store error
// lets the listing through.
func (s *AcquisitionStage) markSeen(ctx context.Context, run entity.CrawlRun, src entity.Source, ref entity.ListingRef) bool {
	key := ref.Code
	if key == "" {
		key = utils.HashURL(ref.URL)
	}
	isNew, err := s.seen.MarkSeen(ctx, run.ID, src.Website, key)
	if err != nil {
		s.logger.Warn("dedup check failed, keeping listing", zap.String("url", ref.URL), zap.Error(err))
		return true
	}
	return isNew
}
