package usecase

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/user/listing-pipeline/internal/entity"
	"github.com/user/listing-pipeline/internal/repository"
	"github.com/user/listing-pipeline/pkg/metrics"
)

type DiscoveryConfig struct {
	PageSize  int
	MaxOffset int // offsets are always strictly below this ceiling
	Workers   int
}

// Discoverer enumerates listing references from a source's search endpoint.
type Discoverer struct {
	client repository.SearchClient
	cfg    DiscoveryConfig
	logger *zap.Logger
}

func NewDiscoverer(client repository.SearchClient, cfg DiscoveryConfig, logger *zap.Logger) *Discoverer {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Discoverer{client: client, cfg: cfg, logger: logger}
}

// Discover streams the references for one operation type. Each call
// starts a fresh enumeration; the channel is closed when it ends or ctx is
// done. References arrive in no particular order and may repeat across
// pages, so callers deduplicate.
func (d *Discoverer) Discover(ctx context.Context, src entity.Source, op entity.OperationType) <-chan entity.ListingRef {
	out := make(chan entity.ListingRef, d.cfg.PageSize)
	go func() {
		defer close(out)
		d.enumerate(ctx, src, op, out)
	}()
	return out
}

func (d *Discoverer) enumerate(ctx context.Context, src entity.Source, op entity.OperationType, out chan<- entity.ListingRef) {
	if d.cfg.PageSize <= 0 || d.cfg.MaxOffset <= 0 {
		return
	}

	first, ok := d.fetch(ctx, src, op, 0)
	if ok && !d.emit(ctx, out, first.Refs) {
		return
	}

	// With a reported total the remaining offsets are known up front and
	// can be fetched concurrently.
	if ok && first.Total > 0 {
		limit := min(first.Total, d.cfg.MaxOffset)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(d.cfg.Workers)
		for offset := d.cfg.PageSize; offset < limit; offset += d.cfg.PageSize {
			g.Go(func() error {
				if page, ok := d.fetch(gctx, src, op, offset); ok {
					d.emit(gctx, out, page.Refs)
				}
				return nil
			})
		}
		_ = g.Wait()
		return
	}

	if ok && len(first.Refs) < d.cfg.PageSize {
		return
	}
	for offset := d.cfg.PageSize; offset < d.cfg.MaxOffset; offset += d.cfg.PageSize {
		if ctx.Err() != nil {
			return
		}
		page, ok := d.fetch(ctx, src, op, offset)
		if !ok {
			continue
		}
		if !d.emit(ctx, out, page.Refs) || len(page.Refs) < d.cfg.PageSize {
			return
		}
	}
}

// fetch requests one page. Failures are logged and reported as !ok so the
// enumeration can move on to the next offset.
func (d *Discoverer) fetch(ctx context.Context, src entity.Source, op entity.OperationType, offset int) (*entity.SearchPage, bool) {
	page, err := d.client.SearchPage(ctx, entity.SearchQuery{
		Source:    src,
		Operation: op,
		Offset:    offset,
		Size:      d.cfg.PageSize,
	})
	if err != nil {
		if ctx.Err() == nil {
			metrics.DiscoveryPagesTotal.WithLabelValues("failure").Inc()
			d.logger.Warn("discovery page skipped",
				zap.String("kind", "discovery_page"),
				zap.String("website", src.Website),
				zap.String("operation", string(op)),
				zap.Int("offset", offset),
				zap.Error(err))
		}
		return nil, false
	}
	metrics.DiscoveryPagesTotal.WithLabelValues("success").Inc()
	d.logger.Debug("discovery page fetched",
		zap.String("website", src.Website),
		zap.String("operation", string(op)),
		zap.Int("offset", offset),
		zap.Int("results", len(page.Refs)))
	return page, true
}

func (d *Discoverer) emit(ctx context.Context, out chan<- entity.ListingRef, refs []entity.ListingRef) bool {
	for _, ref := range refs {
		select {
		case out <- ref:
			metrics.ListingsDiscoveredTotal.WithLabelValues(ref.Website).Inc()
		case <-ctx.Done():
			return false
		}
	}
	return true
}
