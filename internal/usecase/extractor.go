package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/user/listing-pipeline/internal/entity"
	"github.com/user/listing-pipeline/internal/repository"
	"github.com/user/listing-pipeline/pkg/metrics"
	"github.com/user/listing-pipeline/pkg/utils"
)

const (
	DefaultDataNodeSelector = "script#__NEXT_DATA__"
	DefaultPayloadPath      = "props.initialProps.pageProps.realEstate"
)

var errNodeMissing = errors.New("embedded data node missing")

type ExtractorConfig struct {
	Website      string
	RunID        string
	RetryWait    time.Duration
	NodeSelector string
	PayloadPath  []any
}

// DetailExtractor turns a rendered detail page into listing records. It
// drives a single rendering session and must not be shared between
// goroutines.
type DetailExtractor struct {
	session  repository.RenderSession
	failures repository.FailedListingRepository
	cfg      ExtractorConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewDetailExtractor creates an extractor. failures may be nil.
func NewDetailExtractor(
	session repository.RenderSession,
	failures repository.FailedListingRepository,
	cfg ExtractorConfig,
	logger *zap.Logger,
) *DetailExtractor {
	if cfg.NodeSelector == "" {
		cfg.NodeSelector = DefaultDataNodeSelector
	}
	if cfg.PayloadPath == nil {
		cfg.PayloadPath = utils.ParsePath(DefaultPayloadPath)
	}
	return &DetailExtractor{
		session:  session,
		failures: failures,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Extract returns the records embedded in the page at url. Render and
// parse failures are logged and recorded, never returned.
func (e *DetailExtractor) Extract(ctx context.Context, url string) []entity.ListingRecord {
	records, err := e.extract(ctx, url)
	if err != nil {
		e.handleFailure(ctx, url, err)
		return nil
	}
	metrics.DetailExtractionsTotal.WithLabelValues("success", "").Inc()
	e.logger.Debug("listing extracted", zap.String("url", url), zap.Int("records", len(records)))
	return records
}

func (e *DetailExtractor) extract(ctx context.Context, url string) ([]entity.ListingRecord, error) {
	text, err := e.locate(ctx, url, 0)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Info("embedded data missing, retrying once",
			zap.String("url", url),
			zap.Duration("wait", e.cfg.RetryWait),
			zap.Error(err))
		text, err = e.locate(ctx, url, e.cfg.RetryWait)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %v", repository.ErrDetailRender, err)
		}
	}

	payload, err := decodeJSON(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrDetailParse, err)
	}

	items, ok := payloadItems(payload, e.cfg.PayloadPath)
	if !ok {
		return nil, fmt.Errorf("%w: no listing payload at %v", repository.ErrDetailParse, e.cfg.PayloadPath)
	}

	seenAt := e.now().UTC()
	records := make([]entity.ListingRecord, 0, len(items))
	for _, item := range items {
		rec, ok := e.mapItem(item, seenAt)
		if !ok {
			e.logger.Warn("listing item without code skipped", zap.String("url", url))
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// locate renders url once and returns the text of the embedded data node.
func (e *DetailExtractor) locate(ctx context.Context, url string, settle time.Duration) (string, error) {
	start := time.Now()
	html, err := e.session.Render(ctx, url, settle)
	metrics.RenderAttemptsTotal.Inc()
	metrics.RenderDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	node := doc.Find(e.cfg.NodeSelector).First()
	if node.Length() == 0 {
		return "", errNodeMissing
	}
	text := strings.TrimSpace(node.Text())
	if text == "" {
		return "", errNodeMissing
	}
	return text, nil
}

func (e *DetailExtractor) handleFailure(ctx context.Context, url string, err error) {
	if ctx.Err() != nil {
		e.logger.Debug("extraction cancelled", zap.String("url", url), zap.Error(err))
		return
	}

	kind := "unknown"
	switch {
	case errors.Is(err, repository.ErrDetailRender):
		kind = "detail_render"
	case errors.Is(err, repository.ErrDetailParse):
		kind = "detail_parse"
	}
	metrics.DetailExtractionsTotal.WithLabelValues("failure", kind).Inc()
	e.logger.Warn("listing skipped", zap.String("kind", kind), zap.String("url", url), zap.Error(err))

	if e.failures == nil {
		return
	}
	failed := &entity.FailedListing{
		URL:         url,
		Website:     e.cfg.Website,
		CrawlRunID:  e.cfg.RunID,
		Kind:        kind,
		Reason:      err.Error(),
		LastAttempt: e.now().UTC(),
	}
	if err := e.failures.SaveOrUpdate(ctx, failed); err != nil {
		e.logger.Warn("failed to record skipped listing", zap.String("url", url), zap.Error(err))
	}
}

func (e *DetailExtractor) mapItem(item any, seenAt time.Time) (entity.ListingRecord, bool) {
	code := utils.ResolveString(item, "propertyId")
	if code == nil {
		code = utils.ResolveString(item, "id")
	}
	if code == nil {
		return entity.ListingRecord{}, false
	}

	return entity.ListingRecord{
		Code:               *code,
		Website:            e.cfg.Website,
		PropertyType:       utils.ResolveString(item, "propertyType", "nombre"),
		OperationType:      utils.ResolveString(item, "businessType"),
		SalePrice:          utils.ResolveFloat(item, "salePrice"),
		RentPrice:          utils.ResolveFloat(item, "rentPrice"),
		Area:               utils.ResolveFloat(item, "area"),
		Rooms:              utils.ResolveInt(item, "rooms"),
		Bathrooms:          utils.ResolveInt(item, "bathrooms"),
		AdminFee:           utils.ResolveFloat(item, "detail", "adminPrice"),
		Parking:            utils.ResolveInt(item, "garages"),
		Sector:             utils.ResolveString(item, "sector", "nombre"),
		Stratum:            utils.ResolveInt(item, "stratum"),
		Age:                utils.ResolveString(item, "builtTime"),
		PropertyState:      utils.ResolveString(item, "propertyState"),
		Coordinates:        coordinates(item),
		FeaturedInterior:   featuredBucket(item, 0),
		FeaturedExterior:   featuredBucket(item, 1),
		FeaturedCommonArea: featuredBucket(item, 2),
		FeaturedSector:     featuredBucket(item, 3),
		Images:             imageURLs(item),
		Company:            utils.ResolveString(item, "companyName"),
		Description:        utils.ResolveString(item, "comment"),
		CrawlRunID:         e.cfg.RunID,
		FirstSeen:          seenAt,
		LastSeen:           seenAt,
	}, true
}

// decodeJSON parses text keeping numbers exact and rejects trailing data.
func decodeJSON(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return payload, nil
}

// payloadItems returns the listing objects at path: a single object or
// every object in a list.
func payloadItems(payload any, path []any) ([]any, bool) {
	node, ok := utils.Resolve(payload, path...)
	if !ok {
		return nil, false
	}
	switch v := node.(type) {
	case map[string]any:
		return []any{v}, true
	case []any:
		items := make([]any, 0, len(v))
		for _, it := range v {
			if m, ok := it.(map[string]any); ok {
				items = append(items, m)
			}
		}
		return items, true
	}
	return nil, false
}

func coordinates(item any) *entity.Coordinates {
	lon := utils.ResolveFloat(item, "coordinates", "lon")
	lat := utils.ResolveFloat(item, "coordinates", "lat")
	if lon == nil || lat == nil {
		return nil
	}
	return &entity.Coordinates{Lon: *lon, Lat: *lat}
}

func featuredBucket(item any, slot int) entity.TagBucket {
	tags, ok := utils.ResolveStrings(item, "featured", slot, "items")
	if !ok {
		return entity.Absent()
	}
	return entity.Present(tags...)
}

func imageURLs(item any) []string {
	out := []string{}
	node, ok := utils.Resolve(item, "images")
	if !ok {
		return out
	}
	list, ok := node.([]any)
	if !ok {
		return out
	}
	for _, entry := range list {
		if u := utils.ResolveString(entry, "image"); u != nil {
			out = append(out, *u)
		}
	}
	return out
}
