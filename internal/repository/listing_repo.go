package repository

import (
	"context"

	"github.com/user/listing-pipeline/internal/entity"
)

// RawListingRepository stores records exactly as extracted.
type RawListingRepository interface {
	// Upsert writes the record keyed by (code, website), keeping the
	// first_seen of an existing document.
	Upsert(ctx context.Context, rec *entity.ListingRecord) error
	// ForEachInRun streams every record written by the given run.
	ForEachInRun(ctx context.Context, runID string, fn func(*entity.ListingRecord) error) error
}

// ListingStore holds processed listings. It backs both the staging and the
// processed collections.
type ListingStore interface {
	Upsert(ctx context.Context, l *entity.ProcessedListing) error
	ForEachInRun(ctx context.Context, runID string, fn func(*entity.ProcessedListing) error) error
}
