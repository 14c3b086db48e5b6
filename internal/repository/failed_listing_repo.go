package repository

import (
	"context"

	"github.com/user/listing-pipeline/internal/entity"
)

// FailedListingRepository records listings skipped during extraction.
type FailedListingRepository interface {
	// SaveOrUpdate creates or updates a record, incrementing attempt_count.
	SaveOrUpdate(ctx context.Context, failed *entity.FailedListing) error
	// CountByRun returns the number of failed listings per kind for a run.
	CountByRun(ctx context.Context, runID string) (map[string]int, error)
}
