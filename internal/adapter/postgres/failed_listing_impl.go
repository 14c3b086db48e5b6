package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/listing-pipeline/internal/entity"
	"github.com/user/listing-pipeline/internal/repository"
)

// FailedListingRepoImpl provides a concrete implementation for the FailedListingRepository interface using PostgreSQL.
type FailedListingRepoImpl struct {
	db *pgxpool.Pool
}

// NewFailedListingRepo creates a new instance of FailedListingRepoImpl.
func NewFailedListingRepo(db *pgxpool.Pool) *FailedListingRepoImpl {
	return &FailedListingRepoImpl{db: db}
}

var _ repository.FailedListingRepository = (*FailedListingRepoImpl)(nil)

// SaveOrUpdate creates or updates a record for a failed listing.
// It increments attempt_count on conflict.
func (r *FailedListingRepoImpl) SaveOrUpdate(ctx context.Context, failed *entity.FailedListing) error {
	query := `
		INSERT INTO failed_listings (url, website, crawl_run_id, kind, reason, attempt_count, last_attempt)
		VALUES ($1, $2, $3, $4, $5, 1, $6)
		ON CONFLICT (url, crawl_run_id) DO UPDATE SET
			kind = EXCLUDED.kind,
			reason = EXCLUDED.reason,
			last_attempt = EXCLUDED.last_attempt,
			attempt_count = failed_listings.attempt_count + 1;
	`
	_, err := r.db.Exec(ctx, query,
		failed.URL,
		failed.Website,
		failed.CrawlRunID,
		failed.Kind,
		failed.Reason,
		failed.LastAttempt,
	)
	return err
}

func (r *FailedListingRepoImpl) CountByRun(ctx context.Context, runID string) (map[string]int, error) {
	query := `
		SELECT kind, COUNT(*)
		FROM failed_listings
		WHERE crawl_run_id = $1
		GROUP BY kind;
	`
	rows, err := r.db.Query(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}
