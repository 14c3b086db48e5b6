package repository

import "context"

// SeenRepository deduplicates discovered listings within a crawl run.
type SeenRepository interface {
	// MarkSeen records key for the run and website. It reports true when
	// the key had not been seen before.
	MarkSeen(ctx context.Context, runID, website, key string) (bool, error)
	// Reset forgets every key of the run and website, so a repeated
	// acquisition of the same run starts from an empty set.
	Reset(ctx context.Context, runID, website string) error
}
