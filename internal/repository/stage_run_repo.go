package repository

import (
	"context"

	"github.com/user/listing-pipeline/internal/entity"
)

// StageRunRepository persists the orchestrator's stage log.
type StageRunRepository interface {
	// Start inserts a running entry and sets run.ID.
	Start(ctx context.Context, run *entity.StageRun) error
	// Finish records the end time, status and reason of a started entry.
	Finish(ctx context.Context, run *entity.StageRun) error
	// ListByRun returns the entries of a crawl run ordered by sequence.
	ListByRun(ctx context.Context, runID string) ([]entity.StageRun, error)
}
