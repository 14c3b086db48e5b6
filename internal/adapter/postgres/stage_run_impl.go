package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/listing-pipeline/internal/entity"
	"github.com/user/listing-pipeline/internal/repository"
)

// StageRunRepoImpl stores the orchestrator's stage log in PostgreSQL.
type StageRunRepoImpl struct {
	db *pgxpool.Pool
}

// NewStageRunRepo creates a new instance of StageRunRepoImpl.
func NewStageRunRepo(db *pgxpool.Pool) *StageRunRepoImpl {
	return &StageRunRepoImpl{db: db}
}

var _ repository.StageRunRepository = (*StageRunRepoImpl)(nil)

// Start inserts a running entry and stores the generated id on run.
func (r *StageRunRepoImpl) Start(ctx context.Context, run *entity.StageRun) error {
	query := `
		INSERT INTO stage_runs (run_id, stage, sequence, started_at, status, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id;
	`
	err := r.db.QueryRow(ctx, query,
		run.RunID,
		run.Stage,
		run.Sequence,
		run.StartedAt,
		string(run.Status),
		run.Reason,
	).Scan(&run.ID)
	if err != nil {
		return fmt.Errorf("insert stage run %s/%s: %w", run.RunID, run.Stage, err)
	}
	return nil
}

func (r *StageRunRepoImpl) Finish(ctx context.Context, run *entity.StageRun) error {
	query := `
		UPDATE stage_runs
		SET ended_at = $2, status = $3, reason = $4
		WHERE id = $1;
	`
	tag, err := r.db.Exec(ctx, query, run.ID, run.EndedAt, string(run.Status), run.Reason)
	if err != nil {
		return fmt.Errorf("finish stage run %d: %w", run.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("finish stage run %d: %w", run.ID, repository.ErrNotFound)
	}
	return nil
}

// ListByRun retrieves every stage entry of a run ordered by sequence.
func (r *StageRunRepoImpl) ListByRun(ctx context.Context, runID string) ([]entity.StageRun, error) {
	query := `
		SELECT id, run_id, stage, sequence, started_at, ended_at, status, reason
		FROM stage_runs
		WHERE run_id = $1
		ORDER BY sequence ASC;
	`
	rows, err := r.db.Query(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []entity.StageRun
	for rows.Next() {
		var sr entity.StageRun
		var status string
		if err := rows.Scan(
			&sr.ID,
			&sr.RunID,
			&sr.Stage,
			&sr.Sequence,
			&sr.StartedAt,
			&sr.EndedAt,
			&status,
			&sr.Reason,
		); err != nil {
			return nil, err
		}
		sr.Status = entity.StageStatus(status)
		runs = append(runs, sr)
	}

	return runs, rows.Err()
}
