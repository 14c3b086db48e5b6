package usecase

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/user/listing-pipeline/internal/entity"
	"github.com/user/listing-pipeline/internal/repository"
)

var ErrRunNotFound = errors.New("crawl run not found")

// RunReport summarizes one crawl run for the status API.
type RunReport struct {
	RunID          string
	Stages         []entity.StageRun
	FailedListings map[string]int
}

// RunStatus answers questions about past and running crawl runs.
type RunStatus interface {
	GetRun(ctx context.Context, runID string) (*RunReport, error)
}

type runStatusUseCase struct {
	stageRuns repository.StageRunRepository
	failures  repository.FailedListingRepository
	logger    *zap.Logger
}

func NewRunStatus(stageRuns repository.StageRunRepository, failures repository.FailedListingRepository, logger *zap.Logger) RunStatus {
	return &runStatusUseCase{stageRuns: stageRuns, failures: failures, logger: logger}
}

func (uc *runStatusUseCase) GetRun(ctx context.Context, runID string) (*RunReport, error) {
	stages, err := uc.stageRuns.ListByRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if len(stages) == 0 {
		return nil, ErrRunNotFound
	}

	counts, err := uc.failures.CountByRun(ctx, runID)
	if err != nil {
		// The stage log is still useful without failure counts.
		uc.logger.Warn("failed to count failed listings", zap.String("run_id", runID), zap.Error(err))
		counts = nil
	}

	return &RunReport{RunID: runID, Stages: stages, FailedListings: counts}, nil
}
