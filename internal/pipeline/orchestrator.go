package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/user/listing-pipeline/internal/entity"
	"github.com/user/listing-pipeline/pkg/metrics"
)

// Recorder receives the stage log as it is produced.
type Recorder interface {
	Start(ctx context.Context, run *entity.StageRun) error
	Finish(ctx context.Context, run *entity.StageRun) error
}

// Orchestrator runs stages strictly one after another.
type Orchestrator struct {
	stages   []Stage
	recorder Recorder
	policy   Policy
	logger   *zap.Logger
	now      func() time.Time
}

// New creates an orchestrator. recorder may be nil.
func New(stages []Stage, recorder Recorder, policy Policy, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		stages:   stages,
		recorder: recorder,
		policy:   policy,
		logger:   logger,
		now:      time.Now,
	}
}

// Run executes the stages for one crawl run and returns the stage log, one
// entry per executed stage in execution order. Cancellation is honoured
// between stages. The returned error is nil only when every stage succeeded.
func (o *Orchestrator) Run(ctx context.Context, run entity.CrawlRun) ([]entity.StageRun, error) {
	var (
		log      []entity.StageRun
		failures []error
	)

	o.logger.Info("pipeline started",
		zap.String("run_id", run.ID),
		zap.Int("stages", len(o.stages)),
		zap.String("policy", o.policy.String()))

	for i, stage := range o.stages {
		if err := ctx.Err(); err != nil {
			o.logger.Warn("pipeline cancelled before stage", zap.String("stage", stage.Name()), zap.Error(err))
			failures = append(failures, err)
			break
		}

		entry := entity.StageRun{
			RunID:     run.ID,
			Stage:     stage.Name(),
			Sequence:  i + 1,
			StartedAt: o.now(),
			Status:    entity.StageRunning,
		}
		o.record(ctx, &entry, true)
		o.logger.Info("stage started", zap.String("stage", entry.Stage), zap.Int("sequence", entry.Sequence))

		result := o.execute(ctx, stage, run)

		ended := o.now()
		entry.EndedAt = &ended
		duration := ended.Sub(entry.StartedAt)
		if result.OK() {
			entry.Status = entity.StageSucceeded
			o.logger.Info("stage succeeded",
				zap.String("stage", entry.Stage),
				zap.Duration("duration", duration))
		} else {
			entry.Status = entity.StageFailed
			entry.Reason = result.Reason()
			o.logger.Error("stage failed",
				zap.String("stage", entry.Stage),
				zap.Duration("duration", duration),
				zap.Error(result.Err()))
		}
		o.record(ctx, &entry, false)
		metrics.StageDuration.WithLabelValues(entry.Stage, string(entry.Status)).Observe(duration.Seconds())
		metrics.StageRunsTotal.WithLabelValues(entry.Stage, string(entry.Status)).Inc()
		log = append(log, entry)

		if result.OK() {
			continue
		}
		failures = append(failures, &StageFailure{Stage: entry.Stage, Err: result.Err()})
		if o.policy == HaltOnFailure {
			o.logger.Warn("halting pipeline after failed stage",
				zap.String("stage", entry.Stage),
				zap.Int("skipped_stages", len(o.stages)-i-1))
			break
		}
		o.logger.Warn("continuing past failed stage", zap.String("stage", entry.Stage))
	}

	if len(failures) > 0 {
		return log, errors.Join(failures...)
	}
	o.logger.Info("pipeline finished", zap.String("run_id", run.ID))
	return log, nil
}

func (o *Orchestrator) execute(ctx context.Context, stage Stage, run entity.CrawlRun) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Failure(fmt.Errorf("panic: %v", r))
		}
	}()
	if err := stage.Run(ctx, run); err != nil {
		return Failure(err)
	}
	return Success()
}

// record writes to the recorder with a context that outlives cancellation
// so that a failed stage still reaches the ledger.
func (o *Orchestrator) record(ctx context.Context, entry *entity.StageRun, start bool) {
	if o.recorder == nil {
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	var err error
	if start {
		err = o.recorder.Start(rctx, entry)
	} else {
		err = o.recorder.Finish(rctx, entry)
	}
	if err != nil {
		o.logger.Warn("failed to record stage run", zap.String("stage", entry.Stage), zap.Error(err))
	}
}
