package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/user/listing-pipeline/internal/entity"
)

// Stage is one unit of the batch pipeline. Run returns only after all of
// the stage's output is durably stored.
type Stage interface {
	Name() string
	Run(ctx context.Context, run entity.CrawlRun) error
}

// Result is the outcome of one stage: success, or failure with a reason.
type Result struct {
	err error
}

func Success() Result { return Result{} }

func Failure(err error) Result {
	if err == nil {
		err = fmt.Errorf("unspecified failure")
	}
	return Result{err: err}
}

func (r Result) OK() bool { return r.err == nil }

func (r Result) Err() error { return r.err }

func (r Result) Reason() string {
	if r.err == nil {
		return ""
	}
	return r.err.Error()
}

// StageFailure reports a stage that terminated abnormally.
type StageFailure struct {
	Stage string
	Err   error
}

func (e *StageFailure) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageFailure) Unwrap() error { return e.Err }

// Policy decides what happens after a stage fails.
type Policy int

const (
	HaltOnFailure Policy = iota
	ContinueOnFailure
)

func (p Policy) String() string {
	if p == ContinueOnFailure {
		return "continue"
	}
	return "halt"
}

func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "halt":
		return HaltOnFailure, nil
	case "continue":
		return ContinueOnFailure, nil
	}
	return HaltOnFailure, fmt.Errorf("unknown stage failure policy %q", s)
}

// StageFunc adapts a function to the Stage interface.
type StageFunc struct {
	StageName string
	Fn        func(ctx context.Context, run entity.CrawlRun) error
}

func (s StageFunc) Name() string { return s.StageName }

func (s StageFunc) Run(ctx context.Context, run entity.CrawlRun) error { return s.Fn(ctx, run) }
