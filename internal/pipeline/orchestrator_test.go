package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/user/listing-pipeline/internal/entity"
)

type recordedEvent struct {
	stage  string
	kind   string // start, finish
	status entity.StageStatus
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *fakeRecorder) Start(_ context.Context, run *entity.StageRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{run.Stage, "start", run.Status})
	return nil
}

func (r *fakeRecorder) Finish(_ context.Context, run *entity.StageRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{run.Stage, "finish", run.Status})
	return nil
}

func countingStage(name string, calls map[string]int, err error) Stage {
	return StageFunc{StageName: name, Fn: func(context.Context, entity.CrawlRun) error {
		calls[name]++
		return err
	}}
}

func TestOrchestrator_HaltsAfterFailedStage(t *testing.T) {
	calls := map[string]int{}
	boom := errors.New("normalization blew up")
	stages := []Stage{
		countingStage("acquire", calls, nil),
		countingStage("normalize", calls, boom),
		countingStage("correct", calls, nil),
		countingStage("persist", calls, nil),
	}
	rec := &fakeRecorder{}

	log, err := New(stages, rec, HaltOnFailure, zap.NewNop()).Run(context.Background(), entity.CrawlRun{ID: "run-1"})

	var sf *StageFailure
	if !errors.As(err, &sf) || sf.Stage != "normalize" || !errors.Is(err, boom) {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls["correct"] != 0 || calls["persist"] != 0 {
		t.Fatalf("stages after the failure ran: %v", calls)
	}
	if calls["acquire"] != 1 || calls["normalize"] != 1 {
		t.Fatalf("unexpected calls: %v", calls)
	}

	if len(log) != 2 {
		t.Fatalf("log has %d entries, want 2: %+v", len(log), log)
	}
	failed := log[1]
	if failed.Stage != "normalize" || failed.Status != entity.StageFailed || failed.Reason != boom.Error() {
		t.Fatalf("unexpected failed entry: %+v", failed)
	}
	if failed.EndedAt == nil || failed.EndedAt.Before(failed.StartedAt) {
		t.Fatalf("failed entry missing end time: %+v", failed)
	}

	want := []recordedEvent{
		{"acquire", "start", entity.StageRunning},
		{"acquire", "finish", entity.StageSucceeded},
		{"normalize", "start", entity.StageRunning},
		{"normalize", "finish", entity.StageFailed},
	}
	if len(rec.events) != len(want) {
		t.Fatalf("recorded %+v, want %+v", rec.events, want)
	}
	for i := range want {
		if rec.events[i] != want[i] {
			t.Fatalf("event %d = %+v, want %+v", i, rec.events[i], want[i])
		}
	}
}

func TestOrchestrator_ContinuePolicyRunsEveryStage(t *testing.T) {
	calls := map[string]int{}
	stages := []Stage{
		countingStage("a", calls, errors.New("bad")),
		countingStage("b", calls, nil),
	}

	log, err := New(stages, nil, ContinueOnFailure, zap.NewNop()).Run(context.Background(), entity.CrawlRun{ID: "r"})
	if err == nil {
		t.Fatalf("expected an error reporting the failed stage")
	}
	if calls["b"] != 1 || len(log) != 2 || log[1].Status != entity.StageSucceeded {
		t.Fatalf("calls=%v log=%+v", calls, log)
	}
}

func TestOrchestrator_PanicBecomesFailure(t *testing.T) {
	stages := []Stage{StageFunc{StageName: "explode", Fn: func(context.Context, entity.CrawlRun) error {
		panic("nil map")
	}}}

	log, err := New(stages, nil, HaltOnFailure, zap.NewNop()).Run(context.Background(), entity.CrawlRun{ID: "r"})
	var sf *StageFailure
	if !errors.As(err, &sf) || sf.Stage != "explode" {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(log) != 1 || log[0].Status != entity.StageFailed {
		t.Fatalf("unexpected log: %+v", log)
	}
}

func TestOrchestrator_CancelledBetweenStages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := map[string]int{}
	stages := []Stage{
		StageFunc{StageName: "first", Fn: func(context.Context, entity.CrawlRun) error {
			calls["first"]++
			cancel()
			return nil
		}},
		countingStage("second", calls, nil),
	}

	log, err := New(stages, nil, HaltOnFailure, zap.NewNop()).Run(ctx, entity.CrawlRun{ID: "r"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if calls["second"] != 0 || len(log) != 1 {
		t.Fatalf("calls=%v log=%+v", calls, log)
	}
}

func TestOrchestrator_AllSucceed(t *testing.T) {
	calls := map[string]int{}
	stages := []Stage{countingStage("a", calls, nil), countingStage("b", calls, nil)}
	log, err := New(stages, nil, HaltOnFailure, zap.NewNop()).Run(context.Background(), entity.CrawlRun{ID: "r"})
	if err != nil || len(log) != 2 {
		t.Fatalf("err=%v log=%+v", err, log)
	}
	for i, e := range log {
		if e.Sequence != i+1 || e.Status != entity.StageSucceeded {
			t.Fatalf("entry %d = %+v", i, e)
		}
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy("CONTINUE"); err != nil || p != ContinueOnFailure {
		t.Fatalf("got %v, %v", p, err)
	}
	if p, _ := ParsePolicy(""); p != HaltOnFailure {
		t.Fatalf("default policy should halt")
	}
	if _, err := ParsePolicy("skip"); err == nil {
		t.Fatalf("expected error")
	}
}
