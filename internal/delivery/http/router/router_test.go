package router_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/user/listing-pipeline/internal/delivery/http/handler"
	"github.com/user/listing-pipeline/internal/delivery/http/response"
	"github.com/user/listing-pipeline/internal/delivery/http/router"
	"github.com/user/listing-pipeline/internal/entity"
	"github.com/user/listing-pipeline/internal/usecase"
)

type fakeRunStatus struct {
	reports map[string]*usecase.RunReport
	err     error
}

func (f *fakeRunStatus) GetRun(_ context.Context, runID string) (*usecase.RunReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.reports[runID]
	if !ok {
		return nil, usecase.ErrRunNotFound
	}
	return r, nil
}

func newServer(t *testing.T, rs usecase.RunStatus, checks map[string]handler.HealthCheck) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(router.New(handler.NewHandler(rs, checks, zap.NewNop()), zap.NewNop()))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, dst any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if dst != nil {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	srv := newServer(t, &fakeRunStatus{}, map[string]handler.HealthCheck{"mongo": ok, "redis": ok, "postgres": ok})
	var body response.HealthResponse
	if code := getJSON(t, srv.URL+"/api/health", &body); code != http.StatusOK || body.Status != "ok" {
		t.Fatalf("healthy: code=%d body=%+v", code, body)
	}

	srv = newServer(t, &fakeRunStatus{}, map[string]handler.HealthCheck{"mongo": ok, "redis": down})
	body = response.HealthResponse{}
	code := getJSON(t, srv.URL+"/api/health", &body)
	if code != http.StatusServiceUnavailable || body.Components["redis"] != "unhealthy" || body.Components["mongo"] != "healthy" {
		t.Fatalf("degraded: code=%d body=%+v", code, body)
	}
}

func TestRunStages(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(1500 * time.Millisecond)
	rs := &fakeRunStatus{reports: map[string]*usecase.RunReport{
		"run-1": {
			RunID: "run-1",
			Stages: []entity.StageRun{
				{RunID: "run-1", Stage: "acquisition", Sequence: 1, StartedAt: start, EndedAt: &end, Status: entity.StageSucceeded},
				{RunID: "run-1", Stage: "normalization", Sequence: 2, StartedAt: end, Status: entity.StageRunning},
			},
			FailedListings: map[string]int{"detail_render": 3},
		},
	}}
	srv := newServer(t, rs, nil)

	var body response.RunStagesResponse
	if code := getJSON(t, srv.URL+"/api/runs/run-1/stages", &body); code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	if len(body.Stages) != 2 || body.Stages[0].Stage != "acquisition" || body.Stages[1].Status != "running" {
		t.Fatalf("stages = %+v", body.Stages)
	}
	if body.Stages[0].DurationMS == nil || *body.Stages[0].DurationMS != 1500 {
		t.Fatalf("duration = %v", body.Stages[0].DurationMS)
	}
	if body.Stages[1].EndedAt != nil || body.Stages[1].DurationMS != nil {
		t.Fatalf("running stage reported an end")
	}
	if body.FailedListings["detail_render"] != 3 {
		t.Fatalf("failed listings = %v", body.FailedListings)
	}

	var errBody response.ErrorResponse
	if code := getJSON(t, srv.URL+"/api/runs/nope/stages", &errBody); code != http.StatusNotFound || errBody.Error == "" {
		t.Fatalf("unknown run: code=%d body=%+v", code, errBody)
	}
}

func TestRunStages_BackendError(t *testing.T) {
	srv := newServer(t, &fakeRunStatus{err: errors.New("pool closed")}, nil)
	if code := getJSON(t, srv.URL+"/api/runs/run-1/stages", nil); code != http.StatusInternalServerError {
		t.Fatalf("code = %d", code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newServer(t, &fakeRunStatus{}, nil)
	getJSON(t, srv.URL+"/api/health", nil)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics code = %d", resp.StatusCode)
	}
}
