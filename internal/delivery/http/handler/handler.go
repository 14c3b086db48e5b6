package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/user/listing-pipeline/internal/delivery/http/response"
	"github.com/user/listing-pipeline/internal/usecase"
)

const healthTimeout = 2 * time.Second

// HealthCheck pings one dependency.
type HealthCheck func(ctx context.Context) error

type Handler struct {
	runStatus usecase.RunStatus
	checks    map[string]HealthCheck
	logger    *zap.Logger
}

func NewHandler(runStatus usecase.RunStatus, checks map[string]HealthCheck, logger *zap.Logger) *Handler {
	return &Handler{
		runStatus: runStatus,
		checks:    checks,
		logger:    logger,
	}
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := response.HealthResponse{Status: "ok", Components: make(map[string]string, len(names))}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.Error("health check failed", zap.String("component", name), zap.Error(err))
			resp.Components[name] = "unhealthy"
			resp.Status = "degraded"
			continue
		}
		resp.Components[name] = "healthy"
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	h.writeJSON(w, code, resp)
}

func (h *Handler) HandleGetRunStages(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if runID == "" {
		h.writeJSONError(w, "run id is required", http.StatusBadRequest)
		return
	}

	report, err := h.runStatus.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, usecase.ErrRunNotFound) {
			h.writeJSONError(w, "crawl run not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load crawl run", zap.String("run_id", runID), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := response.RunStagesResponse{
		RunID:          report.RunID,
		Stages:         make([]response.StageRunResponse, 0, len(report.Stages)),
		FailedListings: report.FailedListings,
	}
	for _, sr := range report.Stages {
		item := response.StageRunResponse{
			Stage:     sr.Stage,
			Sequence:  sr.Sequence,
			Status:    string(sr.Status),
			StartedAt: sr.StartedAt,
			EndedAt:   sr.EndedAt,
			Reason:    sr.Reason,
		}
		if sr.EndedAt != nil {
			ms := sr.EndedAt.Sub(sr.StartedAt).Milliseconds()
			item.DurationMS = &ms
		}
		resp.Stages = append(resp.Stages, item)
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, response.ErrorResponse{Error: message})
}
