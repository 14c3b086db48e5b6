package response

import "time"

// HealthResponse reports the state of every store the service depends on.
type HealthResponse struct {
	Status     string            `json:"status"` // "ok" or "degraded"
	Components map[string]string `json:"components"`
}

type StageRunResponse struct {
	Stage      string     `json:"stage"`
	Sequence   int        `json:"sequence"`
	Status     string     `json:"status"` // "running", "succeeded", "failed"
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	DurationMS *int64     `json:"duration_ms,omitempty"`
	Reason     string     `json:"reason,omitempty"`
}

// RunStagesResponse is the DTO for a crawl run's stage log.
type RunStagesResponse struct {
	RunID          string             `json:"run_id"`
	Stages         []StageRunResponse `json:"stages"`
	FailedListings map[string]int     `json:"failed_listings,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
