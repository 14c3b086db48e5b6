package entity

import "time"

type StageStatus string

const (
	StageRunning   StageStatus = "running"
	StageSucceeded StageStatus = "succeeded"
	StageFailed    StageStatus = "failed"
)

// CrawlRun identifies one execution of the pipeline.
type CrawlRun struct {
	ID        string
	StartedAt time.Time
}

// StageRun mirrors the `stage_runs` PostgreSQL table.
type StageRun struct {
	ID        int64       `json:"-"`
	RunID     string      `json:"run_id"`
	Stage     string      `json:"stage"`
	Sequence  int         `json:"sequence"`
	StartedAt time.Time   `json:"started_at"`
	EndedAt   *time.Time  `json:"ended_at,omitempty"`
	Status    StageStatus `json:"status"`
	Reason    string      `json:"reason,omitempty"`
}
