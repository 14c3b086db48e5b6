package entity

import "time"

// FailedListing mirrors the `failed_listings` PostgreSQL table schema.
type FailedListing struct {
	ID           int64
	URL          string
	Website      string
	CrawlRunID   string
	Kind         string // "detail_render", "detail_parse"
	Reason       string
	AttemptCount int
	LastAttempt  time.Time
}
