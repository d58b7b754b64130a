package ingest

import (
	"errors"
	"time"
)

// ErrRunInProgress is returned when a trigger overlaps an active run.
// Overlapping runs would double network load and race the purge, so
// later triggers are rejected, not queued.
var ErrRunInProgress = errors.New("ingestion run already in progress")

// Report summarizes a completed ingestion run. Counts are for
// reporting only; nothing branches on them.
type Report struct {
	StartedAt     time.Time         `json:"started_at"`
	FinishedAt    time.Time         `json:"finished_at"`
	Purged        int               `json:"purged"`
	NewBySource   map[string]int    `json:"new_by_source"`
	Total         int               `json:"total"`
	Embedded      int               `json:"embedded"`
	EmbedFailures int               `json:"embed_failures"`
	ContentFilled int               `json:"content_filled"`
	SourceErrors  map[string]string `json:"source_errors,omitempty"`
}

// sourceResult is a worker-local outcome, merged single-threaded after
// all workers finish so no shared counter is mutated concurrently.
type sourceResult struct {
	name          string
	newCount      int
	embedded      int
	embedFailures int
	err           error
}
