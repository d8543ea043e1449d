package model

import "time"

// BatchStatus is the lifecycle state of an import batch.
type BatchStatus string

const (
	BatchRunning  BatchStatus = "running"
	BatchComplete BatchStatus = "complete"
	BatchFailed   BatchStatus = "failed"
	BatchAborted  BatchStatus = "aborted"
)

// Stage names for per-batch record counting. A stage completes only when
// its output count equals its input count.
const (
	StageLoaded    = "loaded"
	StageValidated = "validated"
	StageDeduped   = "deduped"
	StageResolved  = "resolved"
	StageScored    = "scored"
	StageSnapshot  = "snapshotted"
)

// ImportBatch is one ingestion run of one source file. Batches form a
// version chain per source via PreviousBatchID; readers filter on
// IsCurrent instead of consulting any global "current batch" state.
type ImportBatch struct {
	ID              string      `json:"id"`
	Source          string      `json:"source"`
	Status          BatchStatus `json:"status"`
	PreviousBatchID *string     `json:"previous_batch_id,omitempty"`
	IsCurrent       bool        `json:"is_current"`
	StartedAt       time.Time   `json:"started_at"`
	CompletedAt     *time.Time  `json:"completed_at,omitempty"`
	Error           string      `json:"error,omitempty"`
}

// Lineage is the file-level import metadata, 1:1 with an ImportBatch.
// The content hash makes byte-identical re-imports idempotent no-ops.
type Lineage struct {
	BatchID      string    `json:"batch_id"`
	Source       string    `json:"source"`
	FilePath     string    `json:"file_path"`
	ContentHash  string    `json:"content_hash"`
	SizeBytes    int64     `json:"size_bytes"`
	QualityScore float64   `json:"quality_score"`
	CreatedAt    time.Time `json:"created_at"`
}

// StageCount records input/output counts for one processing stage of a batch.
type StageCount struct {
	BatchID     string    `json:"batch_id"`
	Stage       string    `json:"stage"`
	InputCount  int       `json:"input_count"`
	OutputCount int       `json:"output_count"`
	CompletedAt time.Time `json:"completed_at"`
}

// BatchSummary is the end-of-batch report: exact per-stage counts, rejects,
// duplicate diagnostics, and a loss verdict.
type BatchSummary struct {
	BatchID        string         `json:"batch_id"`
	Source         string         `json:"source"`
	InputCount     int            `json:"input_count"`
	DedupedCount   int            `json:"deduped_count"`
	ResolvedCount  int            `json:"resolved_count"`
	RejectedCount  int            `json:"rejected_count"`
	CreatedVessels int            `json:"created_vessels"`
	MatchedVessels int            `json:"matched_vessels"`
	Conflicts      int            `json:"conflicts"`
	Warnings       []BatchWarning `json:"warnings,omitempty"`
	LossPercent    float64        `json:"loss_percent"`
	LossDetected   bool           `json:"loss_detected"`
	Stages         []StageCount   `json:"stages,omitempty"`
}

// BatchWarning is an informational diagnostic raised during a batch, such
// as duplicate IMOs inside the input file. Warnings never fail the batch.
type BatchWarning struct {
	Type   string `json:"type"`
	Detail string `json:"detail"`
	Count  int    `json:"count,omitempty"`
}
