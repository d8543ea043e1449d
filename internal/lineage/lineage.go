// Package lineage tracks file-level import metadata and batch versioning,
// making imports idempotent and incremental.
package lineage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pelagic-data/vessel-mdm/internal/model"
)

// BatchStore is the slice of the repository the tracker needs.
type BatchStore interface {
	FindLineageByHash(ctx context.Context, source, contentHash string) (*model.Lineage, error)
	OpenBatch(ctx context.Context, source string, lin model.Lineage) (*model.ImportBatch, error)
	RecordStage(ctx context.Context, batchID, stage string, inputCount, outputCount int) error
	ListStages(ctx context.Context, batchID string) ([]model.StageCount, error)
	CloseBatch(ctx context.Context, batchID string, status model.BatchStatus, errMsg string) error
	SetLineageQuality(ctx context.Context, batchID string, quality float64) error
}

// Tracker guards batch imports with content-hash idempotence and per-stage
// count verification.
type Tracker struct {
	store BatchStore
}

// NewTracker creates a Tracker over the given store.
func NewTracker(store BatchStore) *Tracker {
	return &Tracker{store: store}
}

// HashFile computes the sha256 content hash and size of a file.
func HashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, eris.Wrapf(err, "lineage: open %s", path)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, eris.Wrapf(err, "lineage: hash %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// BeginImport validates that the file is new for the source and opens a
// versioned batch. A byte-identical re-import returns ErrAlreadyImported
// and changes nothing; otherwise the prior current batch is superseded.
func (t *Tracker) BeginImport(ctx context.Context, source, filePath string) (*model.ImportBatch, error) {
	log := zap.L().With(zap.String("component", "lineage"), zap.String("source", source))

	hash, size, err := HashFile(filePath)
	if err != nil {
		return nil, err
	}

	existing, err := t.store.FindLineageByHash(ctx, source, hash)
	if err != nil {
		return nil, eris.Wrap(err, "lineage: check content hash")
	}
	if existing != nil {
		log.Info("file already imported",
			zap.String("content_hash", hash),
			zap.String("batch_id", existing.BatchID))
		return nil, eris.Wrapf(model.ErrAlreadyImported, "batch %s", existing.BatchID)
	}

	batch, err := t.store.OpenBatch(ctx, source, model.Lineage{
		Source:      source,
		FilePath:    filePath,
		ContentHash: hash,
		SizeBytes:   size,
	})
	if err != nil {
		return nil, eris.Wrap(err, "lineage: open batch")
	}

	log.Info("batch opened",
		zap.String("batch_id", batch.ID),
		zap.Int64("size_bytes", size),
		zap.Stringp("previous_batch_id", batch.PreviousBatchID))
	return batch, nil
}

// CompleteStage records a stage's counts and verifies no records were lost.
// expectedLoss covers records legitimately diverted (rejects); anything
// beyond it is ErrDataLossDetected and must abort the batch.
func (t *Tracker) CompleteStage(ctx context.Context, batchID, stage string, inputCount, outputCount, expectedLoss int) error {
	if err := t.store.RecordStage(ctx, batchID, stage, inputCount, outputCount); err != nil {
		return eris.Wrapf(err, "lineage: record stage %s", stage)
	}
	if outputCount+expectedLoss != inputCount {
		return eris.Wrapf(model.ErrDataLossDetected,
			"stage %s: input %d, output %d, expected loss %d", stage, inputCount, outputCount, expectedLoss)
	}
	return nil
}

// Complete marks a batch finished and stamps its lineage quality score
// (the valid fraction of input records).
func (t *Tracker) Complete(ctx context.Context, batchID string, quality float64) error {
	if err := t.store.SetLineageQuality(ctx, batchID, quality); err != nil {
		return eris.Wrap(err, "lineage: set quality score")
	}
	if err := t.store.CloseBatch(ctx, batchID, model.BatchComplete, ""); err != nil {
		return eris.Wrap(err, "lineage: close batch")
	}
	return nil
}

// Abort marks a batch failed or aborted with the triggering error. Stage
// flags stay incomplete so a retry treats the import as unfinished.
func (t *Tracker) Abort(ctx context.Context, batchID string, status model.BatchStatus, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if err := t.store.CloseBatch(ctx, batchID, status, msg); err != nil {
		return eris.Wrap(err, "lineage: abort batch")
	}
	return nil
}

// Summary assembles the end-of-batch report from recorded stage counts.
func (t *Tracker) Summary(ctx context.Context, batch *model.ImportBatch) (*model.BatchSummary, error) {
	stages, err := t.store.ListStages(ctx, batch.ID)
	if err != nil {
		return nil, eris.Wrap(err, "lineage: list stages")
	}

	sum := &model.BatchSummary{
		BatchID: batch.ID,
		Source:  batch.Source,
		Stages:  stages,
	}
	duplicates := 0
	for _, s := range stages {
		switch s.Stage {
		case model.StageLoaded:
			sum.InputCount = s.OutputCount
		case model.StageValidated:
			// Identity screening diverts rejects here.
			sum.RejectedCount += s.InputCount - s.OutputCount
		case model.StageDeduped:
			sum.DedupedCount = s.OutputCount
			duplicates = s.InputCount - s.OutputCount
		case model.StageResolved:
			sum.ResolvedCount = s.OutputCount
			sum.RejectedCount += s.InputCount - s.OutputCount
		}
	}
	if sum.InputCount > 0 {
		lost := sum.InputCount - duplicates - sum.ResolvedCount - sum.RejectedCount
		if lost < 0 {
			lost = 0
		}
		sum.LossPercent = 100 * float64(lost) / float64(sum.InputCount)
		sum.LossDetected = lost > 0
	}
	return sum, nil
}
