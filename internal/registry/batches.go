package registry

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/pelagic-data/vessel-mdm/internal/model"
)

// FindLineageByHash returns the lineage row for (source, content hash), or
// nil when the file has never been imported for the source.
func (r *Repository) FindLineageByHash(ctx context.Context, source, contentHash string) (*model.Lineage, error) {
	var l model.Lineage
	err := r.pool.QueryRow(ctx,
		`SELECT batch_id, source, file_path, content_hash, size_bytes, quality_score, created_at
		 FROM registry.lineage WHERE source = $1 AND content_hash = $2`,
		source, contentHash).Scan(
		&l.BatchID, &l.Source, &l.FilePath, &l.ContentHash, &l.SizeBytes, &l.QualityScore, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "registry: find lineage for %s", source)
	}
	return &l, nil
}

// CurrentBatch returns the current batch for a source, or nil.
func (r *Repository) CurrentBatch(ctx context.Context, source string) (*model.ImportBatch, error) {
	b, err := r.scanBatch(r.pool.QueryRow(ctx,
		`SELECT id, source, status, previous_batch_id, is_current, started_at, completed_at, error
		 FROM registry.import_batches WHERE source = $1 AND is_current`,
		source))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "registry: current batch for %s", source)
	}
	return b, nil
}

// GetBatch fetches one batch by id.
func (r *Repository) GetBatch(ctx context.Context, batchID string) (*model.ImportBatch, error) {
	b, err := r.scanBatch(r.pool.QueryRow(ctx,
		`SELECT id, source, status, previous_batch_id, is_current, started_at, completed_at, error
		 FROM registry.import_batches WHERE id = $1`,
		batchID))
	if err != nil {
		return nil, eris.Wrapf(err, "registry: get batch %s", batchID)
	}
	return b, nil
}

// ListBatches returns batches for a source, newest first.
func (r *Repository) ListBatches(ctx context.Context, source string, limit int) ([]model.ImportBatch, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, source, status, previous_batch_id, is_current, started_at, completed_at, error
		 FROM registry.import_batches WHERE source = $1
		 ORDER BY started_at DESC LIMIT $2`,
		source, limit)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: list batches for %s", source)
	}
	defer rows.Close()

	var out []model.ImportBatch
	for rows.Next() {
		b, err := r.scanBatch(rows)
		if err != nil {
			return nil, eris.Wrap(err, "registry: scan batch")
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *Repository) scanBatch(row pgx.Row) (*model.ImportBatch, error) {
	var b model.ImportBatch
	var errStr *string
	if err := row.Scan(&b.ID, &b.Source, &b.Status, &b.PreviousBatchID,
		&b.IsCurrent, &b.StartedAt, &b.CompletedAt, &errStr); err != nil {
		return nil, err
	}
	if errStr != nil {
		b.Error = *errStr
	}
	return &b, nil
}

// OpenBatch inserts a new running batch with its lineage row and flips the
// version pointer in one transaction: the prior current batch (if any)
// loses is_current, the new batch gains it and links back via
// previous_batch_id.
func (r *Repository) OpenBatch(ctx context.Context, source string, lin model.Lineage) (*model.ImportBatch, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "registry: open batch: begin tx")
	}
	defer tx.Rollback(ctx)

	var prevID *string
	var prev string
	err = tx.QueryRow(ctx,
		`UPDATE registry.import_batches SET is_current = FALSE
		 WHERE source = $1 AND is_current RETURNING id`,
		source).Scan(&prev)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// first import for this source
	case err != nil:
		return nil, eris.Wrap(err, "registry: open batch: supersede prior")
	default:
		prevID = &prev
	}

	b := &model.ImportBatch{
		ID:              uuid.NewString(),
		Source:          source,
		Status:          model.BatchRunning,
		PreviousBatchID: prevID,
		IsCurrent:       true,
		StartedAt:       time.Now().UTC(),
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO registry.import_batches (id, source, status, previous_batch_id, is_current, started_at)
		 VALUES ($1, $2, $3, $4, TRUE, $5)`,
		b.ID, b.Source, b.Status, b.PreviousBatchID, b.StartedAt); err != nil {
		return nil, eris.Wrap(err, "registry: open batch: insert batch")
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO registry.lineage (batch_id, source, file_path, content_hash, size_bytes, quality_score)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		b.ID, source, lin.FilePath, lin.ContentHash, lin.SizeBytes, lin.QualityScore); err != nil {
		return nil, eris.Wrap(err, "registry: open batch: insert lineage")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "registry: open batch: commit")
	}
	return b, nil
}

// RecordStage persists the input/output counts for one stage of a batch.
func (r *Repository) RecordStage(ctx context.Context, batchID, stage string, inputCount, outputCount int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO registry.batch_stages (batch_id, stage, input_count, output_count)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (batch_id, stage)
		 DO UPDATE SET input_count = EXCLUDED.input_count,
		               output_count = EXCLUDED.output_count,
		               completed_at = now()`,
		batchID, stage, inputCount, outputCount)
	if err != nil {
		return eris.Wrapf(err, "registry: record stage %s for batch %s", stage, batchID)
	}
	return nil
}

// ListStages returns the recorded stage counts for a batch in recording order.
func (r *Repository) ListStages(ctx context.Context, batchID string) ([]model.StageCount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT batch_id, stage, input_count, output_count, completed_at
		 FROM registry.batch_stages WHERE batch_id = $1 ORDER BY completed_at`,
		batchID)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: list stages for batch %s", batchID)
	}
	defer rows.Close()

	var out []model.StageCount
	for rows.Next() {
		var s model.StageCount
		if err := rows.Scan(&s.BatchID, &s.Stage, &s.InputCount, &s.OutputCount, &s.CompletedAt); err != nil {
			return nil, eris.Wrap(err, "registry: scan stage")
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SetLineageQuality stamps the valid-fraction quality score on a batch's
// lineage row.
func (r *Repository) SetLineageQuality(ctx context.Context, batchID string, quality float64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE registry.lineage SET quality_score = $1 WHERE batch_id = $2`,
		quality, batchID)
	if err != nil {
		return eris.Wrapf(err, "registry: set lineage quality for %s", batchID)
	}
	return nil
}

// CloseBatch marks a batch complete or failed/aborted with an optional error
// message. An aborted batch keeps is_current so a retry supersedes it the
// same way a fresh import would.
func (r *Repository) CloseBatch(ctx context.Context, batchID string, status model.BatchStatus, errMsg string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE registry.import_batches
		 SET status = $1, completed_at = now(), error = NULLIF($2, '')
		 WHERE id = $3`,
		status, errMsg, batchID)
	if err != nil {
		return eris.Wrapf(err, "registry: close batch %s", batchID)
	}
	return nil
}
