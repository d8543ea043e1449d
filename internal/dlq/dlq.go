// Package dlq keeps rejected records in a local SQLite dead-letter store
// so operators can inspect and replay them after fixing the source file.
// Rejects never reach the canonical registry, only their counts do.
package dlq

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/pelagic-data/vessel-mdm/internal/model"
)

// Entry is one rejected record with the reason it was diverted.
type Entry struct {
	ID         string                 `json:"id"`
	BatchID    string                 `json:"batch_id"`
	Source     string                 `json:"source"`
	Reason     string                 `json:"reason"`
	Detail     string                 `json:"detail,omitempty"`
	Record     *model.CanonicalRecord `json:"record"`
	RejectedAt time.Time              `json:"rejected_at"`
}

// Filter narrows List queries.
type Filter struct {
	BatchID string
	Reason  string
	Limit   int
}

// Store is a SQLite-backed reject queue.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the reject store at the given path and applies
// WAL mode for concurrent writers.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "dlq: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "dlq: exec %s", pragma)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS rejected_records (
	id          TEXT PRIMARY KEY,
	batch_id    TEXT NOT NULL,
	source      TEXT NOT NULL,
	reason      TEXT NOT NULL,
	detail      TEXT,
	record      TEXT NOT NULL,
	rejected_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_rejects_batch ON rejected_records(batch_id);
CREATE INDEX IF NOT EXISTS idx_rejects_reason ON rejected_records(reason);
`

func (s *Store) migrate() error {
	if _, err := s.db.Exec(migration); err != nil {
		return eris.Wrap(err, "dlq: migrate")
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Enqueue stores one rejected record.
func (s *Store) Enqueue(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.RejectedAt.IsZero() {
		e.RejectedAt = time.Now().UTC()
	}

	record, err := json.Marshal(e.Record)
	if err != nil {
		return eris.Wrap(err, "dlq: marshal record")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO rejected_records (id, batch_id, source, reason, detail, record, rejected_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.BatchID, e.Source, e.Reason, e.Detail, string(record), e.RejectedAt)
	if err != nil {
		return eris.Wrap(err, "dlq: enqueue")
	}
	return nil
}

// List returns rejected records matching the filter, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	if f.Limit <= 0 {
		f.Limit = 100
	}

	query := `SELECT id, batch_id, source, reason, detail, record, rejected_at
	          FROM rejected_records WHERE 1=1`
	var args []any
	if f.BatchID != "" {
		query += " AND batch_id = ?"
		args = append(args, f.BatchID)
	}
	if f.Reason != "" {
		query += " AND reason = ?"
		args = append(args, f.Reason)
	}
	query += " ORDER BY rejected_at DESC LIMIT ?"
	args = append(args, f.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "dlq: list")
	}
	defer rows.Close() //nolint:errcheck

	var out []Entry
	for rows.Next() {
		var e Entry
		var detail sql.NullString
		var record string
		if err := rows.Scan(&e.ID, &e.BatchID, &e.Source, &e.Reason, &detail, &record, &e.RejectedAt); err != nil {
			return nil, eris.Wrap(err, "dlq: scan entry")
		}
		e.Detail = detail.String
		if err := json.Unmarshal([]byte(record), &e.Record); err != nil {
			return nil, eris.Wrap(err, "dlq: unmarshal record")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Count returns how many rejects a batch produced, by reason.
func (s *Store) Count(ctx context.Context, batchID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT reason, COUNT(*) FROM rejected_records WHERE batch_id = ? GROUP BY reason`,
		batchID)
	if err != nil {
		return nil, eris.Wrap(err, "dlq: count")
	}
	defer rows.Close() //nolint:errcheck

	out := make(map[string]int)
	for rows.Next() {
		var reason string
		var n int
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, eris.Wrap(err, "dlq: scan count")
		}
		out[reason] = n
	}
	return out, rows.Err()
}

// Purge deletes all rejects for a batch, returning how many were removed.
func (s *Store) Purge(ctx context.Context, batchID string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM rejected_records WHERE batch_id = ?`, batchID)
	if err != nil {
		return 0, eris.Wrap(err, "dlq: purge")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "dlq: rows affected")
	}
	return n, nil
}
