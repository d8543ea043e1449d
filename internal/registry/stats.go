package registry

import (
	"context"

	"github.com/rotisserie/eris"
)

// TrustBucket is one 0.1-wide band of the trust score distribution.
type TrustBucket struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

// VesselCounts summarizes registry size.
type VesselCounts struct {
	Active int `json:"active"`
	Total  int `json:"total"`
}

// CountVessels returns active and total vessel counts.
func (r *Repository) CountVessels(ctx context.Context) (VesselCounts, error) {
	var c VesselCounts
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FILTER (WHERE active), COUNT(*) FROM registry.vessels`).
		Scan(&c.Active, &c.Total)
	if err != nil {
		return c, eris.Wrap(err, "registry: count vessels")
	}
	return c, nil
}

// TrustDistribution buckets current trust scores into ten 0.1-wide bands.
// A score of exactly 1.0 lands in the top band.
func (r *Repository) TrustDistribution(ctx context.Context) ([]TrustBucket, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT LEAST(floor(score * 10), 9)::int AS bucket, COUNT(*)
		 FROM registry.trust_scores GROUP BY bucket ORDER BY bucket`)
	if err != nil {
		return nil, eris.Wrap(err, "registry: trust distribution")
	}
	defer rows.Close()

	buckets := make([]TrustBucket, 10)
	for i := range buckets {
		buckets[i] = TrustBucket{Low: float64(i) / 10, High: float64(i+1) / 10}
	}
	for rows.Next() {
		var idx, n int
		if err := rows.Scan(&idx, &n); err != nil {
			return nil, eris.Wrap(err, "registry: scan trust bucket")
		}
		if idx >= 0 && idx < len(buckets) {
			buckets[idx].Count = n
		}
	}
	return buckets, rows.Err()
}

// AIReadyCount counts vessels whose composite trust and data completeness
// clear the export thresholds.
func (r *Repository) AIReadyCount(ctx context.Context, minTrust, minCompleteness float64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM registry.trust_scores
		 WHERE score >= $1 AND data_score >= $2`,
		minTrust, minCompleteness).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "registry: count ai-ready vessels")
	}
	return n, nil
}

// ConflictTotals returns how many conflicts each field has accumulated,
// most conflicted first.
func (r *Repository) ConflictTotals(ctx context.Context, limit int) (map[string]int, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx,
		`SELECT field, COUNT(*) FROM registry.conflicts
		 GROUP BY field ORDER BY COUNT(*) DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "registry: conflict totals")
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var field string
		var n int
		if err := rows.Scan(&field, &n); err != nil {
			return nil, eris.Wrap(err, "registry: scan conflict total")
		}
		out[field] = n
	}
	return out, rows.Err()
}
