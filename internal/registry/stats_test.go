package registry

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountVessels(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("FROM registry.vessels").
		WillReturnRows(pgxmock.NewRows([]string{"active", "total"}).AddRow(118, 124))

	c, err := repo.CountVessels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 118, c.Active)
	assert.Equal(t, 124, c.Total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrustDistribution_FillsEmptyBuckets(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("FROM registry.trust_scores GROUP BY bucket").
		WillReturnRows(pgxmock.NewRows([]string{"bucket", "count"}).
			AddRow(7, 40).
			AddRow(9, 12))

	buckets, err := repo.TrustDistribution(context.Background())
	require.NoError(t, err)
	require.Len(t, buckets, 10)

	assert.InDelta(t, 0.7, buckets[7].Low, 1e-9)
	assert.InDelta(t, 0.8, buckets[7].High, 1e-9)
	assert.Equal(t, 40, buckets[7].Count)
	assert.Equal(t, 12, buckets[9].Count)
	assert.Zero(t, buckets[0].Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAIReadyCount(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("FROM registry.trust_scores").
		WithArgs(0.7, 0.6).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(83))

	n, err := repo.AIReadyCount(context.Background(), 0.7, 0.6)
	require.NoError(t, err)
	assert.Equal(t, 83, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictTotals(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("FROM registry.conflicts").
		WithArgs(20).
		WillReturnRows(pgxmock.NewRows([]string{"field", "count"}).
			AddRow("name", 14).
			AddRow("port", 3))

	totals, err := repo.ConflictTotals(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"name": 14, "port": 3}, totals)
	assert.NoError(t, mock.ExpectationsWereMet())
}
