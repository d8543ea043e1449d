package registry

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pelagic-data/vessel-mdm/internal/model"
)

func newMockReference(t *testing.T) (*Reference, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewReference(mock), mock
}

func TestResolveFlag_Alpha3Hit(t *testing.T) {
	ref, mock := newMockReference(t)

	mock.ExpectQuery("WHERE alpha_3_code").
		WithArgs("NOR").
		WillReturnRows(pgxmock.NewRows([]string{"alpha_3_code"}).AddRow("NOR"))

	flag, err := ref.ResolveFlag(context.Background(), " nor ")
	require.NoError(t, err)
	assert.Equal(t, "NOR", flag)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveFlag_Alpha2Fallback(t *testing.T) {
	ref, mock := newMockReference(t)

	mock.ExpectQuery("WHERE alpha_3_code").
		WithArgs("NO").
		WillReturnRows(pgxmock.NewRows([]string{"alpha_3_code"}))
	mock.ExpectQuery("WHERE alpha_2_code").
		WithArgs("NO").
		WillReturnRows(pgxmock.NewRows([]string{"alpha_3_code"}).AddRow("NOR"))

	flag, err := ref.ResolveFlag(context.Background(), "NO")
	require.NoError(t, err)
	assert.Equal(t, "NOR", flag)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveFlag_LegacyCode(t *testing.T) {
	ref, mock := newMockReference(t)

	// UK is not ISO; both lookups miss, then the legacy map retries as GBR.
	mock.ExpectQuery("WHERE alpha_3_code").
		WithArgs("UK").
		WillReturnRows(pgxmock.NewRows([]string{"alpha_3_code"}))
	mock.ExpectQuery("WHERE alpha_2_code").
		WithArgs("UK").
		WillReturnRows(pgxmock.NewRows([]string{"alpha_3_code"}))
	mock.ExpectQuery("WHERE alpha_3_code").
		WithArgs("GBR").
		WillReturnRows(pgxmock.NewRows([]string{"alpha_3_code"}).AddRow("GBR"))

	flag, err := ref.ResolveFlag(context.Background(), "uk")
	require.NoError(t, err)
	assert.Equal(t, "GBR", flag)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveFlag_Unresolved(t *testing.T) {
	ref, mock := newMockReference(t)

	mock.ExpectQuery("WHERE alpha_3_code").
		WithArgs("ZZZ").
		WillReturnRows(pgxmock.NewRows([]string{"alpha_3_code"}))
	mock.ExpectQuery("WHERE alpha_2_code").
		WithArgs("ZZZ").
		WillReturnRows(pgxmock.NewRows([]string{"alpha_3_code"}))

	_, err := ref.ResolveFlag(context.Background(), "ZZZ")
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrLookupUnresolved))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveFlag_EmptyIsNoop(t *testing.T) {
	ref, mock := newMockReference(t)

	flag, err := ref.ResolveFlag(context.Background(), "  ")
	require.NoError(t, err)
	assert.Empty(t, flag)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveVesselType_AlphaFallback(t *testing.T) {
	ref, mock := newMockReference(t)

	mock.ExpectQuery("WHERE isscfv_code").
		WithArgs("TO").
		WillReturnRows(pgxmock.NewRows([]string{"isscfv_code"}))
	mock.ExpectQuery("WHERE isscfv_alpha").
		WithArgs("TO").
		WillReturnRows(pgxmock.NewRows([]string{"isscfv_code"}).AddRow("03.1"))

	code, err := ref.ResolveVesselType(context.Background(), "TO")
	require.NoError(t, err)
	assert.Equal(t, "03.1", code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveGearType_Unresolved(t *testing.T) {
	ref, mock := newMockReference(t)

	mock.ExpectQuery("WHERE isscfg_code").
		WithArgs("99.9.9").
		WillReturnRows(pgxmock.NewRows([]string{"isscfg_code"}))

	_, err := ref.ResolveGearType(context.Background(), "99.9.9")
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrLookupUnresolved))
	assert.NoError(t, mock.ExpectationsWereMet())
}
